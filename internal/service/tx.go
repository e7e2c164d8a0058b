package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// conReintentos ejecuta fn en una transacción nueva por intento y reintenta
// solo cuando falla por una violación de unicidad (código generado repetido).
// Agotados los intentos devuelve TransientError.
func conReintentos(ctx context.Context, db *gorm.DB, intentos int, operacion string, fn func(tx *gorm.DB, intento int) error) error {
	if intentos < 1 {
		intentos = 1
	}
	var err error
	for intento := 1; intento <= intentos; intento++ {
		n := intento
		err = runTx(ctx, db, func(tx *gorm.DB) error { return fn(tx, n) })
		if err == nil || !esViolacionUnica(err) {
			return err
		}
		log.Warn().Err(err).Str("operacion", operacion).Int("intento", intento).
			Msg("codigo duplicado, reintentando")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(intento*intento) * 5 * time.Millisecond):
		}
	}
	return &TransientError{Operacion: operacion, Err: err}
}

func esViolacionUnica(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
