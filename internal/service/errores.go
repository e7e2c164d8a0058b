package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Taxonomía de errores ────────────────────────────────────────────────────
// Los handlers traducen cada tipo a un código HTTP con errors.As.

// ValidationError: dato faltante o inválido. Nunca hay estado modificado.
type ValidationError struct {
	Campo   string
	Mensaje string
}

func (e *ValidationError) Error() string {
	if e.Campo == "" {
		return e.Mensaje
	}
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}

func errValidacion(campo, format string, args ...interface{}) error {
	return &ValidationError{Campo: campo, Mensaje: fmt.Sprintf(format, args...)}
}

// Faltante detalla un producto sin stock suficiente.
type Faltante struct {
	ProductoID uint
	Nombre     string
	Solicitado decimal.Decimal
	Disponible decimal.Decimal
	Mensaje    string
}

// Falta devuelve cuánto excede lo solicitado a lo disponible.
func (f Faltante) Falta() decimal.Decimal {
	return f.Solicitado.Sub(f.Disponible)
}

// InsufficientStockError reúne todos los faltantes de una operación.
type InsufficientStockError struct {
	Faltantes []Faltante
}

func (e *InsufficientStockError) Error() string {
	partes := make([]string, 0, len(e.Faltantes))
	for _, f := range e.Faltantes {
		partes = append(partes, f.Mensaje)
	}
	return "stock insuficiente: " + strings.Join(partes, "; ")
}

// ResourceConflictError: la mesa o el código ya está en uso por otro pedido activo.
type ResourceConflictError struct {
	Recurso string
	Mensaje string
}

func (e *ResourceConflictError) Error() string { return e.Mensaje }

func esConflicto(err error) bool {
	var rc *ResourceConflictError
	return errors.As(err, &rc)
}

// NotFoundError: la entidad referenciada no existe.
type NotFoundError struct {
	Entidad string
	Clave   interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v no encontrado", e.Entidad, e.Clave)
}

// InvalidTransitionError: la operación no es válida en el estado actual.
type InvalidTransitionError struct {
	Entidad    string
	Actual     string
	Permitidos []string
	Mensaje    string
}

func (e *InvalidTransitionError) Error() string {
	if e.Mensaje != "" {
		return e.Mensaje
	}
	return fmt.Sprintf("%s en estado %q; se requiere %s", e.Entidad, e.Actual, strings.Join(e.Permitidos, " o "))
}

// TransientError: se agotaron los reintentos ante colisiones de códigos generados.
type TransientError struct {
	Operacion string
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: conflicto transitorio, reintente: %v", e.Operacion, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// noEncontrado convierte gorm.ErrRecordNotFound en NotFoundError y envuelve el resto.
func noEncontrado(err error, entidad string, clave interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entidad: entidad, Clave: clave}
	}
	return fmt.Errorf("buscar %s %v: %w", entidad, clave, err)
}

// ── Advertencias ────────────────────────────────────────────────────────────

// Tipos de advertencia devueltos junto al resultado de una operación.
const (
	AdvStockNegativo         = "stock_negativo"
	AdvStockAgotado          = "stock_agotado"
	AdvBajoStock             = "bajo_stock"
	AdvProductoNoEncontrado  = "producto_no_encontrado"
	AdvRecursoNoConfigurado  = "recurso_no_configurado"
	AdvRecursoEnConflicto    = "recurso_en_conflicto"
	AdvItemSinPlato          = "item_sin_plato"
	AdvCategoriaDistinta     = "categoria_distinta"
	AdvNotificacionPendiente = "notificacion_pendiente"
)

// Advertencia describe una compensación que no pudo aplicarse del todo o un
// estado que conviene revisar. La operación principal igual se completa.
type Advertencia struct {
	Tipo     string
	Mensaje  string
	Producto string
}
