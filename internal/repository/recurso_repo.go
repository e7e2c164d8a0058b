package repository

import (
	"context"

	"restaurantepos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecursoRepository accede a mesas y códigos de delivery / para llevar.
// Los estados solo se escriben desde RecursoService.
type RecursoRepository interface {
	ListMesas(ctx context.Context) ([]model.Mesa, error)
	ListCodigos(ctx context.Context, tipo string) ([]model.DeliveryConfig, error)

	// LockMesaTx lee la mesa con SELECT ... FOR UPDATE.
	LockMesaTx(tx *gorm.DB, id uint) (*model.Mesa, error)
	ListMesasTx(tx *gorm.DB) ([]model.Mesa, error)
	UpdateMesaEstadoTx(tx *gorm.DB, id uint, estado string) error

	// LockCodigoTx lee el código (tipo, codigo) con SELECT ... FOR UPDATE.
	LockCodigoTx(tx *gorm.DB, tipo, codigo string) (*model.DeliveryConfig, error)
	// PrimerDisponibleTx bloquea y devuelve el primer código disponible del tipo.
	PrimerDisponibleTx(tx *gorm.DB, tipo string) (*model.DeliveryConfig, error)
	ListCodigosTx(tx *gorm.DB) ([]model.DeliveryConfig, error)
	UpdateCodigoEstadoTx(tx *gorm.DB, id uint, estado string) error

	// SembrarTx inserta mesas y códigos que falten sin tocar los existentes.
	SembrarTx(tx *gorm.DB, mesas []model.Mesa, codigos []model.DeliveryConfig) error

	DB() *gorm.DB
}

type recursoRepo struct{ db *gorm.DB }

func NewRecursoRepository(db *gorm.DB) RecursoRepository { return &recursoRepo{db: db} }

func (r *recursoRepo) DB() *gorm.DB { return r.db }

func (r *recursoRepo) ListMesas(ctx context.Context) ([]model.Mesa, error) {
	return r.ListMesasTx(r.db.WithContext(ctx))
}

func (r *recursoRepo) ListCodigos(ctx context.Context, tipo string) ([]model.DeliveryConfig, error) {
	var codigos []model.DeliveryConfig
	q := r.db.WithContext(ctx)
	if tipo != "" {
		q = q.Where("tipo = ?", tipo)
	}
	err := q.Order("tipo ASC, codigo ASC").Find(&codigos).Error
	return codigos, err
}

// ── Mesas ───────────────────────────────────────────────────────────────────

func (r *recursoRepo) LockMesaTx(tx *gorm.DB, id uint) (*model.Mesa, error) {
	var m model.Mesa
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error
	return &m, err
}

func (r *recursoRepo) ListMesasTx(tx *gorm.DB) ([]model.Mesa, error) {
	var mesas []model.Mesa
	err := tx.Order("numero ASC").Find(&mesas).Error
	return mesas, err
}

func (r *recursoRepo) UpdateMesaEstadoTx(tx *gorm.DB, id uint, estado string) error {
	return tx.Model(&model.Mesa{}).Where("id = ?", id).Update("estado", estado).Error
}

// ── Códigos ─────────────────────────────────────────────────────────────────

func (r *recursoRepo) LockCodigoTx(tx *gorm.DB, tipo, codigo string) (*model.DeliveryConfig, error) {
	var c model.DeliveryConfig
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tipo = ? AND codigo = ?", tipo, codigo).
		First(&c).Error
	return &c, err
}

func (r *recursoRepo) PrimerDisponibleTx(tx *gorm.DB, tipo string) (*model.DeliveryConfig, error) {
	var c model.DeliveryConfig
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tipo = ? AND estado = ?", tipo, model.CodigoDisponible).
		Order("codigo ASC").
		First(&c).Error
	return &c, err
}

func (r *recursoRepo) ListCodigosTx(tx *gorm.DB) ([]model.DeliveryConfig, error) {
	var codigos []model.DeliveryConfig
	err := tx.Order("tipo ASC, codigo ASC").Find(&codigos).Error
	return codigos, err
}

func (r *recursoRepo) UpdateCodigoEstadoTx(tx *gorm.DB, id uint, estado string) error {
	return tx.Model(&model.DeliveryConfig{}).Where("id = ?", id).Update("estado", estado).Error
}

func (r *recursoRepo) SembrarTx(tx *gorm.DB, mesas []model.Mesa, codigos []model.DeliveryConfig) error {
	if len(mesas) > 0 {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "numero"}},
			DoNothing: true,
		}).Create(&mesas).Error; err != nil {
			return err
		}
	}
	if len(codigos) > 0 {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tipo"}, {Name: "codigo"}},
			DoNothing: true,
		}).Create(&codigos).Error; err != nil {
			return err
		}
	}
	return nil
}
