package repository

import (
	"context"

	"restaurantepos/internal/model"

	"gorm.io/gorm"
)

type PlatoRepository interface {
	CreateTx(tx *gorm.DB, p *model.Plato) error
	FindByID(ctx context.Context, id uint) (*model.Plato, error)
	FindByIDTx(tx *gorm.DB, id uint) (*model.Plato, error)
	List(ctx context.Context, soloActivos bool) ([]model.Plato, error)
	// UltimoCodigoTx devuelve el mayor COD### guardado, o "".
	UltimoCodigoTx(tx *gorm.DB) (string, error)
	DB() *gorm.DB
}

type platoRepo struct{ db *gorm.DB }

func NewPlatoRepository(db *gorm.DB) PlatoRepository { return &platoRepo{db: db} }

func (r *platoRepo) DB() *gorm.DB { return r.db }

func (r *platoRepo) CreateTx(tx *gorm.DB, p *model.Plato) error {
	return tx.Create(p).Error
}

func (r *platoRepo) FindByID(ctx context.Context, id uint) (*model.Plato, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *platoRepo) FindByIDTx(tx *gorm.DB, id uint) (*model.Plato, error) {
	var p model.Plato
	err := tx.First(&p, id).Error
	return &p, err
}

func (r *platoRepo) List(ctx context.Context, soloActivos bool) ([]model.Plato, error) {
	var platos []model.Plato
	q := r.db.WithContext(ctx)
	if soloActivos {
		q = q.Where("activo = ?", true)
	}
	err := q.Order("categoria ASC, nombre ASC").Find(&platos).Error
	return platos, err
}

func (r *platoRepo) UltimoCodigoTx(tx *gorm.DB) (string, error) {
	var codigos []string
	err := tx.Model(&model.Plato{}).
		Order("LENGTH(codigo) DESC, codigo DESC").Limit(1).
		Pluck("codigo", &codigos).Error
	if err != nil || len(codigos) == 0 {
		return "", err
	}
	return codigos[0], nil
}
