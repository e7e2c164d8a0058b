package repository

import (
	"context"
	"time"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FacturaRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Factura, error)
	FindByNumero(ctx context.Context, numero string) (*model.Factura, error)
	List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	UpdatePDFPath(ctx context.Context, id uint, path string) error

	CreateTx(tx *gorm.DB, f *model.Factura) error
	SaveTx(tx *gorm.DB, f *model.Factura) error
	LockTx(tx *gorm.DB, id uint) (*model.Factura, error)
	LockByNumeroTx(tx *gorm.DB, numero string) (*model.Factura, error)
	DeleteTx(tx *gorm.DB, id uint) error

	// TienePagadaTx indica si el pedido tiene otra factura pagada distinta de excluir.
	TienePagadaTx(tx *gorm.DB, pedidoID, excluir uint) (bool, error)
	CountByPedidoTx(tx *gorm.DB, pedidoID uint, estados ...string) (int64, error)
	UltimoNumeroTx(tx *gorm.DB, prefijo string) (string, error)

	CreateDevolucionTx(tx *gorm.DB, d *model.Devolucion) error
	ListDevolucionesTx(tx *gorm.DB, facturaID uint) ([]model.Devolucion, error)

	DB() *gorm.DB
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) DB() *gorm.DB { return r.db }

func (r *facturaRepo) FindByID(ctx context.Context, id uint) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).Preload("Devoluciones").First(&f, id).Error
	return &f, err
}

func (r *facturaRepo) FindByNumero(ctx context.Context, numero string) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).Preload("Devoluciones").Where("numero_factura = ?", numero).First(&f).Error
	return &f, err
}

func (r *facturaRepo) List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	var facturas []model.Factura
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Factura{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.PedidoID != nil {
		q = q.Where("pedido_id = ?", *filter.PedidoID)
	}
	if filter.Fecha != "" {
		if dia, err := time.ParseInLocation("2006-01-02", filter.Fecha, time.Local); err == nil {
			q = q.Where("fecha_factura >= ? AND fecha_factura < ?", dia, dia.AddDate(0, 0, 1))
		}
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit)
	err := q.Order("fecha_factura DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&facturas).Error
	return facturas, total, err
}

func (r *facturaRepo) UpdatePDFPath(ctx context.Context, id uint, path string) error {
	return r.db.WithContext(ctx).Model(&model.Factura{}).Where("id = ?", id).Update("pdf_path", path).Error
}

// ── Transactional ───────────────────────────────────────────────────────────

func (r *facturaRepo) CreateTx(tx *gorm.DB, f *model.Factura) error {
	return tx.Omit(clause.Associations).Create(f).Error
}

func (r *facturaRepo) SaveTx(tx *gorm.DB, f *model.Factura) error {
	return tx.Omit(clause.Associations).Save(f).Error
}

func (r *facturaRepo) LockTx(tx *gorm.DB, id uint) (*model.Factura, error) {
	var f model.Factura
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&f, id).Error
	return &f, err
}

func (r *facturaRepo) LockByNumeroTx(tx *gorm.DB, numero string) (*model.Factura, error) {
	var f model.Factura
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("numero_factura = ?", numero).
		First(&f).Error
	return &f, err
}

func (r *facturaRepo) DeleteTx(tx *gorm.DB, id uint) error {
	return tx.Delete(&model.Factura{}, id).Error
}

func (r *facturaRepo) TienePagadaTx(tx *gorm.DB, pedidoID, excluir uint) (bool, error) {
	var n int64
	err := tx.Model(&model.Factura{}).
		Where("pedido_id = ? AND estado = ? AND id <> ?", pedidoID, model.FacturaPagada, excluir).
		Count(&n).Error
	return n > 0, err
}

func (r *facturaRepo) CountByPedidoTx(tx *gorm.DB, pedidoID uint, estados ...string) (int64, error) {
	var n int64
	q := tx.Model(&model.Factura{}).Where("pedido_id = ?", pedidoID)
	if len(estados) > 0 {
		q = q.Where("estado IN ?", estados)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *facturaRepo) UltimoNumeroTx(tx *gorm.DB, prefijo string) (string, error) {
	var numeros []string
	err := tx.Model(&model.Factura{}).
		Where("numero_factura LIKE ?", prefijo+"%").
		Order("numero_factura DESC").Limit(1).
		Pluck("numero_factura", &numeros).Error
	if err != nil || len(numeros) == 0 {
		return "", err
	}
	return numeros[0], nil
}

func (r *facturaRepo) CreateDevolucionTx(tx *gorm.DB, d *model.Devolucion) error {
	return tx.Create(d).Error
}

func (r *facturaRepo) ListDevolucionesTx(tx *gorm.DB, facturaID uint) ([]model.Devolucion, error) {
	var devs []model.Devolucion
	err := tx.Where("factura_id = ?", facturaID).Order("id ASC").Find(&devs).Error
	return devs, err
}
