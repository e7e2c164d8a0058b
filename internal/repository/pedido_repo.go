package repository

import (
	"context"
	"time"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sinFacturaPagada filtra pedidos que no tienen ninguna factura pagada.
const sinFacturaPagada = "NOT EXISTS (SELECT 1 FROM facturas f WHERE f.pedido_id = pedidos.id AND f.estado = ?)"

type PedidoRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Pedido, error)
	List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error)
	// Facturables lista pedidos listos, entregados o completados sin factura pagada ni pendiente.
	Facturables(ctx context.Context) ([]model.Pedido, error)
	ListHistorial(ctx context.Context, pedidoID uint) ([]model.HistorialEstadoPedido, error)
	ListDetalles(ctx context.Context, pedidoID uint) ([]model.DetalleItemPedido, error)

	CreateTx(tx *gorm.DB, p *model.Pedido) error
	SaveTx(tx *gorm.DB, p *model.Pedido) error
	FindByIDTx(tx *gorm.DB, id uint) (*model.Pedido, error)
	// LockTx lee el pedido con SELECT ... FOR UPDATE.
	LockTx(tx *gorm.DB, id uint) (*model.Pedido, error)
	DeleteTx(tx *gorm.DB, id uint) error

	// OcupantesMesaTx cuenta pedidos activos sin factura pagada que usan la mesa, salvo excluir.
	OcupantesMesaTx(tx *gorm.DB, mesaID, excluir uint) (int64, error)
	// OcupantesCodigoTx es el equivalente para un código de delivery / para llevar.
	OcupantesCodigoTx(tx *gorm.DB, tipo, codigo string, excluir uint) (int64, error)
	// ActivosTx lista todos los pedidos activos sin factura pagada.
	ActivosTx(tx *gorm.DB) ([]model.Pedido, error)
	// UltimoCodigoTx devuelve el mayor codigo_pedido con el prefijo dado, o "".
	UltimoCodigoTx(tx *gorm.DB, prefijo string) (string, error)

	CreateDetallesTx(tx *gorm.DB, detalles []model.DetalleItemPedido) error
	CreateHistorialTx(tx *gorm.DB, h *model.HistorialEstadoPedido) error

	DB() *gorm.DB
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) DB() *gorm.DB { return r.db }

func (r *pedidoRepo) FindByID(ctx context.Context, id uint) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).Preload("Mesa").First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var pedidos []model.Pedido
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Pedido{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.TipoPedido != "" {
		q = q.Where("tipo_pedido = ?", filter.TipoPedido)
	}
	if filter.MesaID != nil {
		q = q.Where("mesa_id = ?", *filter.MesaID)
	}
	if filter.Fecha != "" {
		if dia, err := time.ParseInLocation("2006-01-02", filter.Fecha, time.Local); err == nil {
			q = q.Where("fecha_pedido >= ? AND fecha_pedido < ?", dia, dia.AddDate(0, 0, 1))
		}
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit)
	err := q.Preload("Mesa").
		Order("fecha_pedido DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&pedidos).Error
	return pedidos, total, err
}

func (r *pedidoRepo) Facturables(ctx context.Context) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	err := r.db.WithContext(ctx).Preload("Mesa").
		Where("estado IN ?", []string{model.PedidoListo, model.PedidoEntregado, model.PedidoCompletado}).
		Where("NOT EXISTS (SELECT 1 FROM facturas f WHERE f.pedido_id = pedidos.id AND f.estado IN ?)",
			[]string{model.FacturaPagada, model.FacturaPendiente}).
		Order("fecha_pedido DESC").
		Find(&pedidos).Error
	return pedidos, err
}

func (r *pedidoRepo) ListHistorial(ctx context.Context, pedidoID uint) ([]model.HistorialEstadoPedido, error) {
	var h []model.HistorialEstadoPedido
	err := r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).Order("id ASC").Find(&h).Error
	return h, err
}

func (r *pedidoRepo) ListDetalles(ctx context.Context, pedidoID uint) ([]model.DetalleItemPedido, error) {
	var d []model.DetalleItemPedido
	err := r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).Order("id ASC").Find(&d).Error
	return d, err
}

// ── Transactional ───────────────────────────────────────────────────────────

func (r *pedidoRepo) CreateTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Omit(clause.Associations).Create(p).Error
}

func (r *pedidoRepo) SaveTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Omit(clause.Associations).Save(p).Error
}

func (r *pedidoRepo) FindByIDTx(tx *gorm.DB, id uint) (*model.Pedido, error) {
	var p model.Pedido
	err := tx.Preload("Mesa").First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) LockTx(tx *gorm.DB, id uint) (*model.Pedido, error) {
	var p model.Pedido
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) DeleteTx(tx *gorm.DB, id uint) error {
	if err := tx.Where("pedido_id = ?", id).Delete(&model.DetalleItemPedido{}).Error; err != nil {
		return err
	}
	if err := tx.Where("pedido_id = ?", id).Delete(&model.HistorialEstadoPedido{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Pedido{}, id).Error
}

func (r *pedidoRepo) OcupantesMesaTx(tx *gorm.DB, mesaID, excluir uint) (int64, error) {
	var n int64
	err := tx.Model(&model.Pedido{}).
		Where("mesa_id = ? AND id <> ? AND estado IN ?", mesaID, excluir, model.EstadosPedidoActivos).
		Where(sinFacturaPagada, model.FacturaPagada).
		Count(&n).Error
	return n, err
}

func (r *pedidoRepo) OcupantesCodigoTx(tx *gorm.DB, tipo, codigo string, excluir uint) (int64, error) {
	var n int64
	err := tx.Model(&model.Pedido{}).
		Where("tipo_pedido = ? AND codigo_delivery = ? AND id <> ? AND estado IN ?",
			tipo, codigo, excluir, model.EstadosPedidoActivos).
		Where(sinFacturaPagada, model.FacturaPagada).
		Count(&n).Error
	return n, err
}

func (r *pedidoRepo) ActivosTx(tx *gorm.DB) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	err := tx.Where("estado IN ?", model.EstadosPedidoActivos).
		Where(sinFacturaPagada, model.FacturaPagada).
		Order("id ASC").
		Find(&pedidos).Error
	return pedidos, err
}

func (r *pedidoRepo) UltimoCodigoTx(tx *gorm.DB, prefijo string) (string, error) {
	var codigos []string
	err := tx.Model(&model.Pedido{}).
		Where("codigo_pedido LIKE ?", prefijo+"%").
		Order("codigo_pedido DESC").Limit(1).
		Pluck("codigo_pedido", &codigos).Error
	if err != nil || len(codigos) == 0 {
		return "", err
	}
	return codigos[0], nil
}

func (r *pedidoRepo) CreateDetallesTx(tx *gorm.DB, detalles []model.DetalleItemPedido) error {
	if len(detalles) == 0 {
		return nil
	}
	return tx.Create(&detalles).Error
}

func (r *pedidoRepo) CreateHistorialTx(tx *gorm.DB, h *model.HistorialEstadoPedido) error {
	return tx.Create(h).Error
}
