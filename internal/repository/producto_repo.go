package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columnas de Producto que admiten ajuste atómico.
const (
	CampoCantidad  = "cantidad"
	CampoReservado = "reservado"
)

// ModoBusqueda selecciona cómo se compara el texto al buscar un producto.
type ModoBusqueda int

const (
	CodigoExacto ModoBusqueda = iota
	NombreExacto
	CodigoContiene
	NombreContiene
)

// ProductoRepository defines the data access contract for inventory products.
// Methods ending in Tx run on the caller's transaction.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, id uint) (*model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	BajoStock(ctx context.Context, umbral decimal.Decimal) ([]model.Producto, error)

	CreateTx(tx *gorm.DB, p *model.Producto) error
	FindByIDTx(tx *gorm.DB, id uint) (*model.Producto, error)
	// LockTx lee el producto con SELECT ... FOR UPDATE.
	LockTx(tx *gorm.DB, id uint) (*model.Producto, error)
	// BuscarTx devuelve el primer producto (por id) que coincide según modo, sin distinguir mayúsculas.
	BuscarTx(tx *gorm.DB, texto string, modo ModoBusqueda) (*model.Producto, error)
	ExisteCodigoTx(tx *gorm.DB, codigo string) (bool, error)
	// AjustarTx suma delta a campo con UPDATE ... SET campo = campo + ? y recalcula subtotal.
	AjustarTx(tx *gorm.DB, id uint, campo string, delta decimal.Decimal) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) DB() *gorm.DB { return r.db }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id uint) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Producto{})
	if filter.Texto != "" {
		like := contiene(strings.ToLower(filter.Texto))
		q = q.Where(`LOWER(nombre) LIKE ? ESCAPE '\' OR LOWER(codigo) LIKE ? ESCAPE '\'`, like, like)
	}
	if filter.Categoria != "" {
		q = q.Where("categoria = ?", strings.ToLower(filter.Categoria))
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit)
	err := q.Order("nombre ASC").Limit(limit).Offset((page - 1) * limit).Find(&productos).Error
	return productos, total, err
}

func (r *productoRepo) BajoStock(ctx context.Context, umbral decimal.Decimal) ([]model.Producto, error) {
	var productos []model.Producto
	err := r.db.WithContext(ctx).Where("cantidad < ?", umbral).Order("cantidad ASC").Find(&productos).Error
	return productos, err
}

// ── Transactional ───────────────────────────────────────────────────────────

func (r *productoRepo) CreateTx(tx *gorm.DB, p *model.Producto) error {
	return tx.Create(p).Error
}

func (r *productoRepo) FindByIDTx(tx *gorm.DB, id uint) (*model.Producto, error) {
	var p model.Producto
	err := tx.First(&p, id).Error
	return &p, err
}

func (r *productoRepo) LockTx(tx *gorm.DB, id uint) (*model.Producto, error) {
	var p model.Producto
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	return &p, err
}

func (r *productoRepo) BuscarTx(tx *gorm.DB, texto string, modo ModoBusqueda) (*model.Producto, error) {
	t := strings.ToLower(strings.TrimSpace(texto))
	q := tx.Model(&model.Producto{})
	switch modo {
	case CodigoExacto:
		q = q.Where("LOWER(codigo) = ?", t)
	case NombreExacto:
		q = q.Where("LOWER(TRIM(nombre)) = ?", t)
	case CodigoContiene:
		q = q.Where(`LOWER(codigo) LIKE ? ESCAPE '\'`, contiene(t))
	case NombreContiene:
		q = q.Where(`LOWER(nombre) LIKE ? ESCAPE '\'`, contiene(t))
	default:
		return nil, fmt.Errorf("modo de busqueda desconocido: %d", modo)
	}
	var p model.Producto
	err := q.Order("id ASC").First(&p).Error
	return &p, err
}

var escapeLike = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// contiene arma un patrón LIKE con el texto literal: % y _ no actúan como comodines.
func contiene(texto string) string {
	return "%" + escapeLike.Replace(texto) + "%"
}

func (r *productoRepo) ExisteCodigoTx(tx *gorm.DB, codigo string) (bool, error) {
	var n int64
	err := tx.Model(&model.Producto{}).Where("codigo = ?", codigo).Count(&n).Error
	return n > 0, err
}

func (r *productoRepo) AjustarTx(tx *gorm.DB, id uint, campo string, delta decimal.Decimal) error {
	deltaCantidad := decimal.Zero
	switch campo {
	case CampoCantidad:
		deltaCantidad = delta
	case CampoReservado:
	default:
		return fmt.Errorf("campo de stock invalido: %q", campo)
	}
	// Las expresiones del SET leen los valores previos a la actualización.
	res := tx.Model(&model.Producto{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		campo:        gorm.Expr(campo+" + ?", delta),
		"subtotal":   gorm.Expr("(cantidad + ?) * precio_compra", deltaCantidad),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// paginar normaliza page/limit con los mismos topes en todos los listados.
func paginar(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return page, limit
}
