package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Categorías de inventario. Solo las bebidas siguen el ciclo de pedidos y facturas.
const (
	CategoriaBebida  = "bebida"
	CategoriaPostre  = "postre"
	CategoriaCarne   = "carne"
	CategoriaVerdura = "verdura"
	CategoriaLacteo  = "lacteo"
	CategoriaOtro    = "otro"
)

// CategoriasProducto enumera los valores válidos de Producto.Categoria.
var CategoriasProducto = []string{
	CategoriaBebida, CategoriaPostre, CategoriaCarne, CategoriaVerdura, CategoriaLacteo, CategoriaOtro,
}

// Producto es un item de inventario. Cantidad puede quedar negativa: los flujos
// de venta no la bloquean y el servicio lo reporta como advertencia.
type Producto struct {
	ID           uint            `gorm:"primaryKey"`
	Codigo       string          `gorm:"uniqueIndex;size:40;not null"`
	Nombre       string          `gorm:"index;not null"`
	Categoria    string          `gorm:"size:20;not null;default:'otro'"`
	Cantidad     decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	Reservado    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	PrecioCompra decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// Subtotal = Cantidad * PrecioCompra, recalculado en cada guardado y en cada ajuste atómico.
	Subtotal     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	UnidadMedida string          `gorm:"size:10;not null;default:'unid'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Producto) EsBebida() bool {
	return strings.EqualFold(p.Categoria, CategoriaBebida)
}

// Disponible es lo que puede venderse sin contar lo reservado.
func (p *Producto) Disponible() decimal.Decimal {
	return p.Cantidad.Sub(p.Reservado)
}

// EstadoStock clasifica la cantidad en alto / medio / bajo.
func (p *Producto) EstadoStock() string {
	switch {
	case p.Cantidad.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return "alto"
	case p.Cantidad.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return "medio"
	default:
		return "bajo"
	}
}

// UnidadPorCategoria devuelve la unidad de medida por defecto de una categoría.
func UnidadPorCategoria(categoria string) string {
	switch strings.ToLower(categoria) {
	case CategoriaCarne, CategoriaVerdura:
		return "kg"
	case CategoriaLacteo, CategoriaBebida:
		return "lt"
	default:
		return "unid"
	}
}

func (p *Producto) BeforeSave(_ *gorm.DB) error {
	p.Categoria = strings.ToLower(strings.TrimSpace(p.Categoria))
	if p.Categoria == "" {
		p.Categoria = CategoriaOtro
	}
	if p.UnidadMedida == "" {
		p.UnidadMedida = UnidadPorCategoria(p.Categoria)
	}
	p.Subtotal = p.Cantidad.Mul(p.PrecioCompra)
	return nil
}
