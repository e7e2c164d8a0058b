package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurantepos/internal/items"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Nombre       string          `json:"nombre"        validate:"required,min=2,max=200"`
	Categoria    string          `json:"categoria"     validate:"required,oneof=bebida postre carne verdura lacteo otro"`
	Cantidad     decimal.Decimal `json:"cantidad"`
	PrecioCompra decimal.Decimal `json:"precio_compra"`
	UnidadMedida string          `json:"unidad_medida" validate:"omitempty,max=10"`
}

// RegistrarSalidaRequest retira stock de un producto que no es bebida.
type RegistrarSalidaRequest struct {
	ProductoID    uint            `json:"producto_id"   validate:"required"`
	Cantidad      decimal.Decimal `json:"cantidad"      validate:"required"`
	Motivo        string          `json:"motivo"        validate:"required,oneof=venta dano ajuste consumo otro"`
	Responsable   string          `json:"responsable"   validate:"required,max=200"`
	Observaciones string          `json:"observaciones"`
}

type ReabastecerRequest struct {
	ProductoID uint            `json:"producto_id" validate:"required"`
	Cantidad   decimal.Decimal `json:"cantidad"    validate:"required"`
	Motivo     string          `json:"motivo"`
}

// VerificarStockRequest recibe items en cualquiera de los formatos aceptados.
type VerificarStockRequest struct {
	Items items.List `json:"items" validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID           uint            `json:"id"`
	Codigo       string          `json:"codigo"`
	Nombre       string          `json:"nombre"`
	Categoria    string          `json:"categoria"`
	Cantidad     decimal.Decimal `json:"cantidad"`
	Reservado    decimal.Decimal `json:"reservado"`
	PrecioCompra decimal.Decimal `json:"precio_compra"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	UnidadMedida string          `json:"unidad_medida"`
	EstadoStock  string          `json:"estado_stock"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

type MovimientoStockResponse struct {
	ID            uint            `json:"id"`
	ProductoID    uint            `json:"producto_id"`
	Producto      string          `json:"producto"`
	Tipo          string          `json:"tipo"`
	Campo         string          `json:"campo"`
	Cantidad      decimal.Decimal `json:"cantidad"`
	StockAnterior decimal.Decimal `json:"stock_anterior"`
	StockNuevo    decimal.Decimal `json:"stock_nuevo"`
	Motivo        string          `json:"motivo"`
	PedidoID      *uint           `json:"pedido_id"`
	FacturaID     *uint           `json:"factura_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ProductoSinStock struct {
	ID                 uint            `json:"id"`
	Nombre             string          `json:"nombre"`
	StockActual        decimal.Decimal `json:"stock_actual"`
	CantidadSolicitada decimal.Decimal `json:"cantidad_solicitada"`
	Mensaje            string          `json:"mensaje"`
}

type VerificarStockResponse struct {
	Disponible        bool               `json:"disponible"`
	ProductosSinStock []ProductoSinStock `json:"productos_sin_stock"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Texto     string `form:"q"`
	Categoria string `form:"categoria"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=500"`
}

type MovimientoFilter struct {
	ProductoID *uint  `form:"producto_id"`
	Tipo       string `form:"tipo"`
	Page       int    `form:"page,default=1"    validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}
