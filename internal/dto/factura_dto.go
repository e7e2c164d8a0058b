package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurantepos/internal/items"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearFacturaRequest factura un pedido. Estado "pendiente" difiere el cobro.
type CrearFacturaRequest struct {
	PedidoID   uint             `json:"pedido_id"   validate:"required"`
	MetodoPago string           `json:"metodo_pago" validate:"required,oneof=efectivo tarjeta transferencia"`
	Estado     string           `json:"estado"      validate:"omitempty,oneof=pagada pendiente"`
	Envio      *decimal.Decimal `json:"envio"`
	Descuento  *decimal.Decimal `json:"descuento"`
	Email      string           `json:"email"       validate:"omitempty,email"`
	Notas      string           `json:"notas"`
}

type ProductoDevolucionRequest struct {
	Nombre    string          `json:"nombre"    validate:"required"`
	Cantidad  decimal.Decimal `json:"cantidad"  validate:"required"`
	Categoria string          `json:"categoria"`
}

type DevolucionParcialRequest struct {
	Productos []ProductoDevolucionRequest `json:"productos" validate:"required,min=1,dive"`
	Motivo    string                      `json:"motivo"`
}

type DevolucionTotalRequest struct {
	Motivo string `json:"motivo"`
}

type AnularFacturaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FacturaResponse struct {
	ID               uint            `json:"id"`
	NumeroFactura    string          `json:"numero_factura"`
	FechaFactura     time.Time       `json:"fecha_factura"`
	PedidoID         uint            `json:"pedido_id"`
	TipoPedido       string          `json:"tipo_pedido"`
	NumeroMesaCodigo string          `json:"numero_mesa_codigo"`
	NombreCliente    string          `json:"nombre_cliente"`
	TelefonoCliente  string          `json:"telefono_cliente"`
	DireccionEntrega string          `json:"direccion_entrega,omitempty"`
	MetodoPago       string          `json:"metodo_pago"`
	Estado           string          `json:"estado"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	IVA              decimal.Decimal `json:"iva"`
	Envio            decimal.Decimal `json:"envio"`
	Descuento        decimal.Decimal `json:"descuento"`
	Total            decimal.Decimal `json:"total"`
	Items            items.List      `json:"items"`
	Impresa          bool            `json:"impresa"`
	FechaImpresion   *time.Time      `json:"fecha_impresion"`
	MotivoAnulacion  string          `json:"motivo_anulacion,omitempty"`
	FechaDevolucion  *time.Time      `json:"fecha_devolucion"`
	PDFUrl           *string         `json:"pdf_url"`
}

type ResultadoFacturaResponse struct {
	Factura      FacturaResponse       `json:"factura"`
	Advertencias []AdvertenciaResponse `json:"advertencias"`
}

type DevolucionResponse struct {
	ID                 uint            `json:"id"`
	FacturaID          uint            `json:"factura_id"`
	TipoDevolucion     string          `json:"tipo_devolucion"`
	ProductosDevueltos items.List      `json:"productos_devueltos"`
	MontoDevuelto      decimal.Decimal `json:"monto_devuelto"`
	Motivo             string          `json:"motivo"`
	CreatedAt          time.Time       `json:"created_at"`
}

type ResultadoDevolucionResponse struct {
	Devolucion    DevolucionResponse    `json:"devolucion"`
	EstadoFactura string                `json:"estado_factura"`
	Advertencias  []AdvertenciaResponse `json:"advertencias"`
}

type DisponibleDevolucionResponse struct {
	Nombre         string          `json:"nombre"`
	Codigo         string          `json:"codigo"`
	Categoria      string          `json:"categoria"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Original       decimal.Decimal `json:"cantidad_original"`
	Devuelta       decimal.Decimal `json:"cantidad_devuelta"`
	Disponible     decimal.Decimal `json:"cantidad_disponible"`
}

type FacturaListResponse struct {
	Data       []FacturaResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type FacturaFilter struct {
	Estado   string `form:"estado"`
	PedidoID *uint  `form:"pedido_id"`
	Fecha    string `form:"fecha"` // YYYY-MM-DD
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}
