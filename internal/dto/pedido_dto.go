package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurantepos/internal/items"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearPedidoRequest acepta items con claves en español o inglés.
type CrearPedidoRequest struct {
	TipoPedido       string          `json:"tipo_pedido"       validate:"required,oneof=mesa delivery llevar"`
	MesaID           *uint           `json:"mesa_id"           validate:"required_if=TipoPedido mesa"`
	CodigoDelivery   string          `json:"codigo_delivery"   validate:"omitempty,max=10"`
	NombreCliente    string          `json:"nombre_cliente"    validate:"omitempty,max=200"`
	TelefonoCliente  string          `json:"telefono_cliente"  validate:"omitempty,max=20"`
	DireccionEntrega string          `json:"direccion_entrega"`
	Items            items.List      `json:"items"             validate:"required,min=1"`
	Envio            decimal.Decimal `json:"envio"`
	Notas            string          `json:"notas"`
}

// AgregarItemRequest agrega un plato del menú a un pedido existente.
type AgregarItemRequest struct {
	PlatoID  uint            `json:"plato_id" validate:"required"`
	Cantidad decimal.Decimal `json:"cantidad"`
	Notas    string          `json:"notas"`
}

type CambiarEstadoRequest struct {
	Estado       string               `json:"estado"        validate:"required,oneof=pendiente confirmado preparacion listo entregado cancelado"`
	ItemsAgregar []AgregarItemRequest `json:"items_agregar" validate:"omitempty,dive"`
	Motivo       string               `json:"motivo"`
}

// EditarItemsRequest reemplaza la lista de items; los campos de cliente son opcionales.
type EditarItemsRequest struct {
	Items           items.List `json:"items"            validate:"required"`
	NombreCliente   *string    `json:"nombre_cliente"   validate:"omitempty,max=200"`
	TelefonoCliente *string    `json:"telefono_cliente" validate:"omitempty,max=20"`
	Notas           *string    `json:"notas"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AdvertenciaResponse struct {
	Tipo     string `json:"tipo"`
	Mensaje  string `json:"mensaje"`
	Producto string `json:"producto,omitempty"`
}

type PedidoResponse struct {
	ID               uint            `json:"id"`
	CodigoPedido     string          `json:"codigo_pedido"`
	TipoPedido       string          `json:"tipo_pedido"`
	MesaID           *uint           `json:"mesa_id"`
	Mesa             string          `json:"mesa,omitempty"`
	CodigoDelivery   string          `json:"codigo_delivery,omitempty"`
	NombreCliente    string          `json:"nombre_cliente"`
	TelefonoCliente  string          `json:"telefono_cliente"`
	DireccionEntrega string          `json:"direccion_entrega,omitempty"`
	Items            items.List      `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Envio            decimal.Decimal `json:"envio"`
	Total            decimal.Decimal `json:"total"`
	Estado           string          `json:"estado"`
	FechaPedido      time.Time       `json:"fecha_pedido"`
	FechaEntrega     *time.Time      `json:"fecha_entrega"`
	Notas            string          `json:"notas"`
}

// ResultadoPedidoResponse es la respuesta de toda operación que modifica un pedido.
type ResultadoPedidoResponse struct {
	Pedido       PedidoResponse        `json:"pedido"`
	Comanda      string                `json:"comanda,omitempty"`
	Advertencias []AdvertenciaResponse `json:"advertencias"`
}

type PedidoListResponse struct {
	Data       []PedidoResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

type HistorialEstadoResponse struct {
	EstadoAnterior string    `json:"estado_anterior"`
	EstadoNuevo    string    `json:"estado_nuevo"`
	UsuarioID      *string   `json:"usuario_id"`
	Motivo         string    `json:"motivo"`
	FechaCambio    time.Time `json:"fecha_cambio"`
}

type EliminarPedidoResponse struct {
	Eliminado    bool                  `json:"eliminado"`
	Cancelado    bool                  `json:"cancelado"`
	Advertencias []AdvertenciaResponse `json:"advertencias"`
}

type LiberarMesaResponse struct {
	Liberada bool `json:"liberada"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type PedidoFilter struct {
	Estado     string `form:"estado"`
	TipoPedido string `form:"tipo_pedido"`
	MesaID     *uint  `form:"mesa_id"`
	Fecha      string `form:"fecha"` // YYYY-MM-DD
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=500"`
}
