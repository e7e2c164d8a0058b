package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurantepos/internal/items"
)

// Tipos de pedido.
const (
	TipoPedidoMesa     = "mesa"
	TipoPedidoDelivery = "delivery"
	TipoPedidoLlevar   = "llevar"
)

// Estados de Pedido.
const (
	PedidoPendiente   = "pendiente"
	PedidoConfirmado  = "confirmado"
	PedidoPreparacion = "preparacion"
	PedidoListo       = "listo"
	PedidoEntregado   = "entregado"
	PedidoCompletado  = "completado"
	PedidoCancelado   = "cancelado"
)

// EstadosPedidoActivos son los estados en los que un pedido ocupa su mesa o código.
var EstadosPedidoActivos = []string{
	PedidoPendiente, PedidoConfirmado, PedidoPreparacion, PedidoListo, PedidoEntregado,
}

// PedidoActivo reports whether estado keeps resources occupied.
func PedidoActivo(estado string) bool {
	for _, e := range EstadosPedidoActivos {
		if e == estado {
			return true
		}
	}
	return false
}

// Pedido es el agregado de una orden. Items es una copia puntual de lo pedido.
type Pedido struct {
	ID               uint   `gorm:"primaryKey"`
	CodigoPedido     string `gorm:"uniqueIndex;size:30;not null"`
	TipoPedido       string `gorm:"size:20;not null"`
	MesaID           *uint  `gorm:"index"`
	CodigoDelivery   string `gorm:"size:10;index"`
	NombreCliente    string `gorm:"size:200"`
	TelefonoCliente  string `gorm:"size:20"`
	DireccionEntrega string
	Items            items.List      `gorm:"type:text;not null"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Envio            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Estado           string          `gorm:"size:20;not null;default:'pendiente';index"`
	FechaPedido      time.Time       `gorm:"not null"`
	FechaEntrega     *time.Time
	Notas            string
	CreadoPorID      *uuid.UUID `gorm:"type:uuid"`
	ActualizadoPorID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Mesa *Mesa `gorm:"foreignKey:MesaID"`
}

// Activo reports whether the order still holds its table or code.
func (p *Pedido) Activo() bool { return PedidoActivo(p.Estado) }

// DebeLiberarRecursos es la regla única para decidir si la mesa o el código de
// un pedido deben quedar libres: hay una factura pagada o el pedido se canceló.
func DebeLiberarRecursos(estado string, tienePagada bool) bool {
	return tienePagada || estado == PedidoCancelado
}

// MesaDebeEstarOcupada es el complemento de DebeLiberarRecursos para pedidos activos.
func (p *Pedido) MesaDebeEstarOcupada(tienePagada bool) bool {
	return p.Activo() && !tienePagada
}

// RecalcularTotales fija Subtotal desde Items y Total = Subtotal + Envio.
func (p *Pedido) RecalcularTotales() {
	p.Subtotal = p.Items.Subtotal()
	p.Total = p.Subtotal.Add(p.Envio)
}

// DetalleItemPedido desnormaliza cada línea agregada a un pedido. Solo se insertan.
type DetalleItemPedido struct {
	ID             uint            `gorm:"primaryKey"`
	PedidoID       uint            `gorm:"not null;index"`
	ItemID         string          `gorm:"size:40"`
	IDPlato        *uint           // id numérico extraído del item, si lo hay
	NombrePlato    string          `gorm:"size:200;not null"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SubtotalItem   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TipoItem       string          `gorm:"size:20"`
	Notas          string
	CreatedAt      time.Time
}

func (DetalleItemPedido) TableName() string { return "detalle_items_pedido" }

// HistorialEstadoPedido registra cada cambio de estado. Solo se insertan.
type HistorialEstadoPedido struct {
	ID             uint       `gorm:"primaryKey"`
	PedidoID       uint       `gorm:"not null;index"`
	EstadoAnterior string     `gorm:"size:20"`
	EstadoNuevo    string     `gorm:"size:20;not null"`
	UsuarioID      *uuid.UUID `gorm:"type:uuid"`
	Motivo         string
	FechaCambio    time.Time `gorm:"not null"`
}

func (HistorialEstadoPedido) TableName() string { return "historial_estados_pedido" }
