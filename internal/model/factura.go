package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurantepos/internal/items"
)

// Estados de Factura.
const (
	FacturaPendiente            = "pendiente"
	FacturaPagada               = "pagada"
	FacturaAnulada              = "anulada"
	FacturaParcialmenteDevuelta = "parcialmente_devuelta"
	FacturaTotalmenteDevuelta   = "totalmente_devuelta"
)

// Métodos de pago aceptados.
var MetodosPago = []string{"efectivo", "tarjeta", "transferencia"}

// Factura toma una copia de los datos del pedido al momento de facturar.
type Factura struct {
	ID               uint      `gorm:"primaryKey"`
	NumeroFactura    string    `gorm:"uniqueIndex;size:30;not null"`
	FechaFactura     time.Time `gorm:"not null"`
	PedidoID         uint      `gorm:"not null;index"`
	TipoPedido       string    `gorm:"size:20;not null"`
	NumeroMesaCodigo string    `gorm:"size:20"`
	NombreCliente    string    `gorm:"size:200"`
	TelefonoCliente  string    `gorm:"size:20"`
	DireccionEntrega string
	Email            string          `gorm:"size:200"`
	MetodoPago       string          `gorm:"size:20;not null;default:'efectivo'"`
	Estado           string          `gorm:"size:25;not null;default:'pendiente';index"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IVA              decimal.Decimal `gorm:"column:iva;type:decimal(10,2);not null;default:0"`
	Envio            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Descuento        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Items            items.List      `gorm:"type:text;not null"`
	Notas            string
	Impresa          bool `gorm:"not null;default:false"`
	FechaImpresion   *time.Time
	MotivoAnulacion  string
	FechaDevolucion  *time.Time
	PDFPath          string
	CreadoPorID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Pedido       *Pedido      `gorm:"foreignKey:PedidoID"`
	Devoluciones []Devolucion `gorm:"foreignKey:FacturaID"`
}

// AdmiteDevolucion reports whether the invoice state allows a return.
func (f *Factura) AdmiteDevolucion() bool {
	return f.Estado == FacturaPagada || f.Estado == FacturaParcialmenteDevuelta
}

// Tipos de devolución.
const (
	DevolucionTotal   = "total"
	DevolucionParcial = "parcial"
	DevolucionCambio  = "cambio"
)

// Devolucion registra lo devuelto de una factura. Es inmutable.
type Devolucion struct {
	ID                 uint            `gorm:"primaryKey"`
	FacturaID          uint            `gorm:"not null;index"`
	TipoDevolucion     string          `gorm:"size:10;not null"`
	ProductosDevueltos items.List      `gorm:"type:text;not null"`
	MontoDevuelto      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Motivo             string
	ProcesadoPorID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt          time.Time
}

func (Devolucion) TableName() string { return "devoluciones" }
