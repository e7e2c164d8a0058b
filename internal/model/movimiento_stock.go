package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de movimiento, uno por operación del libro de stock.
const (
	MovimientoReserva      = "reserva"
	MovimientoLiberacion   = "liberacion"
	MovimientoConsumo      = "consumo"
	MovimientoReposicion   = "reposicion"
	MovimientoRetiro       = "retiro"
	MovimientoSalida       = "salida"
	MovimientoReabasto     = "reabastecimiento"
	MovimientoAjusteManual = "ajuste_manual"
)

// MovimientoStock registra cada cambio aplicado a un producto.
// Campo indica la columna afectada: "cantidad" o "reservado".
type MovimientoStock struct {
	ID            uint            `gorm:"primaryKey"`
	ProductoID    uint            `gorm:"not null;index"`
	Tipo          string          `gorm:"size:30;not null"`
	Campo         string          `gorm:"size:12;not null;default:'cantidad'"`
	Cantidad      decimal.Decimal `gorm:"type:decimal(12,3);not null"` // positivo = entrada, negativo = salida
	StockAnterior decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	StockNuevo    decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Motivo        string
	PedidoID      *uint      `gorm:"index"`
	FacturaID     *uint      `gorm:"index"`
	UsuarioID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
