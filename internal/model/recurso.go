package model

import (
	"fmt"
	"strings"
	"time"
)

// Estados de Mesa.
const (
	MesaDisponible    = "disponible"
	MesaOcupada       = "ocupada"
	MesaReservada     = "reservada"
	MesaMantenimiento = "mantenimiento"
)

// Estados de DeliveryConfig.
const (
	CodigoDisponible = "disponible"
	CodigoOcupado    = "ocupado"
	CodigoInactivo   = "inactivo"
)

// Mesa es una de las mesas fijas del salón. Estado se mantiene en sincronía con
// los pedidos activos únicamente desde RecursoService.
type Mesa struct {
	ID        uint   `gorm:"primaryKey"`
	Numero    string `gorm:"uniqueIndex;size:20;not null"` // "mesa 01".."mesa 10"
	Capacidad int    `gorm:"not null;default:4"`
	Estado    string `gorm:"size:20;not null;default:'disponible'"`
	Ubicacion string `gorm:"size:100"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NumeroDisplay devuelve "01" para "mesa 01".
func (m *Mesa) NumeroDisplay() string {
	return strings.TrimPrefix(m.Numero, "mesa ")
}

// NumeroMesa arma la etiqueta persistida de la mesa n.
func NumeroMesa(n int) string { return fmt.Sprintf("mesa %02d", n) }

// DeliveryConfig es un código del pool de delivery o para llevar.
type DeliveryConfig struct {
	ID          uint   `gorm:"primaryKey"`
	Tipo        string `gorm:"size:20;not null;uniqueIndex:idx_delivery_tipo_codigo"`
	Codigo      string `gorm:"size:10;not null;uniqueIndex:idx_delivery_tipo_codigo"`
	Estado      string `gorm:"size:20;not null;default:'disponible'"`
	Descripcion string `gorm:"size:200"`
	UpdatedAt   time.Time
}

// TableName keeps the singular name used by reports.
func (DeliveryConfig) TableName() string { return "delivery_config" }
