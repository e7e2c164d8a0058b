package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoriasPlato enumera las categorías del menú.
var CategoriasPlato = []string{"entrada", "principal", "postre", "bebida", "rapida", "especial"}

// Plato es un item del menú. No lleva stock; su código es COD### secuencial.
type Plato struct {
	ID        uint            `gorm:"primaryKey"`
	Codigo    string          `gorm:"uniqueIndex;size:10;not null"`
	Nombre    string          `gorm:"not null"`
	Categoria string          `gorm:"size:50;not null"`
	Precio    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Activo    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
}
