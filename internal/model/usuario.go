package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles del sistema.
const (
	RolAdministrador = "administrador"
	RolCajero        = "cajero"
	RolMesero        = "mesero"
	RolCocina        = "cocina"
)

var Roles = []string{RolAdministrador, RolCajero, RolMesero, RolCocina}

// Usuario stores system users with role-based access.
// Its ID is the actor recorded in every audit column.
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Rol          string `gorm:"type:varchar(20);not null"`
	Activo       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *Usuario) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
