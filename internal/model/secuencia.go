package model

// Secuencia es el contador atómico de códigos generados, por prefijo y período.
// Periodo es "" para contadores globales (platos).
type Secuencia struct {
	Prefijo string `gorm:"primaryKey;size:10"`
	Periodo string `gorm:"primaryKey;size:10"`
	Ultimo  int64  `gorm:"not null;default:0"`
}

func (Secuencia) TableName() string { return "secuencias" }
