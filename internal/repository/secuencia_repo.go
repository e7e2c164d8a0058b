package repository

import (
	"restaurantepos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SecuenciaRepository entrega números correlativos por (prefijo, periodo).
type SecuenciaRepository interface {
	// SiguienteTx incrementa el contador y devuelve el nuevo valor. El upsert
	// toma el lock de la fila hasta el fin de la transacción, así dos
	// transacciones concurrentes nunca leen el mismo número.
	SiguienteTx(tx *gorm.DB, prefijo, periodo string) (int64, error)
	// AjustarMinimoTx sube el contador hasta al menos minimo (datos heredados).
	AjustarMinimoTx(tx *gorm.DB, prefijo, periodo string, minimo int64) error
}

type secuenciaRepo struct{}

func NewSecuenciaRepository() SecuenciaRepository { return &secuenciaRepo{} }

func (r *secuenciaRepo) SiguienteTx(tx *gorm.DB, prefijo, periodo string) (int64, error) {
	s := model.Secuencia{Prefijo: prefijo, Periodo: periodo, Ultimo: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefijo"}, {Name: "periodo"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"ultimo": gorm.Expr("secuencias.ultimo + 1")}),
	}).Create(&s).Error
	if err != nil {
		return 0, err
	}
	var actual model.Secuencia
	if err := tx.Where("prefijo = ? AND periodo = ?", prefijo, periodo).First(&actual).Error; err != nil {
		return 0, err
	}
	return actual.Ultimo, nil
}

func (r *secuenciaRepo) AjustarMinimoTx(tx *gorm.DB, prefijo, periodo string, minimo int64) error {
	base := model.Secuencia{Prefijo: prefijo, Periodo: periodo}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&base).Error; err != nil {
		return err
	}
	return tx.Model(&model.Secuencia{}).
		Where("prefijo = ? AND periodo = ? AND ultimo < ?", prefijo, periodo, minimo).
		Update("ultimo", minimo).Error
}
