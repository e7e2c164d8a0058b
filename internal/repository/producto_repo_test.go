package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/infra"
	"restaurantepos/internal/model"
)

func nuevaDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func TestContiene(t *testing.T) {
	assert.Equal(t, "%agua%", contiene("agua"))
	assert.Equal(t, `%a\_c%`, contiene("a_c"))
	assert.Equal(t, `%100\%%`, contiene("100%"))
	assert.Equal(t, `%c:\\tmp%`, contiene(`c:\tmp`))
}

func TestBuscarTx_ComodinesLiterales(t *testing.T) {
	db := nuevaDB(t)
	repo := NewProductoRepository(db)
	for i, nombre := range []string{"AguaXCon Gas", "Agua_Con Gas", "Jugo 100% Naranja", "Jugo 1000 Naranja"} {
		require.NoError(t, repo.CreateTx(db, &model.Producto{
			Codigo:    fmt.Sprintf("PROD-BEB-%03d", i+1),
			Nombre:    nombre,
			Categoria: model.CategoriaBebida,
			Cantidad:  decimal.NewFromInt(5),
		}))
	}

	p, err := repo.BuscarTx(db, "a_c", NombreContiene)
	require.NoError(t, err)
	assert.Equal(t, "Agua_Con Gas", p.Nombre)

	p, err = repo.BuscarTx(db, "100%", NombreContiene)
	require.NoError(t, err)
	assert.Equal(t, "Jugo 100% Naranja", p.Nombre)

	_, err = repo.BuscarTx(db, "x_y", NombreContiene)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	lista, total, err := repo.List(context.Background(), dto.ProductoFilter{Texto: "_", Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, lista, 1)
	assert.Equal(t, "Agua_Con Gas", lista[0].Nombre)
}
