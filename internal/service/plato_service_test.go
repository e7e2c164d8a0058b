package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"
)

func TestPlato_CodigosCorrelativos(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	ctx := context.Background()

	a, err := e.platos.Crear(ctx, dto.CrearPlatoRequest{Nombre: "Milanesa", Categoria: "Principal", Precio: dec("5000")})
	require.NoError(t, err)
	b, err := e.platos.Crear(ctx, dto.CrearPlatoRequest{Nombre: "Flan", Categoria: "postre", Precio: dec("2500")})
	require.NoError(t, err)

	assert.Equal(t, "COD001", a.Codigo)
	assert.Equal(t, "COD002", b.Codigo)
	assert.Equal(t, "principal", a.Categoria)
	assert.True(t, a.Activo)

	lista, err := e.platos.Listar(ctx, true)
	require.NoError(t, err)
	assert.Len(t, lista, 2)
}

func TestPlato_SaltaCodigosCargadosAMano(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	require.NoError(t, e.db.Create(&model.Plato{Codigo: "COD001", Nombre: "Heredado", Categoria: "principal", Precio: dec("1"), Activo: true}).Error)

	p, err := e.platos.Crear(context.Background(), dto.CrearPlatoRequest{Nombre: "Nuevo", Categoria: "entrada", Precio: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, "COD002", p.Codigo)
}

func TestPlato_Validaciones(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	casos := map[string]dto.CrearPlatoRequest{
		"categoria":       {Nombre: "Sopa", Categoria: "sopas", Precio: dec("10")},
		"nombre vacío":    {Nombre: "   ", Categoria: "entrada", Precio: dec("10")},
		"precio negativo": {Nombre: "Sopa", Categoria: "entrada", Precio: dec("-10")},
	}
	for nombre, req := range casos {
		t.Run(nombre, func(t *testing.T) {
			_, err := e.platos.Crear(context.Background(), req)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}

	_, err := e.platos.Obtener(context.Background(), 42)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCodigos(t *testing.T) {
	n, ok := secuenciaDeCodigo("ORD-20250101-0042")
	assert.True(t, ok)
	assert.EqualValues(t, 42, n)

	_, ok = secuenciaDeCodigo("ORD-")
	assert.False(t, ok)

	assert.Equal(t, "COD007", codigoPlato(7))
	assert.Equal(t, "GEN", prefijoCategoria(""))
	assert.Equal(t, "OT", prefijoCategoria("ot"))
	assert.Equal(t, "BEB", prefijoCategoria("bebida"))
}
