package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
)

func TestDebeLiberarRecursos(t *testing.T) {
	casos := []struct {
		estado      string
		tienePagada bool
		want        bool
	}{
		{model.PedidoPendiente, false, false},
		{model.PedidoEntregado, false, false},
		{model.PedidoEntregado, true, true},
		{model.PedidoCompletado, true, true},
		{model.PedidoCompletado, false, false},
		{model.PedidoCancelado, false, true},
	}
	for _, c := range casos {
		assert.Equal(t, c.want, model.DebeLiberarRecursos(c.estado, c.tienePagada), "%s/%v", c.estado, c.tienePagada)
	}
}

func TestRecursos_InicializarEsIdempotente(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	require.NoError(t, e.recursos.Inicializar(context.Background()))

	mesas, err := e.recursos.ListarMesas(context.Background())
	require.NoError(t, err)
	assert.Len(t, mesas, 10)

	delivery, err := e.recursos.ListarCodigos(context.Background(), model.TipoPedidoDelivery)
	require.NoError(t, err)
	assert.Len(t, delivery, 5)
	llevar, err := e.recursos.ListarCodigos(context.Background(), model.TipoPedidoLlevar)
	require.NoError(t, err)
	assert.Len(t, llevar, 5)
	assert.Equal(t, "L001", llevar[0].Codigo)
}

func TestRecursos_LiberarDosVecesNoFalla(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	mesa := e.mesa(t, 3)

	for i := 0; i < 2; i++ {
		err := e.db.Transaction(func(tx *gorm.DB) error {
			advs, err := e.recursos.LiberarMesaTx(tx, mesa.ID)
			assert.Empty(t, advs)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, model.MesaDisponible, e.mesa(t, 3).Estado)
	}

	for i := 0; i < 2; i++ {
		err := e.db.Transaction(func(tx *gorm.DB) error {
			_, err := e.recursos.LiberarCodigoTx(tx, model.TipoPedidoDelivery, "D001")
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, model.CodigoDisponible, e.codigo(t, model.TipoPedidoDelivery, "D001").Estado)
}

func TestRecursos_LiberarMesaInexistenteAdvierte(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	err := e.db.Transaction(func(tx *gorm.DB) error {
		advs, err := e.recursos.LiberarMesaTx(tx, 999)
		assert.Equal(t, []string{AdvRecursoNoConfigurado}, tipos(advs))
		return err
	})
	require.NoError(t, err)
}

func TestRecursos_OcuparMismaMesaDelMismoPedidoEsIdempotente(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	mesa := e.mesa(t, 4)
	res := e.pedidoMesa(t, mesa.ID, plato("Milanesa", "1", "5000"))

	err := e.db.Transaction(func(tx *gorm.DB) error {
		_, err := e.recursos.OcuparMesaTx(tx, mesa.ID, res.Pedido.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, model.MesaOcupada, e.mesa(t, 4).Estado)
}

func TestRecursos_CodigoEnUsoEsConflicto(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	crear := func(codigo string) error {
		_, err := e.pedidos.Crear(context.Background(), nil, dto.CrearPedidoRequest{
			TipoPedido:     model.TipoPedidoDelivery,
			CodigoDelivery: codigo,
			Items:          items.List{plato("Empanadas", "1", "3000")},
		})
		return err
	}

	for _, codigo := range []string{"D001", "Z999"} {
		require.NoError(t, crear(codigo))
		err := crear(codigo)
		var rc *ResourceConflictError
		require.True(t, errors.As(err, &rc), "%s: esperaba ResourceConflictError, obtuve %v", codigo, err)
		assert.Equal(t, codigo, rc.Recurso)
	}
	assert.Equal(t, model.CodigoOcupado, e.codigo(t, model.TipoPedidoDelivery, "D001").Estado)
}

func TestRecursos_CodigoInactivoEsConflicto(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	cfg := e.codigo(t, model.TipoPedidoLlevar, "L002")
	require.NoError(t, e.db.Model(cfg).Update("estado", model.CodigoInactivo).Error)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		_, err := e.recursos.OcuparCodigoTx(tx, model.TipoPedidoLlevar, "L002", 0)
		return err
	})
	assert.True(t, esConflicto(err))
}

func TestRecursos_ReconciliarCorrigeEstados(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	res := e.pedidoMesa(t, e.mesa(t, 4).ID, plato("Milanesa", "1", "5000"))
	pagado := e.pedidoMesa(t, e.mesa(t, 5).ID, plato("Ravioles", "1", "4000"))
	e.facturar(t, pagado.Pedido.ID, model.FacturaPagada)

	// estados desincronizados a mano
	require.NoError(t, e.db.Model(&model.Mesa{}).Where("id = ?", e.mesa(t, 3).ID).Update("estado", model.MesaOcupada).Error)
	require.NoError(t, e.db.Model(&model.Mesa{}).Where("id = ?", *res.Pedido.MesaID).Update("estado", model.MesaDisponible).Error)
	require.NoError(t, e.db.Model(&model.Mesa{}).Where("id = ?", e.mesa(t, 5).ID).Update("estado", model.MesaOcupada).Error)
	require.NoError(t, e.db.Model(&model.Mesa{}).Where("id = ?", e.mesa(t, 6).ID).Update("estado", model.MesaMantenimiento).Error)

	correcciones, err := e.recursos.Reconciliar(context.Background())
	require.NoError(t, err)
	assert.Len(t, correcciones, 3)

	assert.Equal(t, model.MesaDisponible, e.mesa(t, 3).Estado)
	assert.Equal(t, model.MesaOcupada, e.mesa(t, 4).Estado)
	assert.Equal(t, model.MesaDisponible, e.mesa(t, 5).Estado)
	assert.Equal(t, model.MesaMantenimiento, e.mesa(t, 6).Estado)

	correcciones, err = e.recursos.Reconciliar(context.Background())
	require.NoError(t, err)
	assert.Empty(t, correcciones)
}

func TestPedido_LiberarMesaSiCorresponde(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	res := e.pedidoMesa(t, e.mesa(t, 2).ID, plato("Milanesa", "1", "5000"))

	liberada, _, err := e.pedidos.LiberarMesaSiCorresponde(context.Background(), res.Pedido.ID)
	require.NoError(t, err)
	assert.False(t, liberada)
	assert.Equal(t, model.MesaOcupada, e.mesa(t, 2).Estado)

	require.NoError(t, e.db.Model(&model.Pedido{}).Where("id = ?", res.Pedido.ID).Update("estado", model.PedidoCancelado).Error)
	liberada, _, err = e.pedidos.LiberarMesaSiCorresponde(context.Background(), res.Pedido.ID)
	require.NoError(t, err)
	assert.True(t, liberada)
	assert.Equal(t, model.MesaDisponible, e.mesa(t, 2).Estado)
}
