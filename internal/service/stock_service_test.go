package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
)

func TestParsePolitica(t *testing.T) {
	p, err := ParsePolitica("")
	require.NoError(t, err)
	assert.Equal(t, PoliticaDobleDescuento, p)

	p, err = ParsePolitica(" RESERVA ")
	require.NoError(t, err)
	assert.Equal(t, PoliticaReserva, p)

	_, err = ParsePolitica("fifo")
	assert.Error(t, err)
}

// ── Resolución ──────────────────────────────────────────────────────────────

func TestStock_ResolverOrdenDeBusqueda(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	fanta := e.producto(t, "Fanta Naranja", model.CategoriaBebida, "4")
	fantaLight := e.producto(t, "Fanta", model.CategoriaBebida, "4")
	ctx := context.Background()

	p, err := e.stock.Resolver(ctx, items.IDProducto(fanta.ID))
	require.NoError(t, err)
	assert.Equal(t, fanta.ID, p.ID)

	p, err = e.stock.Resolver(ctx, items.Nombre("fanta"))
	require.NoError(t, err)
	assert.Equal(t, fantaLight.ID, p.ID, "el nombre exacto gana sobre el parcial")

	p, err = e.stock.Resolver(ctx, items.Codigo(fanta.Codigo))
	require.NoError(t, err)
	assert.Equal(t, fanta.ID, p.ID)

	p, err = e.stock.Resolver(ctx, items.Nombre("naran"))
	require.NoError(t, err)
	assert.Equal(t, fanta.ID, p.ID)

	_, err = e.stock.Resolver(ctx, items.Nombre("pepsi"))
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

// ── Ajustes ─────────────────────────────────────────────────────────────────

func TestStock_AjustarAdvierteNiveles(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	coca := e.producto(t, "Coca Cola", model.CategoriaBebida, "12")
	ctx := context.Background()
	id := items.IDProducto(coca.ID)

	res, err := e.stock.Ajustar(ctx, id, dec("-3"), model.CategoriaBebida, Referencia{})
	require.NoError(t, err)
	assert.True(t, res.Aplicado)
	assert.Equal(t, []string{AdvBajoStock}, tipos(res.Advertencias))

	res, err = e.stock.Ajustar(ctx, id, dec("-9"), "", Referencia{})
	require.NoError(t, err)
	assert.Equal(t, []string{AdvStockAgotado}, tipos(res.Advertencias))

	res, err = e.stock.Ajustar(ctx, id, dec("-1"), "", Referencia{})
	require.NoError(t, err)
	assert.Equal(t, []string{AdvStockNegativo}, tipos(res.Advertencias))
	e.requireCantidad(t, coca.ID, "-1")

	res, err = e.stock.Ajustar(ctx, id, dec("5"), "", Referencia{})
	require.NoError(t, err)
	assert.Empty(t, res.Advertencias)
	e.requireCantidad(t, coca.ID, "4")

	movs, total, err := e.stock.ListarMovimientos(ctx, dto.MovimientoFilter{ProductoID: &coca.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, movs, 4)
}

func TestStock_AjustarFallosBlandos(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	carne := e.producto(t, "Lomo", model.CategoriaCarne, "10")
	ctx := context.Background()

	res, err := e.stock.Ajustar(ctx, items.Nombre("inexistente"), dec("-1"), "", Referencia{})
	require.NoError(t, err)
	assert.False(t, res.Aplicado)
	assert.Equal(t, []string{AdvProductoNoEncontrado}, tipos(res.Advertencias))

	res, err = e.stock.Ajustar(ctx, items.IDProducto(carne.ID), dec("-1"), model.CategoriaBebida, Referencia{})
	require.NoError(t, err)
	assert.False(t, res.Aplicado)
	assert.Equal(t, []string{AdvCategoriaDistinta}, tipos(res.Advertencias))
	e.requireCantidad(t, carne.ID, "10")
}

func TestStock_AplicarIgnoraPlatosYAdvierteFaltantes(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	coca := e.producto(t, "Coca Cola", model.CategoriaBebida, "10")
	l := items.List{
		bebida(coca, "2", "1500"),
		plato("Milanesa", "1", "5000"),
		{Nombre: "Sidra", Cantidad: dec("1"), Categoria: items.CategoriaBebida},
	}

	var advs []Advertencia
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var err error
		advs, err = e.stock.AplicarTx(tx, Consumir, l, Referencia{Motivo: "test"})
		return err
	})
	require.NoError(t, err)
	e.requireCantidad(t, coca.ID, "8")
	assert.Equal(t, []string{AdvProductoNoEncontrado}, tipos(advs))
}

func TestStock_VerificarMultiplesSumaLineas(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	coca := e.producto(t, "Coca Cola", model.CategoriaBebida, "3")

	resp, err := e.stock.VerificarMultiples(context.Background(), items.List{
		bebida(coca, "2", "1500"), bebida(coca, "2", "1500"),
	})
	require.NoError(t, err)
	assert.False(t, resp.Disponible)
	require.Len(t, resp.ProductosSinStock, 1)
	assert.True(t, resp.ProductosSinStock[0].CantidadSolicitada.Equal(dec("4")))
	assert.True(t, resp.ProductosSinStock[0].StockActual.Equal(dec("3")))

	resp, err = e.stock.VerificarMultiples(context.Background(), items.List{bebida(coca, "3", "1500")})
	require.NoError(t, err)
	assert.True(t, resp.Disponible)
	assert.Empty(t, resp.ProductosSinStock)
}

// ── Política de reserva ─────────────────────────────────────────────────────

func TestStock_ReservaDescuentaUnaSolaVez(t *testing.T) {
	e := nuevoEntorno(t, PoliticaReserva)
	coca := e.producto(t, "Coca Cola", model.CategoriaBebida, "5")

	res := e.pedidoMesa(t, e.mesa(t, 1).ID, bebida(coca, "2", "1500"))
	p := e.stockDe(t, coca.ID)
	assert.True(t, p.Cantidad.Equal(dec("5")))
	assert.True(t, p.Reservado.Equal(dec("2")))

	_, err := e.pedidos.Crear(context.Background(), nil, dto.CrearPedidoRequest{
		TipoPedido: model.TipoPedidoMesa, MesaID: &e.mesa(t, 2).ID,
		Items: items.List{bebida(coca, "4", "1500")},
	})
	var ise *InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.True(t, ise.Faltantes[0].Disponible.Equal(dec("3")))

	e.facturar(t, res.Pedido.ID, model.FacturaPagada)
	p = e.stockDe(t, coca.ID)
	assert.True(t, p.Cantidad.Equal(dec("3")))
	assert.True(t, p.Reservado.IsZero())
}

func TestStock_ReservaCancelarLiberaReserva(t *testing.T) {
	e := nuevoEntorno(t, PoliticaReserva)
	coca := e.producto(t, "Coca Cola", model.CategoriaBebida, "5")

	res := e.pedidoMesa(t, e.mesa(t, 1).ID, bebida(coca, "2", "1500"))
	e.avanzar(t, res.Pedido.ID, model.PedidoCancelado)

	p := e.stockDe(t, coca.ID)
	assert.True(t, p.Cantidad.Equal(dec("5")))
	assert.True(t, p.Reservado.IsZero())
}

// ── Inventario ──────────────────────────────────────────────────────────────

func TestStock_CrearProductoGeneraCodigo(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)

	p, err := e.stock.CrearProducto(context.Background(), dto.CrearProductoRequest{
		Nombre: " Agua Tónica ", Categoria: "bebida", Cantidad: dec("24"), PrecioCompra: dec("300"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Codigo, "PROD-BEB-"))
	assert.Equal(t, "Agua Tónica", p.Nombre)
	assert.Equal(t, "lt", p.UnidadMedida)
	assert.True(t, p.Subtotal.Equal(dec("7200")))

	_, err = e.stock.CrearProducto(context.Background(), dto.CrearProductoRequest{
		Nombre: "Hielo", Categoria: "otro", Cantidad: dec("-1"),
	})
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestStock_SalidaYReabastecimiento(t *testing.T) {
	e := nuevoEntorno(t, PoliticaDobleDescuento)
	lomo := e.producto(t, "Lomo", model.CategoriaCarne, "20")
	coca := e.producto(t, "Coca Cola", model.CategoriaBebida, "20")
	ctx := context.Background()

	res, err := e.stock.RegistrarSalida(ctx, nil, dto.RegistrarSalidaRequest{
		ProductoID: lomo.ID, Cantidad: dec("15"), Motivo: "consumo", Responsable: "cocina",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{AdvBajoStock}, tipos(res.Advertencias))
	e.requireCantidad(t, lomo.ID, "5")

	_, err = e.stock.RegistrarSalida(ctx, nil, dto.RegistrarSalidaRequest{
		ProductoID: lomo.ID, Cantidad: dec("6"), Motivo: "consumo", Responsable: "cocina",
	})
	var ise *InsufficientStockError
	require.True(t, errors.As(err, &ise))
	e.requireCantidad(t, lomo.ID, "5")

	_, err = e.stock.RegistrarSalida(ctx, nil, dto.RegistrarSalidaRequest{
		ProductoID: coca.ID, Cantidad: dec("1"), Motivo: "otro", Responsable: "caja",
	})
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = e.stock.Reabastecer(ctx, nil, dto.ReabastecerRequest{ProductoID: lomo.ID, Cantidad: dec("30")})
	require.NoError(t, err)
	e.requireCantidad(t, lomo.ID, "35")

	_, err = e.stock.Reabastecer(ctx, nil, dto.ReabastecerRequest{ProductoID: lomo.ID, Cantidad: dec("0")})
	assert.True(t, errors.As(err, &ve))

	alertas, err := e.stock.Alertas(ctx)
	require.NoError(t, err)
	assert.Empty(t, alertas)
}
