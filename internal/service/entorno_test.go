package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/infra"
	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
	"restaurantepos/internal/repository"
)

// ── Entorno SQLite en memoria ───────────────────────────────────────────────

type entorno struct {
	db       *gorm.DB
	stock    StockService
	recursos RecursoService
	pedidos  PedidoService
	facturas FacturaService
	platos   PlatoService

	productoRepo repository.ProductoRepository
	recursoRepo  repository.RecursoRepository
	pedidoRepo   repository.PedidoRepository
	facturaRepo  repository.FacturaRepository
	movRepo      repository.MovimientoStockRepository
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nuevoEntorno(t *testing.T, politica PoliticaStock) *entorno {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.RunMigrations(db))

	e := &entorno{
		db:           db,
		productoRepo: repository.NewProductoRepository(db),
		recursoRepo:  repository.NewRecursoRepository(db),
		pedidoRepo:   repository.NewPedidoRepository(db),
		facturaRepo:  repository.NewFacturaRepository(db),
		movRepo:      repository.NewMovimientoStockRepository(db),
	}
	platoRepo := repository.NewPlatoRepository(db)
	secRepo := repository.NewSecuenciaRepository()

	e.stock = NewStockService(e.productoRepo, e.movRepo, OpcionesStock{Politica: politica, Reintentos: 3})
	e.recursos = NewRecursoService(e.recursoRepo, e.pedidoRepo, e.facturaRepo)
	e.pedidos = NewPedidoService(e.pedidoRepo, e.facturaRepo, platoRepo, secRepo,
		e.stock, e.recursos, infra.NewTicketTexto("Test"), nil, nil, 3)
	e.facturas = NewFacturaService(e.facturaRepo, e.pedidoRepo, secRepo, e.stock, e.recursos, nil, nil, 3)
	e.platos = NewPlatoService(platoRepo, secRepo, 3)

	require.NoError(t, e.recursos.Inicializar(context.Background()))
	return e
}

func (e *entorno) producto(t *testing.T, nombre, categoria, cantidad string) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Codigo:    "PROD-" + uuid.NewString()[:8],
		Nombre:    nombre,
		Categoria: categoria,
		Cantidad:  dec(cantidad),
	}
	require.NoError(t, e.productoRepo.Create(context.Background(), p))
	return p
}

func (e *entorno) stockDe(t *testing.T, id uint) *model.Producto {
	t.Helper()
	p, err := e.productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (e *entorno) requireCantidad(t *testing.T, id uint, esperado string) {
	t.Helper()
	p := e.stockDe(t, id)
	require.True(t, p.Cantidad.Equal(dec(esperado)), "stock de %s: esperado %s, obtenido %s", p.Nombre, esperado, p.Cantidad)
}

func (e *entorno) mesa(t *testing.T, n int) *model.Mesa {
	t.Helper()
	var m model.Mesa
	require.NoError(t, e.db.Where("numero = ?", model.NumeroMesa(n)).First(&m).Error)
	return &m
}

func (e *entorno) codigo(t *testing.T, tipo, codigo string) *model.DeliveryConfig {
	t.Helper()
	var c model.DeliveryConfig
	require.NoError(t, e.db.Where("tipo = ? AND codigo = ?", tipo, codigo).First(&c).Error)
	return &c
}

func bebida(p *model.Producto, cantidad, precio string) items.Item {
	id := p.ID
	return items.Item{
		ProductoID:     &id,
		Nombre:         p.Nombre,
		Cantidad:       dec(cantidad),
		PrecioUnitario: dec(precio),
		Categoria:      items.CategoriaBebida,
	}
}

func plato(nombre, cantidad, precio string) items.Item {
	return items.Item{
		Nombre:         nombre,
		Cantidad:       dec(cantidad),
		PrecioUnitario: dec(precio),
		Categoria:      "principal",
		Tipo:           items.TipoPlato,
	}
}

func (e *entorno) pedidoMesa(t *testing.T, mesaID uint, l ...items.Item) *ResultadoPedido {
	t.Helper()
	res, err := e.pedidos.Crear(context.Background(), nil, dto.CrearPedidoRequest{
		TipoPedido: model.TipoPedidoMesa,
		MesaID:     &mesaID,
		Items:      l,
	})
	require.NoError(t, err)
	return res
}

func (e *entorno) avanzar(t *testing.T, pedidoID uint, estado string) {
	t.Helper()
	_, err := e.pedidos.CambiarEstado(context.Background(), nil, pedidoID, dto.CambiarEstadoRequest{Estado: estado})
	require.NoError(t, err)
}

func (e *entorno) facturar(t *testing.T, pedidoID uint, estado string) *ResultadoFactura {
	t.Helper()
	res, err := e.facturas.CrearDesdePedido(context.Background(), nil, dto.CrearFacturaRequest{
		PedidoID:   pedidoID,
		MetodoPago: "efectivo",
		Estado:     estado,
	})
	require.NoError(t, err)
	return res
}

func tipos(advs []Advertencia) []string {
	out := make([]string, 0, len(advs))
	for _, a := range advs {
		out = append(out, a.Tipo)
	}
	return out
}
