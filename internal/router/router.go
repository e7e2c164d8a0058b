package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"restaurantepos/internal/config"
	"restaurantepos/internal/handler"
	"restaurantepos/internal/infra"
	"restaurantepos/internal/middleware"
	"restaurantepos/internal/model"
	"restaurantepos/internal/realtime"
	"restaurantepos/internal/repository"
	"restaurantepos/internal/service"
	"restaurantepos/internal/worker"
)

// Servicios agrupa el núcleo ya cableado. cmd/server lo usa también para el
// pool de workers y el cron.
type Servicios struct {
	Auth     service.AuthService
	Stock    service.StockService
	Recursos service.RecursoService
	Pedidos  service.PedidoService
	Facturas service.FacturaService
	Platos   service.PlatoService

	PedidoRepo  repository.PedidoRepository
	FacturaRepo repository.FacturaRepository
	Dispatcher  *worker.Dispatcher
}

// NewServicios wires repositories and services.
// Dependency graph: Service ← Repository ← DB; jobs go to Redis when rdb is set.
func NewServicios(cfg *config.Config, db *gorm.DB, rdb *redis.Client, hub *realtime.Hub) (*Servicios, error) {
	politica, err := service.ParsePolitica(cfg.StockPolicy)
	if err != nil {
		return nil, err
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	recursoRepo := repository.NewRecursoRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	platoRepo := repository.NewPlatoRepository(db)
	secuenciaRepo := repository.NewSecuenciaRepository()

	var dispatcher *worker.Dispatcher
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	stockSvc := service.NewStockService(productoRepo, movimientoStockRepo, service.OpcionesStock{
		Politica:   politica,
		UmbralBajo: decimal.NewFromFloat(cfg.StockUmbralBajo),
		Reintentos: cfg.CodigoReintentos,
	})
	recursoSvc := service.NewRecursoService(recursoRepo, pedidoRepo, facturaRepo)

	return &Servicios{
		Auth:     service.NewAuthService(usuarioRepo, cfg),
		Stock:    stockSvc,
		Recursos: recursoSvc,
		Pedidos: service.NewPedidoService(pedidoRepo, facturaRepo, platoRepo, secuenciaRepo,
			stockSvc, recursoSvc, infra.NewTicketTexto(cfg.NombreRestaurante), dispatcher, hub, cfg.CodigoReintentos),
		Facturas: service.NewFacturaService(facturaRepo, pedidoRepo, secuenciaRepo,
			stockSvc, recursoSvc, dispatcher, hub, cfg.CodigoReintentos),
		Platos: service.NewPlatoService(platoRepo, secuenciaRepo, cfg.CodigoReintentos),

		PedidoRepo:  pedidoRepo,
		FacturaRepo: facturaRepo,
		Dispatcher:  dispatcher,
	}, nil
}

// New returns a configured Gin engine with every route.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer, hub *realtime.Hub, s *Servicios) *gin.Engine {
	if cfg.Produccion() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origenes()))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimitPorMinuto > 0 {
		r.Use(middleware.RateLimiter(rdb, cfg.RateLimitPorMinuto, time.Minute))
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(s.Auth)
	usuariosH := handler.NewUsuariosHandler(s.Auth)
	pedidosH := handler.NewPedidosHandler(s.Pedidos)
	facturasH := handler.NewFacturasHandler(s.Facturas)
	inventarioH := handler.NewInventarioHandler(s.Stock)
	platosH := handler.NewPlatosHandler(s.Platos)
	recursosH := handler.NewRecursosHandler(s.Recursos)
	dlqH := handler.NewDLQHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailer, hub))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(rdb), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	const (
		admin  = model.RolAdministrador
		cajero = model.RolCajero
		mesero = model.RolMesero
		cocina = model.RolCocina
	)
	todos := middleware.RequireRole(admin, cajero, mesero, cocina)
	salon := middleware.RequireRole(admin, cajero, mesero)
	caja := middleware.RequireRole(admin, cajero)
	soloAdmin := middleware.RequireRole(admin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/ws", todos, gin.WrapF(hub.ServeWS))

		ped := v1.Group("/pedidos")
		{
			ped.POST("", salon, pedidosH.Crear)
			ped.GET("", todos, pedidosH.Listar)
			ped.GET("/facturables", caja, pedidosH.Facturables)
			ped.GET("/:id", todos, pedidosH.Obtener)
			ped.GET("/:id/historial", todos, pedidosH.Historial)
			ped.GET("/:id/comanda", todos, pedidosH.Comanda)
			// cocina avanza preparacion → listo
			ped.PATCH("/:id/estado", todos, pedidosH.CambiarEstado)
			ped.PUT("/:id/items", salon, pedidosH.EditarItems)
			ped.POST("/:id/liberar-mesa", salon, pedidosH.LiberarMesa)
			ped.DELETE("/:id", caja, pedidosH.Eliminar)
		}

		fac := v1.Group("/facturas", caja)
		{
			fac.POST("", facturasH.Crear)
			fac.GET("", facturasH.Listar)
			fac.GET("/:id", facturasH.Obtener)
			fac.GET("/:id/pdf", facturasH.DescargarPDF)
			fac.POST("/:id/pagar", facturasH.Pagar)
			fac.POST("/:id/imprimir", facturasH.Imprimir)
			fac.DELETE("/:id", soloAdmin, facturasH.Eliminar)

			num := fac.Group("/numero/:numero")
			{
				num.GET("/disponibles", facturasH.Disponibles)
				num.POST("/devolucion-total", facturasH.DevolucionTotal)
				num.POST("/devolucion-parcial", facturasH.DevolucionParcial)
				num.POST("/anular", soloAdmin, facturasH.Anular)
			}
		}

		inv := v1.Group("/inventario")
		{
			inv.GET("/productos", todos, inventarioH.ListarProductos)
			inv.GET("/alertas", todos, inventarioH.Alertas)
			inv.GET("/movimientos", caja, inventarioH.ListarMovimientos)
			inv.POST("/verificar", salon, inventarioH.Verificar)
			inv.POST("/productos", soloAdmin, inventarioH.CrearProducto)
			inv.POST("/salidas", caja, inventarioH.RegistrarSalida)
			inv.POST("/reabastecer", caja, inventarioH.Reabastecer)
		}

		v1.GET("/platos", todos, platosH.Listar)
		v1.POST("/platos", soloAdmin, platosH.Crear)

		rec := v1.Group("/recursos")
		{
			rec.GET("/mesas", todos, recursosH.Mesas)
			rec.GET("/codigos", todos, recursosH.Codigos)
			rec.POST("/reconciliar", soloAdmin, recursosH.Reconciliar)
		}

		v1.POST("/usuarios", soloAdmin, usuariosH.Crear)

		adm := v1.Group("/admin", soloAdmin)
		{
			adm.GET("/dlq/:cola", dlqH.Listar)
			adm.POST("/dlq/:cola/reencolar", dlqH.Reencolar)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.Produccion() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
