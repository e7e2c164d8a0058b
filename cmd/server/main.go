package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"restaurantepos/internal/config"
	"restaurantepos/internal/infra"
	"restaurantepos/internal/realtime"
	"restaurantepos/internal/router"
	"restaurantepos/internal/worker"
)

// @title Restaurante POS API
// @version 1.0
// @description Pedidos, facturas, stock de bebidas y mesas.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Produccion() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = infra.NewRedis(cfg.RedisURL); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
	} else {
		log.Warn().Msg("REDIS_URL vacío: sin cola de trabajos, rate limiter en memoria")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub(cfg.Origenes())
	go hub.Run(ctx)

	svcs, err := router.NewServicios(cfg, db, rdb, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := svcs.Recursos.Inicializar(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed mesas and delivery codes")
	}

	// Worker handlers are wired here (composition root) so the pool has
	// access to every infrastructure dependency.
	mailer := infra.NewMailer(cfg)
	if rdb != nil {
		pool := worker.NewPool(rdb)
		pool.Handle(worker.JobComanda, worker.NewComandaWorker(svcs.PedidoRepo, cfg.NombreRestaurante, cfg.PDFStoragePath).Process)
		pool.Handle(worker.JobFacturaPDF, worker.NewFacturaWorker(svcs.FacturaRepo, svcs.Dispatcher, cfg.NombreRestaurante, cfg.PDFStoragePath).Process)
		pool.Handle(worker.JobEmail, worker.NewEmailWorker(mailer).Process)
		pool.Start(ctx, cfg.WorkerPoolSize)
	}

	_, err = worker.StartCron(ctx, worker.CronConfig{
		Spec: cfg.ReconciliacionCron,
		Reconciliar: func(ctx context.Context) (int, error) {
			correcciones, err := svcs.Recursos.Reconciliar(ctx)
			return len(correcciones), err
		},
		BajoStock: func(ctx context.Context) (int, error) {
			productos, err := svcs.Stock.Alertas(ctx)
			return len(productos), err
		},
	})
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.ReconciliacionCron).Msg("invalid RECONCILIACION_CRON")
	}

	r := router.New(cfg, db, rdb, mailer, hub, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("politica_stock", cfg.StockPolicy).Msgf("restaurantepos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
