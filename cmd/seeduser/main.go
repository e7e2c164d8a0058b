// cmd/seeduser/main.go: crea o actualiza el administrador y carga mesas y códigos.
// Uso: go run ./cmd/seeduser -username admin -password secreto
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"restaurantepos/internal/config"
	"restaurantepos/internal/infra"
	"restaurantepos/internal/repository"
	"restaurantepos/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "admin", "usuario administrador")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "contraseña (o ADMIN_PASSWORD)")
	nombre := flag.String("nombre", "Administrador", "nombre visible")
	flag.Parse()

	if len(*password) < 8 {
		log.Fatal().Msg("la contraseña debe tener al menos 8 caracteres")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	ctx := context.Background()
	auth := service.NewAuthService(repository.NewUsuarioRepository(db), cfg)
	user, creado, err := auth.GuardarAdministrador(ctx, *username, *nombre, *password)
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudo guardar el administrador")
	}

	recursos := service.NewRecursoService(
		repository.NewRecursoRepository(db),
		repository.NewPedidoRepository(db),
		repository.NewFacturaRepository(db),
	)
	if err := recursos.Inicializar(ctx); err != nil {
		log.Fatal().Err(err).Msg("no se pudieron cargar mesas y códigos")
	}

	accion := "actualizado"
	if creado {
		accion = "creado"
	}
	log.Info().Str("username", user.Username).Str("id", user.ID).Msgf("administrador %s; mesas y códigos listos", accion)
}
