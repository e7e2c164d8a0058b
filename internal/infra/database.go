package infra

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurantepos/internal/model"
)

// NewDatabase opens the database named by dsn and migrates the schema.
// "sqlite://<path>" and "file:<path>" select the embedded SQLite driver;
// anything else is handed to the postgres driver.
func NewDatabase(dsn string) (*gorm.DB, error) {
	dialector, esSQLite := dialectorPara(dsn)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if esSQLite {
		// SQLite serializa escrituras; una conexión evita SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorPara(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), true
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn), true
	}
	return postgres.Open(dsn), false
}

// Modelos lists every table managed by AutoMigrate, in dependency order.
func Modelos() []interface{} {
	return []interface{}{
		&model.Usuario{},
		&model.Producto{},
		&model.MovimientoStock{},
		&model.Plato{},
		&model.Mesa{},
		&model.DeliveryConfig{},
		&model.Secuencia{},
		&model.Pedido{},
		&model.DetalleItemPedido{},
		&model.HistorialEstadoPedido{},
		&model.Factura{},
		&model.Devolucion{},
	}
}

// RunMigrations applies AutoMigrate plus the patches GORM cannot express.
// Used by the server at startup and by tests against SQLite or Postgres.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Modelos()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL valid on both Postgres and SQLite.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// a lo sumo una factura pagada por pedido
		{"factura pagada unica por pedido", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_facturas_pedido_pagada
    ON facturas (pedido_id)
    WHERE estado = 'pagada'`},
		{"pedidos activos por mesa", `
CREATE INDEX IF NOT EXISTS idx_pedidos_mesa_estado
    ON pedidos (mesa_id, estado)`},
		{"pedidos activos por codigo", `
CREATE INDEX IF NOT EXISTS idx_pedidos_codigo_estado
    ON pedidos (tipo_pedido, codigo_delivery, estado)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
