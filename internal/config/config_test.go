package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "config_test_secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "doble_descuento", cfg.StockPolicy)
	assert.Equal(t, 5, cfg.CodigoReintentos)
	assert.Equal(t, float64(10), cfg.StockUmbralBajo)
	assert.Equal(t, "*/5 * * * *", cfg.ReconciliacionCron)
	assert.False(t, cfg.Produccion())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("JWT_SECRET", "config_test_secret")
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STOCK_POLICY", "reserva")
	t.Setenv("STOCK_UMBRAL_BAJO", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Produccion())
	assert.Equal(t, "reserva", cfg.StockPolicy)
	assert.Equal(t, 2.5, cfg.StockUmbralBajo)
}

func TestLoad_SinSecreto(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestOrigenes(t *testing.T) {
	assert.Equal(t, []string{"*"}, (&Config{}).Origenes())
	assert.Equal(t, []string{"*"}, (&Config{CORSOrigins: " , "}).Origenes())
	assert.Equal(t,
		[]string{"https://pos.local", "http://localhost:5173"},
		(&Config{CORSOrigins: "https://pos.local, http://localhost:5173"}).Origenes())
}
