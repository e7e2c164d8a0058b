//go:build integration

package router_test

// Flujos completos contra Postgres y Redis reales (testcontainers).
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"

	"restaurantepos/internal/config"
	"restaurantepos/internal/infra"
	"restaurantepos/internal/model"
	"restaurantepos/internal/realtime"
	"restaurantepos/internal/router"
	"restaurantepos/internal/worker"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
	db     *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("restaurante_test"),
		tcPostgres.WithUsername("restaurante"),
		tcPostgres.WithPassword("restaurante"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(context.Background()) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "e2e-secret-key-with-32-characters",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     2,
		PDFStoragePath:     t.TempDir(),
		NombreRestaurante:  "E2E",
		StockPolicy:        "doble_descuento",
		StockUmbralBajo:    5,
		CodigoReintentos:   5,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hub := realtime.NewHub(nil)
	go hub.Run(ctx)

	svcs, err := router.NewServicios(cfg, db, rdb, hub)
	require.NoError(t, err)
	require.NoError(t, svcs.Recursos.Inicializar(ctx))
	_, _, err = svcs.Auth.GuardarAdministrador(ctx, "admin", "Admin E2E", "restaurante2026")
	require.NoError(t, err)

	mailer := infra.NewMailer(cfg)
	pool := worker.NewPool(rdb)
	pool.Handle(worker.JobComanda, worker.NewComandaWorker(svcs.PedidoRepo, cfg.NombreRestaurante, cfg.PDFStoragePath).Process)
	pool.Handle(worker.JobFacturaPDF, worker.NewFacturaWorker(svcs.FacturaRepo, svcs.Dispatcher, cfg.NombreRestaurante, cfg.PDFStoragePath).Process)
	pool.Handle(worker.JobEmail, worker.NewEmailWorker(mailer).Process)
	pool.Start(ctx, cfg.WorkerPoolSize)

	srv := httptest.NewServer(router.New(cfg, db, rdb, mailer, hub, svcs))
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "restaurante2026"}), "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken, db: db}
}

func (env *testEnv) producto(t *testing.T, nombre string, cantidad int) uint {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/inventario/productos",
		jsonBody(t, map[string]any{"nombre": nombre, "categoria": "bebida", "cantidad": cantidad}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	return prod.ID
}

func (env *testEnv) mesa(t *testing.T, n int) uint {
	t.Helper()
	var m model.Mesa
	require.NoError(t, env.db.Where("numero = ?", model.NumeroMesa(n)).First(&m).Error)
	return m.ID
}

func (env *testEnv) cantidad(t *testing.T, productoID uint) string {
	t.Helper()
	var p model.Producto
	require.NoError(t, env.db.First(&p, productoID).Error)
	return p.Cantidad.String()
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Pedido → factura pagada → PDF generado por el pool → devolución total.
func TestE2E_CicloCompleto(t *testing.T) {
	env := setupTestEnv(t)
	prodID := env.producto(t, "Agua Mineral", 10)

	pedidoResp := do(t, env.server, "POST", "/v1/pedidos", jsonBody(t, map[string]any{
		"tipo_pedido": "mesa",
		"mesa_id":     env.mesa(t, 2),
		"items": []map[string]any{
			{"producto_id": prodID, "nombre": "Agua Mineral", "cantidad": 3, "precio": 900, "categoria": "bebida"},
			{"nombre": "Ravioles", "cantidad": 2, "precio": 4200, "categoria": "principal", "tipo": "plato"},
		},
	}), env.token)
	require.Equal(t, http.StatusCreated, pedidoResp.StatusCode)
	var pedido struct {
		Pedido struct {
			ID uint `json:"id"`
		} `json:"pedido"`
	}
	decodeJSON(t, pedidoResp, &pedido)
	assert.Equal(t, "7", env.cantidad(t, prodID))

	facturaResp := do(t, env.server, "POST", "/v1/facturas", jsonBody(t, map[string]any{
		"pedido_id": pedido.Pedido.ID, "metodo_pago": "tarjeta",
	}), env.token)
	require.Equal(t, http.StatusCreated, facturaResp.StatusCode)
	var factura struct {
		Factura struct {
			ID            uint   `json:"id"`
			NumeroFactura string `json:"numero_factura"`
		} `json:"factura"`
	}
	decodeJSON(t, facturaResp, &factura)
	assert.Equal(t, "4", env.cantidad(t, prodID))

	// el PDF lo genera el pool de forma asíncrona
	require.Eventually(t, func() bool {
		resp := do(t, env.server, "GET", fmt.Sprintf("/v1/facturas/%d/pdf", factura.Factura.ID), nil, env.token)
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 20*time.Second, 250*time.Millisecond)

	devResp := do(t, env.server, "POST",
		"/v1/facturas/numero/"+factura.Factura.NumeroFactura+"/devolucion-total",
		jsonBody(t, map[string]any{"motivo": "cliente disconforme"}), env.token)
	require.Equal(t, http.StatusCreated, devResp.StatusCode)
	devResp.Body.Close()

	// las bebidas vuelven al stock
	assert.Equal(t, "10", env.cantidad(t, prodID))

	// la mesa quedó libre
	libre := do(t, env.server, "POST", "/v1/pedidos", jsonBody(t, map[string]any{
		"tipo_pedido": "mesa", "mesa_id": env.mesa(t, 2),
		"items": []map[string]any{{"nombre": "Flan", "cantidad": 1, "precio": 1200, "categoria": "postre", "tipo": "plato"}},
	}), env.token)
	assert.Equal(t, http.StatusCreated, libre.StatusCode)
	libre.Body.Close()

	healthResp := do(t, env.server, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, healthResp.StatusCode)
	healthResp.Body.Close()
}

// Dos mozos abren la misma mesa a la vez: solo uno la ocupa.
func TestE2E_MesaConcurrente(t *testing.T) {
	env := setupTestEnv(t)
	mesaID := env.mesa(t, 5)

	const intentos = 6
	var wg sync.WaitGroup
	codigos := make(chan int, intentos)
	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := do(t, env.server, "POST", "/v1/pedidos", jsonBody(t, map[string]any{
				"tipo_pedido": "mesa", "mesa_id": mesaID,
				"items": []map[string]any{{"nombre": fmt.Sprintf("Plato %d", i), "cantidad": 1, "precio": 1000, "categoria": "principal", "tipo": "plato"}},
			}), env.token)
			resp.Body.Close()
			codigos <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(codigos)

	creados, conflictos := 0, 0
	for c := range codigos {
		switch c {
		case http.StatusCreated:
			creados++
		case http.StatusConflict:
			conflictos++
		}
	}
	assert.Equal(t, 1, creados)
	assert.Equal(t, intentos-1, conflictos)
}

// Dos pedidos delivery eligen el mismo código a la vez: solo uno lo toma.
func TestE2E_CodigoDeliveryConcurrente(t *testing.T) {
	env := setupTestEnv(t)

	const intentos = 6
	var wg sync.WaitGroup
	codigos := make(chan int, intentos)
	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := do(t, env.server, "POST", "/v1/pedidos", jsonBody(t, map[string]any{
				"tipo_pedido": "delivery", "codigo_delivery": "D001",
				"items": []map[string]any{{"nombre": fmt.Sprintf("Empanada %d", i), "cantidad": 1, "precio": 800, "categoria": "principal", "tipo": "plato"}},
			}), env.token)
			resp.Body.Close()
			codigos <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(codigos)

	creados, conflictos := 0, 0
	for c := range codigos {
		switch c {
		case http.StatusCreated:
			creados++
		case http.StatusConflict:
			conflictos++
		}
	}
	assert.Equal(t, 1, creados)
	assert.Equal(t, intentos-1, conflictos)

	var activos int64
	require.NoError(t, env.db.Model(&model.Pedido{}).
		Where("tipo_pedido = ? AND codigo_delivery = ?", "delivery", "D001").
		Count(&activos).Error)
	assert.Equal(t, int64(1), activos)
}

// Varias mesas piden la última unidad de una bebida: el stock nunca queda negativo.
func TestE2E_StockConcurrente(t *testing.T) {
	env := setupTestEnv(t)
	prodID := env.producto(t, "Cerveza", 3)

	const mesas = 6
	var wg sync.WaitGroup
	codigos := make(chan int, mesas)
	for n := 1; n <= mesas; n++ {
		mesaID := env.mesa(t, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := do(t, env.server, "POST", "/v1/pedidos", jsonBody(t, map[string]any{
				"tipo_pedido": "mesa", "mesa_id": mesaID,
				"items": []map[string]any{{"producto_id": prodID, "nombre": "Cerveza", "cantidad": 1, "precio": 2500, "categoria": "bebida"}},
			}), env.token)
			resp.Body.Close()
			codigos <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codigos)

	creados := 0
	for c := range codigos {
		if c == http.StatusCreated {
			creados++
		} else {
			assert.Equal(t, http.StatusConflict, c)
		}
	}
	assert.Equal(t, 3, creados)
	assert.Equal(t, "0", env.cantidad(t, prodID))
}
