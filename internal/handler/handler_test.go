package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/middleware"
	"restaurantepos/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

func responder(err error) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/", func(c *gin.Context) { respondError(c, err) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		clave  string
	}{
		{"validacion con campo", &service.ValidationError{Campo: "mesa_id", Mensaje: "requerido"}, http.StatusUnprocessableEntity, "fields"},
		{"validacion", &service.ValidationError{Mensaje: "items vacíos"}, http.StatusUnprocessableEntity, "detail"},
		{"stock", &service.InsufficientStockError{Faltantes: []service.Faltante{{
			ProductoID: 3, Nombre: "Coca Cola", Solicitado: decimal.NewFromInt(5), Disponible: decimal.NewFromInt(2),
		}}}, http.StatusConflict, "faltantes"},
		{"recurso", &service.ResourceConflictError{Recurso: "mesa", Mensaje: "ocupada"}, http.StatusConflict, "detail"},
		{"no encontrado", &service.NotFoundError{Entidad: "pedido", Clave: "9"}, http.StatusNotFound, "detail"},
		{"transicion", &service.InvalidTransitionError{Entidad: "factura", Actual: "anulada", Permitidos: []string{"pagada"}}, http.StatusConflict, "estados_permitidos"},
		{"transitorio", &service.TransientError{Operacion: "numerar pedido", Err: errors.New("duplicate key")}, http.StatusServiceUnavailable, "detail"},
		{"interno", errors.New("connection reset"), http.StatusInternalServerError, "detail"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := responder(tc.err)
			assert.Equal(t, tc.status, w.Code)
			var body map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, tc.clave)
		})
	}
}

func TestRespondError_NoFiltraErroresInternos(t *testing.T) {
	w := responder(errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRespondError_FaltanteCalculaFalta(t *testing.T) {
	w := responder(&service.InsufficientStockError{Faltantes: []service.Faltante{{
		Nombre: "Agua", Solicitado: decimal.NewFromInt(4), Disponible: decimal.NewFromInt(1),
	}}})
	var body struct {
		Faltantes []struct {
			Falta decimal.Decimal `json:"falta"`
		} `json:"faltantes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Faltantes, 1)
	assert.True(t, body.Faltantes[0].Falta.Equal(decimal.NewFromInt(3)))
}

func TestBindAndValidate(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req dto.CrearPedidoRequest
		if !bindAndValidate(c, &req) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": len(req.Items)})
	})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, post(`{"tipo_pedido":`).Code)

	w := post(`{"tipo_pedido":"mesa","items":[{"nombre":"Flan"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "MesaID")

	w = post(`{"tipo_pedido":"llevar","items":[{"name":"Flan","qty":"2","unit_price":900}]}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"items":1}`, w.Body.String())
}

func TestParseIDYTotalPages(t *testing.T) {
	r := gin.New()
	r.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if ok {
			c.JSON(http.StatusOK, gin.H{"id": id})
		}
	})
	for path, status := range map[string]int{"/7": http.StatusOK, "/0": http.StatusBadRequest, "/abc": http.StatusBadRequest} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}

	assert.Equal(t, 3, totalPages(21, 10))
	assert.Equal(t, 0, totalPages(5, 0))
}
