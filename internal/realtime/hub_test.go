package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conectar(t *testing.T, srv *httptest.Server, tipo string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?tipo=" + tipo
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func leer(t *testing.T, conn *websocket.Conn) Mensaje {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Mensaje
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestHub_PublicarLlegaALosClientes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub([]string{"*"})
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	pos := conectar(t, srv, "pos")
	cocina := conectar(t, srv, "cocina")
	require.Eventually(t, func() bool { return h.Clientes() == 2 }, 2*time.Second, 10*time.Millisecond)

	h.PublicarA(EventoPedidoCreado, map[string]int{"id": 1}, ClienteCocina)
	h.Publicar(EventoMesaActualizada, map[string]int{"mesa_id": 3})

	m := leer(t, cocina)
	assert.Equal(t, EventoPedidoCreado, m.Tipo)
	assert.JSONEq(t, `{"id":1}`, string(m.Data))
	assert.Equal(t, EventoMesaActualizada, leer(t, cocina).Tipo)

	// pos no recibe el evento dirigido a cocina
	m = leer(t, pos)
	assert.Equal(t, EventoMesaActualizada, m.Tipo)
	assert.JSONEq(t, `{"mesa_id":3}`, string(m.Data))
}

func TestHub_DesconexionQuitaCliente(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := conectar(t, srv, "mesero")
	require.Eventually(t, func() bool { return h.Clientes() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Clientes() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_OrigenNoPermitido(t *testing.T) {
	h := NewHub([]string{"http://pos.local"})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": {"http://otro.local"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestHub_NilNoHaceNada(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() {
		h.Publicar(EventoHeartbeat, nil)
		h.PublicarA(EventoHeartbeat, nil, ClientePOS)
	})
	assert.Zero(t, h.Clientes())
}
