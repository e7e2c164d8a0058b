package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Eventos publicados a las pantallas conectadas.
const (
	EventoPedidoCreado      = "pedido_creado"
	EventoPedidoActualizado = "pedido_actualizado"
	EventoPedidoCancelado   = "pedido_cancelado"
	EventoMesaActualizada   = "mesa_actualizada"
	EventoFacturaEmitida    = "factura_emitida"
	EventoHeartbeat         = "heartbeat"
)

// TipoCliente identifica la pantalla al conectarse (?tipo=cocina).
type TipoCliente string

const (
	ClientePOS    TipoCliente = "pos"
	ClienteCocina TipoCliente = "cocina"
	ClienteMesero TipoCliente = "mesero"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	heartbeatEvery = 30 * time.Second
	sendBuffer     = 256
)

// Mensaje es el sobre JSON enviado por el socket.
type Mensaje struct {
	Tipo      string          `json:"tipo"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type cliente struct {
	id   string
	tipo TipoCliente
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

type envio struct {
	data    []byte
	destino map[TipoCliente]bool // nil = todos
}

// Hub mantiene las conexiones websocket y difunde eventos.
// Un *Hub nil es válido: Publicar no hace nada.
type Hub struct {
	clientes   map[string]*cliente
	broadcast  chan envio
	register   chan *cliente
	unregister chan *cliente
	done       chan struct{}
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
}

func NewHub(origenes []string) *Hub {
	permitidos := map[string]bool{}
	for _, o := range origenes {
		permitidos[o] = true
	}
	return &Hub{
		clientes:   make(map[string]*cliente),
		broadcast:  make(chan envio, 64),
		register:   make(chan *cliente),
		unregister: make(chan *cliente),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || permitidos["*"] || permitidos[origin]
			},
		},
	}
}

// Run atiende registros y difusiones hasta que ctx termina.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.cerrarTodos()
			log.Info().Msg("realtime: hub detenido")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clientes[c.id] = c
			h.mu.Unlock()
			log.Info().Str("cliente", c.id).Str("tipo", string(c.tipo)).Msg("realtime: cliente conectado")

		case c := <-h.unregister:
			h.quitar(c)

		case e := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clientes {
				if e.destino != nil && !e.destino[c.tipo] {
					continue
				}
				select {
				case c.send <- e.data:
				default:
					// buffer lleno: se desconecta
					delete(h.clientes, id)
					close(c.send)
				}
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.Publicar(EventoHeartbeat, map[string]string{"status": "alive"})
		}
	}
}

func (h *Hub) quitar(c *cliente) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clientes[c.id]; ok {
		delete(h.clientes, c.id)
		close(c.send)
		log.Info().Str("cliente", c.id).Msg("realtime: cliente desconectado")
	}
}

func (h *Hub) cerrarTodos() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clientes {
		delete(h.clientes, id)
		close(c.send)
	}
}

// Clientes devuelve cuántas pantallas están conectadas.
func (h *Hub) Clientes() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientes)
}

// Publicar difunde un evento a todas las pantallas. Nunca bloquea.
func (h *Hub) Publicar(evento string, payload interface{}) {
	h.publicar(evento, payload, nil)
}

// PublicarA difunde solo a los tipos de cliente indicados.
func (h *Hub) PublicarA(evento string, payload interface{}, tipos ...TipoCliente) {
	destino := make(map[TipoCliente]bool, len(tipos))
	for _, t := range tipos {
		destino[t] = true
	}
	h.publicar(evento, payload, destino)
}

func (h *Hub) publicar(evento string, payload interface{}, destino map[TipoCliente]bool) {
	if h == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("evento", evento).Msg("realtime: payload invalido")
		return
	}
	msg, err := json.Marshal(Mensaje{Tipo: evento, Timestamp: time.Now(), Data: data})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- envio{data: msg, destino: destino}:
	default:
		log.Warn().Str("evento", evento).Msg("realtime: cola de difusion llena, evento descartado")
	}
}

// ServeWS actualiza la conexión HTTP a websocket y registra al cliente.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tipo := TipoCliente(r.URL.Query().Get("tipo"))
	if tipo == "" {
		tipo = ClientePOS
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("realtime: upgrade fallido")
		return
	}
	c := &cliente{
		id:   uuid.NewString(),
		tipo: tipo,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump solo consume pongs y cierres; las pantallas no envían comandos.
func (c *cliente) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("cliente", c.id).Msg("realtime: cierre inesperado")
			}
			return
		}
	}
}

func (c *cliente) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
