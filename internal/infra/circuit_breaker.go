package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Closed → Open → Half-Open. Protege al worker de email cuando el servidor SMTP
// no responde: con el circuito abierto los envíos fallan sin esperar timeouts
// y el job termina en la DLQ.

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed   CBState = iota // pasan todas las llamadas
	CBOpen                    // falla inmediata
	CBHalfOpen                // se permite una prueba
)

// String returns the state name reported by /health.
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Execute is called while the CB is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Nombre           string
	FailureThreshold int           // fallos consecutivos para abrir
	SuccessThreshold int           // éxitos en half-open para cerrar
	OpenTimeout      time.Duration // tiempo abierto antes de probar
}

// DefaultCBConfig returns the defaults used by the mailer.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nombre:           "smtp",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      2 * time.Minute,
	}
}

type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       CircuitBreakerConfig
	state     CBState
	fallos    int
	exitos    int
	abiertoEn time.Time
	now       func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed, now: time.Now}
}

// State returns the current state, moving open → half-open once OpenTimeout elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.estado()
}

func (cb *CircuitBreaker) estado() CBState {
	if cb.state == CBOpen && cb.now().Sub(cb.abiertoEn) >= cb.cfg.OpenTimeout {
		cb.cambiar(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.estado() == CBOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.registrarFallo()
		return err
	}
	cb.registrarExito()
	return nil
}

func (cb *CircuitBreaker) registrarFallo() {
	cb.fallos++
	cb.exitos = 0
	if cb.state == CBHalfOpen || cb.fallos >= cb.cfg.FailureThreshold {
		cb.abiertoEn = cb.now()
		cb.cambiar(CBOpen)
	}
}

func (cb *CircuitBreaker) registrarExito() {
	cb.fallos = 0
	if cb.state != CBHalfOpen {
		return
	}
	cb.exitos++
	if cb.exitos >= cb.cfg.SuccessThreshold {
		cb.exitos = 0
		cb.cambiar(CBClosed)
	}
}

func (cb *CircuitBreaker) cambiar(nuevo CBState) {
	if cb.state == nuevo {
		return
	}
	log.Warn().Str("circuito", cb.cfg.Nombre).Str("de", cb.state.String()).Str("a", nuevo.String()).
		Msg("circuit breaker: cambio de estado")
	cb.state = nuevo
	if nuevo == CBOpen {
		cb.fallos = 0
	}
}
