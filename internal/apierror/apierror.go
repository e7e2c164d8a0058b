// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/shopspring/decimal"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// Faltante is one product without enough stock.
type Faltante struct {
	ProductoID uint            `json:"producto_id,omitempty"`
	Nombre     string          `json:"nombre"`
	Solicitado decimal.Decimal `json:"solicitado"`
	Disponible decimal.Decimal `json:"disponible"`
	Falta      decimal.Decimal `json:"falta"`
	Mensaje    string          `json:"mensaje"`
}

// StockError is returned with 409 when an order or return exceeds the available quantity.
type StockError struct {
	Detail    string     `json:"detail"`
	Faltantes []Faltante `json:"faltantes"`
}

func NewStock(msg string, faltantes []Faltante) *StockError {
	return &StockError{Detail: msg, Faltantes: faltantes}
}

// TransitionError reports the current state and the states the operation requires.
type TransitionError struct {
	Detail            string   `json:"detail"`
	EstadoActual      string   `json:"estado_actual"`
	EstadosPermitidos []string `json:"estados_permitidos"`
}

func NewTransition(msg, actual string, permitidos []string) *TransitionError {
	if permitidos == nil {
		permitidos = []string{}
	}
	return &TransitionError{Detail: msg, EstadoActual: actual, EstadosPermitidos: permitidos}
}
