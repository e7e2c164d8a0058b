package dto

import "github.com/shopspring/decimal"

type CrearPlatoRequest struct {
	Nombre    string          `json:"nombre"    validate:"required,min=2,max=200"`
	Categoria string          `json:"categoria" validate:"required,oneof=entrada principal postre bebida rapida especial"`
	Precio    decimal.Decimal `json:"precio"    validate:"required"`
}

type PlatoResponse struct {
	ID        uint            `json:"id"`
	Codigo    string          `json:"codigo"`
	Nombre    string          `json:"nombre"`
	Categoria string          `json:"categoria"`
	Precio    decimal.Decimal `json:"precio"`
	Activo    bool            `json:"activo"`
}

type MesaResponse struct {
	ID        uint   `json:"id"`
	Numero    string `json:"numero"`
	Display   string `json:"display"`
	Capacidad int    `json:"capacidad"`
	Estado    string `json:"estado"`
}

type CodigoDeliveryResponse struct {
	ID     uint   `json:"id"`
	Tipo   string `json:"tipo"`
	Codigo string `json:"codigo"`
	Estado string `json:"estado"`
}

type CorreccionRecursoResponse struct {
	Recurso        string `json:"recurso"`
	EstadoAnterior string `json:"estado_anterior"`
	EstadoNuevo    string `json:"estado_nuevo"`
}

type ReconciliacionResponse struct {
	Correcciones []CorreccionRecursoResponse `json:"correcciones"`
}
