package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"
	"restaurantepos/internal/service"
)

// ── Platos ──────────────────────────────────────────────────────────────────

type PlatosHandler struct{ svc service.PlatoService }

func NewPlatosHandler(svc service.PlatoService) *PlatosHandler {
	return &PlatosHandler{svc: svc}
}

// Listar godoc
// @Summary Listar platos del menú
// @Tags platos
// @Produce json
// @Param todos query bool false "Incluye platos inactivos"
// @Success 200 {array} dto.PlatoResponse
// @Security BearerAuth
// @Router /v1/platos [get]
func (h *PlatosHandler) Listar(c *gin.Context) {
	platos, err := h.svc.Listar(c.Request.Context(), c.Query("todos") != "true")
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.PlatoResponse, 0, len(platos))
	for i := range platos {
		out = append(out, platoResponse(&platos[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Crear godoc
// @Summary Alta de plato
// @Description Asigna el siguiente código COD###.
// @Tags platos
// @Accept json
// @Produce json
// @Param body body dto.CrearPlatoRequest true "Plato"
// @Success 201 {object} dto.PlatoResponse
// @Security BearerAuth
// @Router /v1/platos [post]
func (h *PlatosHandler) Crear(c *gin.Context) {
	var req dto.CrearPlatoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, platoResponse(p))
}

// ── Recursos ────────────────────────────────────────────────────────────────

type RecursosHandler struct{ svc service.RecursoService }

func NewRecursosHandler(svc service.RecursoService) *RecursosHandler {
	return &RecursosHandler{svc: svc}
}

func (h *RecursosHandler) Mesas(c *gin.Context) {
	mesas, err := h.svc.ListarMesas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.MesaResponse, 0, len(mesas))
	for i := range mesas {
		out = append(out, mesaResponse(&mesas[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Codigos lista el pool de delivery o de llevar (?tipo=delivery|llevar).
func (h *RecursosHandler) Codigos(c *gin.Context) {
	tipo := c.DefaultQuery("tipo", model.TipoPedidoDelivery)
	codigos, err := h.svc.ListarCodigos(c.Request.Context(), tipo)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.CodigoDeliveryResponse, 0, len(codigos))
	for i := range codigos {
		out = append(out, codigoResponse(&codigos[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Reconciliar godoc
// @Summary Reconciliar estados de mesas y códigos
// @Tags recursos
// @Produce json
// @Success 200 {object} dto.ReconciliacionResponse
// @Security BearerAuth
// @Router /v1/recursos/reconciliar [post]
func (h *RecursosHandler) Reconciliar(c *gin.Context) {
	correcciones, err := h.svc.Reconciliar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := dto.ReconciliacionResponse{Correcciones: make([]dto.CorreccionRecursoResponse, 0, len(correcciones))}
	for _, cr := range correcciones {
		out.Correcciones = append(out.Correcciones, dto.CorreccionRecursoResponse{
			Recurso:        cr.Recurso,
			EstadoAnterior: cr.EstadoAnterior,
			EstadoNuevo:    cr.EstadoNuevo,
		})
	}
	c.JSON(http.StatusOK, out)
}
