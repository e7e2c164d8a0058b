package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurantepos/internal/apierror"
	"restaurantepos/internal/dto"
	"restaurantepos/internal/service"
)

type PedidosHandler struct{ svc service.PedidoService }

func NewPedidosHandler(svc service.PedidoService) *PedidosHandler {
	return &PedidosHandler{svc: svc}
}

// Crear godoc
// @Summary Crear pedido
// @Description Valida stock de bebidas, ocupa la mesa o el código y devuelve la comanda.
// @Tags pedidos
// @Accept json
// @Produce json
// @Param body body dto.CrearPedidoRequest true "Pedido"
// @Success 201 {object} dto.ResultadoPedidoResponse
// @Failure 409 {object} apierror.StockError
// @Failure 422 {object} apierror.ValidationError
// @Security BearerAuth
// @Router /v1/pedidos [post]
func (h *PedidosHandler) Crear(c *gin.Context) {
	var req dto.CrearPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.Crear(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resultadoPedidoResponse(res))
}

// Listar godoc
// @Summary Listar pedidos
// @Tags pedidos
// @Produce json
// @Param estado query string false "Estado"
// @Param tipo_pedido query string false "mesa, delivery o llevar"
// @Param fecha query string false "YYYY-MM-DD"
// @Success 200 {object} dto.PedidoListResponse
// @Security BearerAuth
// @Router /v1/pedidos [get]
func (h *PedidosHandler) Listar(c *gin.Context) {
	var filter dto.PedidoFilter
	if !bindQuery(c, &filter) {
		return
	}
	pedidos, total, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		data = append(data, pedidoResponse(&pedidos[i]))
	}
	c.JSON(http.StatusOK, dto.PedidoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	})
}

// Facturables lista los pedidos activos sin factura pagada.
func (h *PedidosHandler) Facturables(c *gin.Context) {
	pedidos, err := h.svc.Facturables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		data = append(data, pedidoResponse(&pedidos[i]))
	}
	c.JSON(http.StatusOK, data)
}

func (h *PedidosHandler) Obtener(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedidoResponse(p))
}

func (h *PedidosHandler) Historial(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	hist, err := h.svc.Historial(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, historialResponse(hist))
}

// Comanda devuelve el ticket de cocina en texto plano.
func (h *PedidosHandler) Comanda(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	txt, err := h.svc.Comanda(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, txt)
}

// CambiarEstado godoc
// @Summary Cambiar estado del pedido
// @Description Aplica la transición; cancelado repone stock y libera la mesa. Puede agregar platos.
// @Tags pedidos
// @Accept json
// @Produce json
// @Param id path int true "ID del pedido"
// @Param body body dto.CambiarEstadoRequest true "Nuevo estado"
// @Success 200 {object} dto.ResultadoPedidoResponse
// @Failure 409 {object} apierror.TransitionError
// @Security BearerAuth
// @Router /v1/pedidos/{id}/estado [patch]
func (h *PedidosHandler) CambiarEstado(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.CambiarEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.CambiarEstado(c.Request.Context(), usuarioID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultadoPedidoResponse(res))
}

// EditarItems godoc
// @Summary Editar items del pedido
// @Description Reemplaza la lista y ajusta stock solo por la diferencia.
// @Tags pedidos
// @Accept json
// @Produce json
// @Param id path int true "ID del pedido"
// @Param body body dto.EditarItemsRequest true "Items"
// @Success 200 {object} dto.ResultadoPedidoResponse
// @Security BearerAuth
// @Router /v1/pedidos/{id}/items [put]
func (h *PedidosHandler) EditarItems(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.EditarItemsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.EditarItems(c.Request.Context(), usuarioID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultadoPedidoResponse(res))
}

func (h *PedidosHandler) LiberarMesa(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	liberada, _, err := h.svc.LiberarMesaSiCorresponde(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LiberarMesaResponse{Liberada: liberada})
}

// Eliminar godoc
// @Summary Eliminar o cancelar pedido
// @Tags pedidos
// @Produce json
// @Param id path int true "ID del pedido"
// @Param hard query bool false "true borra el pedido; false lo cancela"
// @Success 200 {object} dto.EliminarPedidoResponse
// @Security BearerAuth
// @Router /v1/pedidos/{id} [delete]
func (h *PedidosHandler) Eliminar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	hard := false
	if raw := c.Query("hard"); raw != "" {
		var err error
		if hard, err = strconv.ParseBool(raw); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("hard debe ser true o false"))
			return
		}
	}
	res, err := h.svc.Eliminar(c.Request.Context(), usuarioID(c), id, hard)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.EliminarPedidoResponse{
		Eliminado:    res.Eliminado,
		Cancelado:    res.Cancelado,
		Advertencias: advertenciasResponse(res.Advertencias),
	})
}
