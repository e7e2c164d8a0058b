package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/service"
)

type InventarioHandler struct{ svc service.StockService }

func NewInventarioHandler(svc service.StockService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

type ajusteResponse struct {
	Producto     dto.ProductoResponse      `json:"producto"`
	Aplicado     bool                      `json:"aplicado"`
	Advertencias []dto.AdvertenciaResponse `json:"advertencias"`
}

func (h *InventarioHandler) ajuste(c *gin.Context, res *service.ResultadoAjuste) {
	out := ajusteResponse{Aplicado: res.Aplicado, Advertencias: advertenciasResponse(res.Advertencias)}
	if res.Producto != nil {
		out.Producto = productoResponse(res.Producto)
	}
	c.JSON(http.StatusOK, out)
}

// ListarProductos godoc
// @Summary Listar productos de inventario
// @Tags inventario
// @Produce json
// @Param q query string false "Texto en nombre o código"
// @Param categoria query string false "Categoría"
// @Success 200 {object} dto.ProductoListResponse
// @Security BearerAuth
// @Router /v1/inventario/productos [get]
func (h *InventarioHandler) ListarProductos(c *gin.Context) {
	var filter dto.ProductoFilter
	if !bindQuery(c, &filter) {
		return
	}
	productos, total, err := h.svc.ListarProductos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductoListResponse{
		Data:       productosResponse(productos),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	})
}

// CrearProducto godoc
// @Summary Alta de producto
// @Description Genera el código PROD-<CAT3>-<YYMMDD>-<RAND4>.
// @Tags inventario
// @Accept json
// @Produce json
// @Param body body dto.CrearProductoRequest true "Producto"
// @Success 201 {object} dto.ProductoResponse
// @Security BearerAuth
// @Router /v1/inventario/productos [post]
func (h *InventarioHandler) CrearProducto(c *gin.Context) {
	var req dto.CrearProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.CrearProducto(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, productoResponse(p))
}

func (h *InventarioHandler) RegistrarSalida(c *gin.Context) {
	var req dto.RegistrarSalidaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.RegistrarSalida(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.ajuste(c, res)
}

func (h *InventarioHandler) Reabastecer(c *gin.Context) {
	var req dto.ReabastecerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.Reabastecer(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.ajuste(c, res)
}

// Verificar godoc
// @Summary Verificar stock de varias bebidas
// @Tags inventario
// @Accept json
// @Produce json
// @Param body body dto.VerificarStockRequest true "Items"
// @Success 200 {object} dto.VerificarStockResponse
// @Security BearerAuth
// @Router /v1/inventario/verificar [post]
func (h *InventarioHandler) Verificar(c *gin.Context) {
	var req dto.VerificarStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.VerificarMultiples(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventarioHandler) Alertas(c *gin.Context) {
	productos, err := h.svc.Alertas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productosResponse(productos))
}

func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoFilter
	if !bindQuery(c, &filter) {
		return
	}
	movs, total, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for i := range movs {
		data = append(data, movimientoResponse(&movs[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        data,
		"total":       total,
		"page":        filter.Page,
		"limit":       filter.Limit,
		"total_pages": totalPages(total, filter.Limit),
	})
}
