package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"restaurantepos/internal/apierror"
	"restaurantepos/internal/dto"
	"restaurantepos/internal/service"
)

type FacturasHandler struct{ svc service.FacturaService }

func NewFacturasHandler(svc service.FacturaService) *FacturasHandler {
	return &FacturasHandler{svc: svc}
}

func (h *FacturasHandler) resultado(c *gin.Context, status int, res *service.ResultadoFactura) {
	c.JSON(status, dto.ResultadoFacturaResponse{
		Factura:      facturaResponse(res.Factura),
		Advertencias: advertenciasResponse(res.Advertencias),
	})
}

// Crear godoc
// @Summary Facturar un pedido
// @Description Pagada completa el pedido, libera la mesa y descuenta bebidas; pendiente lo difiere.
// @Tags facturas
// @Accept json
// @Produce json
// @Param body body dto.CrearFacturaRequest true "Factura"
// @Success 201 {object} dto.ResultadoFacturaResponse
// @Failure 409 {object} apierror.TransitionError
// @Failure 503 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/facturas [post]
func (h *FacturasHandler) Crear(c *gin.Context) {
	var req dto.CrearFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.CrearDesdePedido(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.resultado(c, http.StatusCreated, res)
}

// Listar godoc
// @Summary Listar facturas
// @Tags facturas
// @Produce json
// @Param estado query string false "Estado"
// @Param fecha query string false "YYYY-MM-DD"
// @Success 200 {object} dto.FacturaListResponse
// @Security BearerAuth
// @Router /v1/facturas [get]
func (h *FacturasHandler) Listar(c *gin.Context) {
	var filter dto.FacturaFilter
	if !bindQuery(c, &filter) {
		return
	}
	facturas, total, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.FacturaResponse, 0, len(facturas))
	for i := range facturas {
		data = append(data, facturaResponse(&facturas[i]))
	}
	c.JSON(http.StatusOK, dto.FacturaListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	})
}

func (h *FacturasHandler) Obtener(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	f, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, facturaResponse(f))
}

// DescargarPDF sirve el PDF generado por el worker de facturas.
func (h *FacturasHandler) DescargarPDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	f, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if f.PDFPath == "" {
		c.JSON(http.StatusNotFound, apierror.New("El PDF todavia no fue generado"))
		return
	}
	if _, err := os.Stat(f.PDFPath); err != nil {
		c.JSON(http.StatusNotFound, apierror.New("PDF no disponible"))
		return
	}
	c.FileAttachment(f.PDFPath, filepath.Base(f.PDFPath))
}

// Disponibles lista lo que todavía puede devolverse de la factura.
func (h *FacturasHandler) Disponibles(c *gin.Context) {
	f, disp, err := h.svc.ProductosDisponiblesDevolucion(c.Request.Context(), c.Param("numero"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"factura":   facturaResponse(f),
		"productos": disponiblesResponse(disp),
	})
}

// Pagar godoc
// @Summary Marcar factura pendiente como pagada
// @Tags facturas
// @Produce json
// @Param id path int true "ID de la factura"
// @Success 200 {object} dto.ResultadoFacturaResponse
// @Failure 409 {object} apierror.TransitionError
// @Security BearerAuth
// @Router /v1/facturas/{id}/pagar [post]
func (h *FacturasHandler) Pagar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.MarcarPagada(c.Request.Context(), usuarioID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.resultado(c, http.StatusOK, res)
}

func (h *FacturasHandler) Imprimir(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	f, err := h.svc.MarcarImpresa(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, facturaResponse(f))
}

// DevolucionTotal godoc
// @Summary Devolución total
// @Description Repone todas las bebidas facturadas y marca la factura totalmente_devuelta.
// @Tags facturas
// @Accept json
// @Produce json
// @Param numero path string true "Número de factura"
// @Param body body dto.DevolucionTotalRequest false "Motivo"
// @Success 201 {object} dto.ResultadoDevolucionResponse
// @Security BearerAuth
// @Router /v1/facturas/numero/{numero}/devolucion-total [post]
func (h *FacturasHandler) DevolucionTotal(c *gin.Context) {
	var req dto.DevolucionTotalRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.DevolucionTotal(c.Request.Context(), usuarioID(c), c.Param("numero"), req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resultadoDevolucionResponse(res))
}

// DevolucionParcial godoc
// @Summary Devolución parcial
// @Description Todo o nada: si algún producto excede lo disponible no se registra nada.
// @Tags facturas
// @Accept json
// @Produce json
// @Param numero path string true "Número de factura"
// @Param body body dto.DevolucionParcialRequest true "Productos a devolver"
// @Success 201 {object} dto.ResultadoDevolucionResponse
// @Failure 409 {object} apierror.StockError
// @Security BearerAuth
// @Router /v1/facturas/numero/{numero}/devolucion-parcial [post]
func (h *FacturasHandler) DevolucionParcial(c *gin.Context) {
	var req dto.DevolucionParcialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.DevolucionParcial(c.Request.Context(), usuarioID(c), c.Param("numero"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resultadoDevolucionResponse(res))
}

// Anular godoc
// @Summary Anular factura
// @Tags facturas
// @Accept json
// @Produce json
// @Param numero path string true "Número de factura"
// @Param body body dto.AnularFacturaRequest true "Motivo"
// @Success 200 {object} dto.ResultadoFacturaResponse
// @Security BearerAuth
// @Router /v1/facturas/numero/{numero}/anular [post]
func (h *FacturasHandler) Anular(c *gin.Context) {
	var req dto.AnularFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.Anular(c.Request.Context(), usuarioID(c), c.Param("numero"), req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	h.resultado(c, http.StatusOK, res)
}

func (h *FacturasHandler) Eliminar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	advs, err := h.svc.Eliminar(c.Request.Context(), usuarioID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eliminada": true, "advertencias": advertenciasResponse(advs)})
}
