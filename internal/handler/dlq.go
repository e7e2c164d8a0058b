package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"restaurantepos/internal/apierror"
	"restaurantepos/internal/worker"
)

// DLQHandler expone la cola de jobs fallidos a los administradores.
type DLQHandler struct{ rdb *redis.Client }

func NewDLQHandler(rdb *redis.Client) *DLQHandler { return &DLQHandler{rdb: rdb} }

func (h *DLQHandler) disponible(c *gin.Context) bool {
	if h.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, apierror.New("Cola de trabajos deshabilitada (sin Redis)"))
		return false
	}
	return true
}

// Listar godoc
// @Summary Jobs fallidos
// @Tags admin
// @Produce json
// @Param cola path string true "jobs:comanda, jobs:factura o jobs:email"
// @Param limit query int false "Máximo de entradas"
// @Success 200 {array} worker.DLQEntry
// @Security BearerAuth
// @Router /v1/admin/dlq/{cola} [get]
func (h *DLQHandler) Listar(c *gin.Context) {
	if !h.disponible(c) {
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	entries, err := worker.ListarDLQ(c.Request.Context(), h.rdb, c.Param("cola"), limit)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Reencolar devuelve los jobs fallidos de la cola al pool.
func (h *DLQHandler) Reencolar(c *gin.Context) {
	if !h.disponible(c) {
		return
	}
	max, err := strconv.Atoi(c.DefaultQuery("max", "100"))
	if err != nil || max <= 0 {
		c.JSON(http.StatusBadRequest, apierror.New("max debe ser un entero positivo"))
		return
	}
	n, err := worker.Reencolar(c.Request.Context(), h.rdb, c.Param("cola"), max)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reencolados": n})
}

func (h *DLQHandler) error(c *gin.Context, err error) {
	if errors.Is(err, worker.ErrColaDesconocida) {
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	}
	_ = c.Error(err)
}
