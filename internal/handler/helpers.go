package handler

import (
	"errors"
	"math"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"restaurantepos/internal/apierror"
	"restaurantepos/internal/middleware"
	"restaurantepos/internal/service"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery hace lo mismo con los filtros de la query string.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range ves {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError traduce la taxonomía de errores del servicio a HTTP.
func respondError(c *gin.Context, err error) {
	var (
		ve *service.ValidationError
		se *service.InsufficientStockError
		rc *service.ResourceConflictError
		nf *service.NotFoundError
		it *service.InvalidTransitionError
		te *service.TransientError
	)
	switch {
	case errors.As(err, &ve):
		if ve.Campo != "" {
			c.JSON(http.StatusUnprocessableEntity, &apierror.ValidationError{
				Detail: ve.Error(),
				Fields: map[string]string{ve.Campo: ve.Mensaje},
			})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.New(ve.Error()))
	case errors.As(err, &se):
		faltantes := make([]apierror.Faltante, 0, len(se.Faltantes))
		for _, f := range se.Faltantes {
			faltantes = append(faltantes, apierror.Faltante{
				ProductoID: f.ProductoID,
				Nombre:     f.Nombre,
				Solicitado: f.Solicitado,
				Disponible: f.Disponible,
				Falta:      f.Falta(),
				Mensaje:    f.Mensaje,
			})
		}
		c.JSON(http.StatusConflict, apierror.NewStock(se.Error(), faltantes))
	case errors.As(err, &rc):
		c.JSON(http.StatusConflict, apierror.New(rc.Error()))
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, apierror.New(nf.Error()))
	case errors.As(err, &it):
		c.JSON(http.StatusConflict, apierror.NewTransition(it.Error(), it.Actual, it.Permitidos))
	case errors.As(err, &te):
		log.Warn().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("conflicto transitorio")
		c.JSON(http.StatusServiceUnavailable, apierror.New(te.Error()))
	default:
		// ErrorHandler lo registra con el request_id
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}

// parseID lee el parámetro :id como entero positivo.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return 0, false
	}
	return uint(id), true
}

// usuarioID devuelve el usuario autenticado, o nil en rutas sin JWT.
func usuarioID(c *gin.Context) *uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return nil
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}
	return &id
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
