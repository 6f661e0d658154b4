package handler

import (
	"errors"
	"net/http"
	"reflect"

	"farmapos/internal/apierror"
	"farmapos/internal/middleware"
	"farmapos/internal/model"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as its float value so that gt=0, max=100 work.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// On failure it writes the response and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, filter)
}

func validar(c *gin.Context, v interface{}) bool {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// actorDesde builds the service-level caller from the JWT claims.
func actorDesde(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	id, _ := uuid.Parse(claims.UserID)
	return service.Actor{
		UsuarioID:  id,
		Rol:        claims.RolTipado(),
		SucursalID: claims.Sucursal(),
	}
}

var statusPorMotivo = map[model.MotivoBloqueo]int{
	model.MotivoCarritoVacio:         http.StatusUnprocessableEntity,
	model.MotivoProductoNoEncontrado: http.StatusNotFound,
	model.MotivoProductoInactivo:     http.StatusUnprocessableEntity,
	model.MotivoProductoVencido:      http.StatusUnprocessableEntity,
	model.MotivoRequiereReceta:       http.StatusUnprocessableEntity,
	model.MotivoStockInsuficiente:    http.StatusConflict,
	model.MotivoStockInconsistente:   http.StatusInternalServerError,
}

// responderError maps service errors to HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func responderError(c *gin.Context, err error) {
	if r, ok := service.ComoRechazo(err); ok {
		status, found := statusPorMotivo[r.Motivo]
		if !found {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, apierror.NewRechazo(string(r.Motivo), r.Mensaje, uuidStr(r.ProductoID), uuidStr(r.LoteID)))
		return
	}

	switch {
	case errors.Is(err, service.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrSinPermiso), errors.Is(err, service.ErrSucursalAjena):
		c.JSON(http.StatusForbidden, apierror.New(err.Error()))
	case errors.Is(err, service.ErrDatosInvalidos), errors.Is(err, service.ErrSucursalRequerida):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, service.ErrConflicto):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrCredenciales):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}

func uuidStr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
