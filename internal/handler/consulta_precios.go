package handler

import (
	"net/http"

	"farmapos/internal/apierror"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConsultaPreciosHandler serves the public price check. It has no side effects.
type ConsultaPreciosHandler struct{ svc service.PrecioService }

func NewConsultaPreciosHandler(svc service.PrecioService) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{svc: svc}
}

// GetPrecioPorBarcode godoc
// @Summary Consulta de precio por codigo de barras (sin autenticacion)
// @Description Devuelve el precio del próximo lote que se vendería en la sucursal, con descuento de promoción si corresponde.
// @Tags precio
// @Produce json
// @Param barcode     path  string true "Codigo de barras"
// @Param sucursal_id query string true "UUID de sucursal"
// @Success 200 {object} dto.ConsultaPreciosResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{barcode} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorBarcode(c *gin.Context) {
	sucursalID, err := uuid.Parse(c.Query("sucursal_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("sucursal_id invalido"))
		return
	}
	resp, err := h.svc.Consultar(c.Request.Context(), c.Param("barcode"), sucursalID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
