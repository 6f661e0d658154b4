package handler

import (
	"net/http"

	"farmapos/internal/dto"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// Consultar godoc
// @Summary      Stock por sucursal
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string true  "UUID del producto"
// @Param        sucursal_id query string false "UUID de sucursal"
// @Success      200 {array} dto.InventarioResponse
// @Router       /v1/inventario [get]
func (h *InventarioHandler) Consultar(c *gin.Context) {
	var filter dto.InventarioFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Consultar(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movimientos GET /v1/inventario/movimientos
func (h *InventarioHandler) Movimientos(c *gin.Context) {
	var filter dto.MovimientoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Consistencia GET /v1/inventario/consistencia
// Lists (product, branch) pairs whose stock_total differs from their lots.
func (h *InventarioHandler) Consistencia(c *gin.Context) {
	resp, err := h.svc.Consistencia(c.Request.Context(), c.Query("sucursal_id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
