package handler

import (
	"net/http"
	"strconv"

	"farmapos/internal/dto"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
)

// IntentosHandler exposes the blocked-attempt audit trail.
type IntentosHandler struct{ svc service.IntentoService }

func NewIntentosHandler(svc service.IntentoService) *IntentosHandler {
	return &IntentosHandler{svc: svc}
}

// Listar godoc
// @Summary      Intentos de venta bloqueados
// @Tags         auditoria
// @Produce      json
// @Security     BearerAuth
// @Param        motivo      query string false "PRODUCT_EXPIRED | INSUFFICIENT_STOCK | ..."
// @Param        usuario_id  query string false "UUID del usuario"
// @Param        sucursal_id query string false "UUID de sucursal"
// @Param        desde       query string false "YYYY-MM-DD"
// @Param        hasta       query string false "YYYY-MM-DD"
// @Success      200 {object} dto.IntentoListResponse
// @Router       /v1/intentos-bloqueados [get]
func (h *IntentosHandler) Listar(c *gin.Context) {
	var filter dto.IntentoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PorUsuario GET /v1/intentos-bloqueados/usuario/:id
func (h *IntentosHandler) PorUsuario(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	page, limit := paginacion(c)
	resp, err := h.svc.PorUsuario(c.Request.Context(), id, page, limit)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recientes GET /v1/intentos-bloqueados/recientes
func (h *IntentosHandler) Recientes(c *gin.Context) {
	page, limit := paginacion(c)
	resp, err := h.svc.Recientes(c.Request.Context(), page, limit)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func paginacion(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit
}
