package handler

import (
	"net/http"

	"farmapos/internal/dto"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type AlertasHandler struct{ svc service.AlertaService }

func NewAlertasHandler(svc service.AlertaService) *AlertasHandler { return &AlertasHandler{svc: svc} }

// Listar GET /v1/alertas
func (h *AlertasHandler) Listar(c *gin.Context) {
	var filter dto.AlertaFilter
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

// MarcarLeida POST /v1/alertas/:id/leida
func (h *AlertasHandler) MarcarLeida(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.MarcarLeida(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Escanear godoc
// @Summary      Ejecutar el escaneo de vencimientos
// @Description  Genera alertas para lotes que vencen dentro de la ventana y sugiere promociones. Idempotente por día.
// @Tags         alertas
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.EscaneoResponse
// @Router       /v1/alertas/escanear [post]
func (h *AlertasHandler) Escanear(c *gin.Context) {
	resp, err := h.svc.EscanearVencimientos(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
