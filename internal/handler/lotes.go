package handler

import (
	"net/http"

	"farmapos/internal/dto"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type LotesHandler struct{ svc service.LoteService }

func NewLotesHandler(svc service.LoteService) *LotesHandler { return &LotesHandler{svc: svc} }

// Ingresar godoc
// @Summary      Ingresar un lote
// @Description  Registra un lote recibido y suma su cantidad al inventario de la sucursal.
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.IngresarLoteRequest true "Lote"
// @Success      201  {object} dto.IngresoLoteResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/lotes [post]
func (h *LotesHandler) Ingresar(c *gin.Context) {
	var req dto.IngresarLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Ingresar(c.Request.Context(), actorDesde(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// DarDeBaja godoc
// @Summary      Dar de baja un lote
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string              true "UUID del lote"
// @Param        body body dto.BajaLoteRequest true "Motivo"
// @Success      200  {object} dto.LoteResponse
// @Router       /v1/lotes/{id}/baja [post]
func (h *LotesHandler) DarDeBaja(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.BajaLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.DarDeBaja(c.Request.Context(), actorDesde(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar GET /v1/lotes
func (h *LotesHandler) Listar(c *gin.Context) {
	var filter dto.LoteFilter
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

// ProximosAVencer GET /v1/lotes/proximos-a-vencer
func (h *LotesHandler) ProximosAVencer(c *gin.Context) {
	var filter dto.ProximosAVencerFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ProximosAVencer(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
