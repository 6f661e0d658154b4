package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmapos/internal/apierror"
	"farmapos/internal/dto"
	"farmapos/internal/middleware"
	"farmapos/internal/model"
	"farmapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type stubVentaService struct {
	err    error
	actor  service.Actor
	ticket []byte
}

func (s *stubVentaService) ProcesarVenta(_ context.Context, actor service.Actor, _ dto.ProcesarVentaRequest) (*dto.VentaResponse, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VentaResponse{ID: uuid.NewString()}, nil
}

func (s *stubVentaService) ObtenerVenta(_ context.Context, _ service.Actor, _ uuid.UUID) (*dto.VentaResponse, error) {
	return nil, s.err
}

func (s *stubVentaService) ListarVentas(_ context.Context, _ service.Actor, _ dto.VentaFilter) (*dto.VentaListResponse, error) {
	return &dto.VentaListResponse{}, s.err
}

func (s *stubVentaService) GenerarTicket(_ context.Context, _ service.Actor, _ uuid.UUID) ([]byte, error) {
	return s.ticket, s.err
}

func conClaims(rol string, sucursal *string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{
			UserID:     "b7f1d9a4-2a8e-4d6c-9e3f-1f0c2b7a5d11",
			Rol:        rol,
			SucursalID: sucursal,
		})
		c.Next()
	}
}

func ventasRouter(svc service.VentaService) *gin.Engine {
	h := NewVentasHandler(svc)
	r := gin.New()
	r.Use(conClaims("vendedor", nil))
	r.POST("/v1/ventas", h.ProcesarVenta)
	r.GET("/v1/ventas/:id", h.ObtenerVenta)
	r.GET("/v1/ventas/:id/ticket", h.Ticket)
	return r
}

func postVenta(t *testing.T, r http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/ventas", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProcesarVenta_Created(t *testing.T) {
	svc := &stubVentaService{}
	w := postVenta(t, ventasRouter(svc), dto.ProcesarVentaRequest{
		Lineas: []dto.LineaVentaRequest{{ProductoID: uuid.NewString(), Cantidad: 2}},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.RolVendedor, svc.actor.Rol)
	assert.Nil(t, svc.actor.SucursalID)
}

func TestProcesarVenta_Validacion(t *testing.T) {
	r := ventasRouter(&stubVentaService{})

	w := postVenta(t, r, map[string]any{
		"lineas": []map[string]any{{"producto_id": "no-uuid", "cantidad": 0}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/ventas", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcesarVenta_RechazoPorMotivo(t *testing.T) {
	productoID := uuid.New()
	for motivo, status := range statusPorMotivo {
		t.Run(string(motivo), func(t *testing.T) {
			svc := &stubVentaService{err: &service.Rechazo{Motivo: motivo, ProductoID: &productoID, Mensaje: "rechazada"}}
			w := postVenta(t, ventasRouter(svc), dto.ProcesarVentaRequest{})
			require.Equal(t, status, w.Code)

			var body apierror.RechazoError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(motivo), body.Codigo)
			require.NotNil(t, body.ProductoID)
			assert.Equal(t, productoID.String(), *body.ProductoID)
			assert.Nil(t, body.LoteID)
		})
	}
}

func TestResponderError_Sentinelas(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNoEncontrado, http.StatusNotFound},
		{fmt.Errorf("%w: venta", service.ErrNoEncontrado), http.StatusNotFound},
		{service.ErrSinPermiso, http.StatusForbidden},
		{service.ErrSucursalAjena, http.StatusForbidden},
		{service.ErrDatosInvalidos, http.StatusUnprocessableEntity},
		{service.ErrSucursalRequerida, http.StatusUnprocessableEntity},
		{service.ErrConflicto, http.StatusConflict},
		{service.ErrCredenciales, http.StatusUnauthorized},
		{errors.New("pq: connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			responderError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestResponderError_NoFiltraDetallesInternos(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	responderError(c, errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}

func TestTicket(t *testing.T) {
	svc := &stubVentaService{ticket: []byte("%PDF-1.3 fake")}
	r := ventasRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ventas/"+uuid.NewString()+"/ticket", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ventas/no-uuid/ticket", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = service.ErrSucursalAjena
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ventas/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
