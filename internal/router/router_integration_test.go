//go:build integration

package router_test

// End-to-end tests against real Postgres and Redis started with testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"farmapos/internal/config"
	"farmapos/internal/infra"
	"farmapos/internal/model"
	"farmapos/internal/router"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Setup ────────────────────────────────────────────────────────────────────

type testEnv struct {
	server   *httptest.Server
	token    string // admin JWT
	sucursal string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("farmapos_test"),
		tcPostgres.WithUsername("farmapos"),
		tcPostgres.WithPassword("farmapos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                   "test",
		JWTSecret:             "test-secret-key",
		JWTExpirationHours:    8,
		JWTRefreshHours:       24,
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		PrecioCacheTTLMinutos: 5,
		VentaTxMaxReintentos:  5,
		StockMinimoAlerta:     3,
		PromoSugeridaPct:      20,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin1234"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Usuario{
		Username: "admin", Nombre: "Admin E2E", PasswordHash: string(hash), Rol: model.RolAdmin, Activo: true,
	}).Error)

	app := router.New(cfg, db, rdb)
	srv := httptest.NewServer(app.Engine)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "admin1234"}), "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &login)

	sucResp := do(t, srv, "POST", "/v1/sucursales", jsonBody(t, map[string]any{"nombre": "Sucursal Centro"}), login.AccessToken)
	require.Equal(t, http.StatusCreated, sucResp.StatusCode)
	var suc struct {
		ID string `json:"id"`
	}
	decodeJSON(t, sucResp, &suc)

	return &testEnv{server: srv, token: login.AccessToken, sucursal: suc.ID}
}

func (e *testEnv) crearProducto(t *testing.T, barcode string, precio float64) string {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/productos", jsonBody(t, map[string]any{
		"codigo_barras": barcode,
		"nombre":        "Producto " + barcode,
		"precio":        precio,
	}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &p)
	return p.ID
}

func (e *testEnv) ingresarLote(t *testing.T, productoID, numero string, vence time.Time, cantidad int) {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/lotes", jsonBody(t, map[string]any{
		"producto_id":       productoID,
		"sucursal_id":       e.sucursal,
		"numero_lote":       numero,
		"fecha_vencimiento": vence.Format("2006-01-02"),
		"cantidad":          cantidad,
	}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func (e *testEnv) vender(t *testing.T, productoID string, cantidad int) *http.Response {
	t.Helper()
	return do(t, e.server, "POST", "/v1/ventas", jsonBody(t, map[string]any{
		"sucursal_id": e.sucursal,
		"lineas":      []map[string]any{{"producto_id": productoID, "cantidad": cantidad}},
	}), e.token)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_VentaFIFO(t *testing.T) {
	env := setupTestEnv(t)
	hoy := time.Now().UTC()
	prod := env.crearProducto(t, "7790000000101", 100)
	env.ingresarLote(t, prod, "L-TARDE", hoy.AddDate(1, 0, 0), 5)
	env.ingresarLote(t, prod, "L-PRONTO", hoy.AddDate(0, 6, 0), 3)

	resp := env.vender(t, prod, 6)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var venta struct {
		ID       string          `json:"id"`
		Total    decimal.Decimal `json:"total"`
		Detalles []struct {
			LoteID   string `json:"lote_id"`
			Cantidad int    `json:"cantidad"`
		} `json:"detalles"`
	}
	decodeJSON(t, resp, &venta)
	require.Len(t, venta.Detalles, 2)
	assert.Equal(t, 3, venta.Detalles[0].Cantidad)
	assert.Equal(t, 3, venta.Detalles[1].Cantidad)
	assert.True(t, venta.Total.Equal(decimal.NewFromInt(600)), "total %s", venta.Total)

	ticket := do(t, env.server, "GET", "/v1/ventas/"+venta.ID+"/ticket", nil, env.token)
	assert.Equal(t, http.StatusOK, ticket.StatusCode)
	assert.Equal(t, "application/pdf", ticket.Header.Get("Content-Type"))
	ticket.Body.Close()

	cons := do(t, env.server, "GET", "/v1/inventario/consistencia", nil, env.token)
	require.Equal(t, http.StatusOK, cons.StatusCode)
	var inconsistencias []any
	decodeJSON(t, cons, &inconsistencias)
	assert.Empty(t, inconsistencias)
}

func TestE2E_StockInsuficienteQuedaAuditado(t *testing.T) {
	env := setupTestEnv(t)
	prod := env.crearProducto(t, "7790000000202", 50)
	env.ingresarLote(t, prod, "L-1", time.Now().UTC().AddDate(1, 0, 0), 2)

	resp := env.vender(t, prod, 5)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var rechazo struct {
		Codigo string `json:"codigo"`
	}
	decodeJSON(t, resp, &rechazo)
	assert.Equal(t, "INSUFFICIENT_STOCK", rechazo.Codigo)

	auditoria := do(t, env.server, "GET", "/v1/intentos-bloqueados", nil, env.token)
	require.Equal(t, http.StatusOK, auditoria.StatusCode)
	var lista struct {
		Data []struct {
			Motivo string `json:"motivo"`
		} `json:"data"`
	}
	decodeJSON(t, auditoria, &lista)
	require.Len(t, lista.Data, 1)
	assert.Equal(t, "INSUFFICIENT_STOCK", lista.Data[0].Motivo)
}

func TestE2E_VentasConcurrentesNoSobrevenden(t *testing.T) {
	env := setupTestEnv(t)
	prod := env.crearProducto(t, "7790000000303", 10)
	env.ingresarLote(t, prod, "L-1", time.Now().UTC().AddDate(1, 0, 0), 10)

	var wg sync.WaitGroup
	codigos := make([]int, 2)
	for i := range codigos {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := env.vender(t, prod, 6)
			codigos[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codigos)

	inv := do(t, env.server, "GET", "/v1/inventario?producto_id="+prod+"&sucursal_id="+env.sucursal, nil, env.token)
	require.Equal(t, http.StatusOK, inv.StatusCode)
	var invs []struct {
		StockTotal int `json:"stock_total"`
		Lotes      []struct {
			Cantidad int  `json:"cantidad"`
			Activo   bool `json:"activo"`
		} `json:"lotes"`
	}
	decodeJSON(t, inv, &invs)
	require.Len(t, invs, 1)
	assert.Equal(t, 4, invs[0].StockTotal)

	suma := 0
	for _, l := range invs[0].Lotes {
		if l.Activo {
			suma += l.Cantidad
		}
	}
	assert.Equal(t, invs[0].StockTotal, suma, "aggregate must match the active lots")
}

func TestE2E_ConsultaPrecioPublica(t *testing.T) {
	env := setupTestEnv(t)
	prod := env.crearProducto(t, "7790000000404", 80)
	env.ingresarLote(t, prod, "L-1", time.Now().UTC().AddDate(1, 0, 0), 4)

	for i := 0; i < 2; i++ { // second call is served from the redis cache
		resp := do(t, env.server, "GET", "/v1/precio/7790000000404?sucursal_id="+env.sucursal, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var precio struct {
			StockDisponible int `json:"stock_disponible"`
		}
		decodeJSON(t, resp, &precio)
		assert.Equal(t, 4, precio.StockDisponible)
	}

	health := do(t, env.server, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, health.StatusCode)
	health.Body.Close()
}
