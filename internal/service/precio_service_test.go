package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"farmapos/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsultarPrecio_SinCache(t *testing.T) {
	sucursal := uuid.New()
	p := model.Producto{ID: uuid.New(), CodigoBarras: "7790001", Nombre: "Loratadina", Precio: decimal.NewFromInt(50), Activo: true}
	cercano := loteEn("L1", 20, 8)
	lotes := &stubLoteRepo{
		primero:     &cercano,
		inventarios: []model.Inventario{{ProductoID: p.ID, SucursalID: sucursal, StockTotal: 8}},
	}
	vigente := promo("20", ahora.AddDate(0, 0, -2), ahora.AddDate(0, 0, 30))
	vigente.ProductoID = p.ID
	promos := &fakePromocionRepo{promos: []model.Promocion{vigente}}

	svc := NewPrecioService(nuevoFakeProductos(p), lotes, promos, nil, nil, 0, reloj)

	resp, err := svc.Consultar(context.Background(), "7790001", sucursal)
	require.NoError(t, err)
	assert.Equal(t, 8, resp.StockDisponible)
	assert.True(t, resp.PrecioBase.Equal(decimal.NewFromInt(50)))
	assert.True(t, resp.PrecioFinal.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, resp.Promocion)
	assert.Contains(t, *resp.Promocion, "20%")

	assert.Equal(t, "closed", svc.EstadoCache())
	svc.Invalidar(context.Background(), p.ID)
}

func TestConsultarPrecio_SinLotesDevuelveBase(t *testing.T) {
	p := model.Producto{ID: uuid.New(), CodigoBarras: "7790002", Precio: decimal.NewFromInt(70), Activo: true}
	svc := NewPrecioService(nuevoFakeProductos(p), &stubLoteRepo{}, &fakePromocionRepo{}, nil, nil, 0, reloj)

	resp, err := svc.Consultar(context.Background(), "7790002", uuid.New())
	require.NoError(t, err)
	assert.Zero(t, resp.StockDisponible)
	assert.True(t, resp.PrecioFinal.Equal(decimal.NewFromInt(70)))
	assert.Nil(t, resp.Promocion)
}

func TestConsultarPrecio_NoEncontrado(t *testing.T) {
	svc := NewPrecioService(nuevoFakeProductos(), &stubLoteRepo{}, &fakePromocionRepo{}, nil, nil, 0, reloj)
	_, err := svc.Consultar(context.Background(), "000", uuid.New())
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestConsultarPrecio_CacheCaidaQuedaEnLog(t *testing.T) {
	var buf bytes.Buffer
	anterior := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = anterior })

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	p := model.Producto{ID: uuid.New(), CodigoBarras: "7790003", Precio: decimal.NewFromInt(30), Activo: true}
	svc := NewPrecioService(nuevoFakeProductos(p), &stubLoteRepo{}, &fakePromocionRepo{}, rdb, nil, time.Minute, reloj)

	resp, err := svc.Consultar(context.Background(), "7790003", uuid.New())
	require.NoError(t, err, "a cache outage must not fail the price check")
	assert.True(t, resp.PrecioFinal.Equal(decimal.NewFromInt(30)))
	assert.Contains(t, buf.String(), "precio cache: no se pudo guardar")
	assert.Contains(t, buf.String(), "7790003")
}
