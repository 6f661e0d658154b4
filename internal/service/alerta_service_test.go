package service

import (
	"context"
	"testing"

	"farmapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscanearVencimientos(t *testing.T) {
	productoID := uuid.New()
	sucursal := uuid.New()
	l1 := loteEn("A", 10, 4)
	l1.ProductoID, l1.SucursalID = productoID, sucursal
	l2 := loteEn("B", 40, 6)
	l2.ProductoID, l2.SucursalID = productoID, sucursal
	lejano := loteEn("C", 200, 6)
	lejano.ProductoID, lejano.SucursalID = productoID, sucursal

	alertas := &fakeAlertaRepo{}
	promos := &fakePromocionRepo{}
	svc := NewAlertaService(alertas, &stubLoteRepo{lotes: []model.Lote{l1, l2, lejano}}, promos,
		AlertaConfig{StockMinimo: 5, PromoSugeridaPct: decimal.NewFromInt(15)}, reloj)

	res, err := svc.EscanearVencimientos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.AlertasCreadas)
	assert.Equal(t, 1, res.PromocionesSugeridas)

	require.Len(t, promos.promos, 1)
	sugerida := promos.promos[0]
	assert.True(t, sugerida.Sugerida)
	assert.False(t, sugerida.Aprobada)
	assert.True(t, sugerida.PorcentajeDescuento.Equal(decimal.NewFromInt(15)))

	// same day again: nothing new
	res, err = svc.EscanearVencimientos(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.AlertasCreadas)
	assert.Zero(t, res.PromocionesSugeridas)
	assert.Len(t, alertas.alertas, 2)
}

func TestEvaluarStockBajo(t *testing.T) {
	productoID := uuid.New()
	sucursal := uuid.New()
	lotes := &stubLoteRepo{inventarios: []model.Inventario{{ProductoID: productoID, SucursalID: sucursal, StockTotal: 2}}}
	alertas := &fakeAlertaRepo{}
	svc := NewAlertaService(alertas, lotes, &fakePromocionRepo{}, AlertaConfig{StockMinimo: 5}, reloj)
	ctx := context.Background()

	creada, err := svc.EvaluarStockBajo(ctx, productoID, sucursal)
	require.NoError(t, err)
	assert.True(t, creada)

	creada, err = svc.EvaluarStockBajo(ctx, productoID, sucursal)
	require.NoError(t, err)
	assert.False(t, creada, "an unread alert is already pending")

	require.NoError(t, svc.MarcarLeida(ctx, alertas.alertas[0].ID))
	creada, err = svc.EvaluarStockBajo(ctx, productoID, sucursal)
	require.NoError(t, err)
	assert.True(t, creada)

	creada, err = svc.EvaluarStockBajo(ctx, uuid.New(), sucursal)
	require.NoError(t, err)
	assert.False(t, creada, "no inventory row means nothing to evaluate")
}

func TestMarcarLeida_NoEncontrada(t *testing.T) {
	svc := NewAlertaService(&fakeAlertaRepo{}, &stubLoteRepo{}, &fakePromocionRepo{}, AlertaConfig{}, reloj)
	assert.ErrorIs(t, svc.MarcarLeida(context.Background(), uuid.New()), ErrNoEncontrado)
}
