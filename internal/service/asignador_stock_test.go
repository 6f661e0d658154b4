package service

import (
	"testing"

	"farmapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loteEn(numero string, venceEnDias, cantidad int) model.Lote {
	return model.Lote{
		ID:               uuid.New(),
		NumeroLote:       numero,
		FechaVencimiento: ahora.AddDate(0, 0, venceEnDias),
		Cantidad:         cantidad,
		Activo:           true,
	}
}

func TestAsignarFIFO_ReparteEnOrden(t *testing.T) {
	p := model.Producto{ID: uuid.New(), Nombre: "Ibuprofeno", Precio: decimal.NewFromInt(10)}
	ledger := nuevoLedger([]model.Lote{
		loteEn("A", 100, 3),
		loteEn("B", 200, 5),
		loteEn("C", 300, 100),
	}, ahora)

	asig, rechazo := asignarFIFO(p, "s1", ledger, 6, nil)
	require.Nil(t, rechazo)
	require.Len(t, asig, 2)
	assert.Equal(t, "A", asig[0].lote.NumeroLote)
	assert.Equal(t, 3, asig[0].cantidad)
	assert.Equal(t, "B", asig[1].lote.NumeroLote)
	assert.Equal(t, 3, asig[1].cantidad)
	assert.True(t, asig[1].subtotal().Equal(decimal.NewFromInt(30)))

	assert.Equal(t, 3, ledger.lotes[0].Cantidad, "allocation must not touch the ledger")
}

func TestAsignarFIFO_OmiteLotesAgotados(t *testing.T) {
	p := model.Producto{ID: uuid.New(), Precio: decimal.NewFromInt(10)}
	agotado := loteEn("A", 10, 0)
	agotado.Activo = false
	ledger := nuevoLedger([]model.Lote{agotado, loteEn("B", 200, 4)}, ahora)

	asig, rechazo := asignarFIFO(p, "s1", ledger, 4, nil)
	require.Nil(t, rechazo)
	require.Len(t, asig, 1)
	assert.Equal(t, 1, asig[0].indice)
}

func TestAsignarFIFO_LoteVencidoRechazaLaLinea(t *testing.T) {
	p := model.Producto{ID: uuid.New(), Precio: decimal.NewFromInt(10)}
	vencido := loteEn("V", -1, 5)
	ledger := nuevoLedger([]model.Lote{vencido, loteEn("B", 200, 10)}, ahora)

	asig, rechazo := asignarFIFO(p, "s1", ledger, 2, nil)
	assert.Nil(t, asig)
	require.NotNil(t, rechazo)
	assert.Equal(t, model.MotivoProductoVencido, rechazo.Motivo)
	require.NotNil(t, rechazo.LoteID)
	assert.Equal(t, vencido.ID, *rechazo.LoteID)
}

func TestAsignarFIFO_FaltanteEsInconsistencia(t *testing.T) {
	p := model.Producto{ID: uuid.New(), Precio: decimal.NewFromInt(10)}
	ledger := nuevoLedger([]model.Lote{loteEn("A", 100, 2)}, ahora)

	_, rechazo := asignarFIFO(p, "s1", ledger, 5, nil)
	require.NotNil(t, rechazo)
	assert.Equal(t, model.MotivoStockInconsistente, rechazo.Motivo)
}

func TestLoteLedger(t *testing.T) {
	ledger := nuevoLedger([]model.Lote{loteEn("A", -3, 2), loteEn("B", 50, 4)}, ahora)
	assert.Equal(t, 6, ledger.Disponible())

	primero, ok := ledger.PrimerVendible()
	require.True(t, ok)
	assert.Equal(t, "A", primero.NumeroLote, "an expired head lot is still reported")

	l := ledger.Consumir(0, 2)
	assert.Equal(t, 0, l.Cantidad)
	assert.False(t, l.Activo)
	assert.Equal(t, 4, ledger.Disponible())

	ledger.Consumir(1, 4)
	_, ok = ledger.PrimerVendible()
	assert.False(t, ok)
}

func TestVerificarElegibilidad(t *testing.T) {
	activo := &model.Producto{ID: uuid.New(), Activo: true, Estado: model.EstadoProductoActivo}
	assert.Nil(t, VerificarElegibilidad(activo, model.RolCliente))

	baja := &model.Producto{ID: uuid.New(), Activo: false, Estado: model.EstadoProductoActivo}
	r := VerificarElegibilidad(baja, model.RolAdmin)
	require.NotNil(t, r)
	assert.Equal(t, model.MotivoProductoInactivo, r.Motivo)

	inactivo := &model.Producto{ID: uuid.New(), Activo: true, Estado: model.EstadoProductoInactivo}
	require.NotNil(t, VerificarElegibilidad(inactivo, model.RolAdmin))

	receta := &model.Producto{ID: uuid.New(), Activo: true, Estado: model.EstadoProductoActivo, RequiereReceta: true}
	r = VerificarElegibilidad(receta, model.RolCliente)
	require.NotNil(t, r)
	assert.Equal(t, model.MotivoRequiereReceta, r.Motivo)
	assert.Nil(t, VerificarElegibilidad(receta, model.RolVendedor))
	assert.Nil(t, VerificarElegibilidad(receta, model.RolFarmaceutico))
}
