package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/model"
	"farmapos/internal/repository/memoria"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ahora = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func reloj() time.Time { return ahora }

// ── Fixture ──────────────────────────────────────────────────────────────────

type ventaFixture struct {
	store    *memoria.Store
	svc      VentaService
	sucursal uuid.UUID
}

func nuevaVentaFixture(t *testing.T) *ventaFixture {
	t.Helper()
	store := memoria.New()
	return &ventaFixture{
		store:    store,
		svc:      NewVentaService(store, store, nil, nil, reloj),
		sucursal: uuid.New(),
	}
}

func (f *ventaFixture) producto(nombre string, precio float64) model.Producto {
	return f.store.AgregarProducto(model.Producto{
		CodigoBarras: uuid.NewString()[:13],
		Nombre:       nombre,
		Precio:       decimal.NewFromFloat(precio),
		Estado:       model.EstadoProductoActivo,
		Activo:       true,
	})
}

func (f *ventaFixture) lote(p model.Producto, numero string, venceEnDias, cantidad int) model.Lote {
	return f.store.AgregarLote(model.Lote{
		ProductoID:       p.ID,
		SucursalID:       f.sucursal,
		NumeroLote:       numero,
		FechaVencimiento: ahora.AddDate(0, 0, venceEnDias),
		Cantidad:         cantidad,
		Activo:           true,
	})
}

func (f *ventaFixture) vendedor() Actor {
	s := f.sucursal
	return Actor{UsuarioID: uuid.New(), Rol: model.RolVendedor, SucursalID: &s}
}

func carrito(lineas ...dto.LineaVentaRequest) dto.ProcesarVentaRequest {
	return dto.ProcesarVentaRequest{Lineas: lineas}
}

func linea(p model.Producto, cantidad int) dto.LineaVentaRequest {
	return dto.LineaVentaRequest{ProductoID: p.ID.String(), Cantidad: cantidad}
}

func requireRechazo(t *testing.T, err error, motivo model.MotivoBloqueo) *Rechazo {
	t.Helper()
	require.Error(t, err)
	r, ok := ComoRechazo(err)
	require.True(t, ok, "expected *Rechazo, got %v", err)
	assert.Equal(t, motivo, r.Motivo)
	return r
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestProcesarVenta_FIFOConsumeLotesPorVencimiento(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Ibuprofeno 400mg", 10)
	l1 := f.lote(p, "A-001", 100, 3)
	l2 := f.lote(p, "A-002", 120, 5)
	l3 := f.lote(p, "A-003", 200, 100)

	resp, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 6)))
	require.NoError(t, err)

	require.Len(t, resp.Detalles, 2)
	assert.Equal(t, l1.ID.String(), resp.Detalles[0].LoteID)
	assert.Equal(t, 3, resp.Detalles[0].Cantidad)
	assert.Equal(t, l2.ID.String(), resp.Detalles[1].LoteID)
	assert.Equal(t, 3, resp.Detalles[1].Cantidad)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(60)))
	assert.False(t, resp.VentaError)

	got1, _ := f.store.Lote(l1.ID)
	assert.Equal(t, 0, got1.Cantidad)
	assert.False(t, got1.Activo, "a lot emptied by a sale is deactivated")
	got2, _ := f.store.Lote(l2.ID)
	assert.Equal(t, 2, got2.Cantidad)
	assert.True(t, got2.Activo)
	got3, _ := f.store.Lote(l3.ID)
	assert.Equal(t, 100, got3.Cantidad)

	assert.Equal(t, 102, f.store.StockTotal(p.ID, f.sucursal))
	assert.Equal(t, f.store.SumaLotes(p.ID, f.sucursal), f.store.StockTotal(p.ID, f.sucursal))

	movs := f.store.Movimientos()
	require.Len(t, movs, 2)
	assert.Equal(t, model.MovimientoVenta, movs[0].Tipo)
	assert.Equal(t, -3, movs[0].Cantidad)
	assert.Equal(t, 108, movs[0].StockAnterior)
	assert.Equal(t, 105, movs[0].StockNuevo)
	assert.Equal(t, 102, movs[1].StockNuevo)

	assert.Len(t, f.store.Ventas(), 1)
	assert.Empty(t, f.store.Intentos())
}

func TestProcesarVenta_LoteVencidoAbortaVenta(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Amoxicilina 500mg", 25)
	vencido := f.lote(p, "V-001", -1, 4)
	f.lote(p, "V-002", 300, 50)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 2)))
	r := requireRechazo(t, err, model.MotivoProductoVencido)
	require.NotNil(t, r.LoteID)
	assert.Equal(t, vencido.ID, *r.LoteID)

	got, _ := f.store.Lote(vencido.ID)
	assert.Equal(t, 4, got.Cantidad, "rejected sale must not touch lots")
	assert.Equal(t, 54, f.store.StockTotal(p.ID, f.sucursal))
	assert.Empty(t, f.store.Ventas())
	assert.Empty(t, f.store.Movimientos())

	intentos := f.store.Intentos()
	require.Len(t, intentos, 1)
	assert.Equal(t, model.MotivoProductoVencido, intentos[0].Motivo)
	assert.Equal(t, 2, intentos[0].CantidadIntento)
}

func TestProcesarVenta_TodoONada(t *testing.T) {
	f := nuevaVentaFixture(t)
	a := f.producto("Paracetamol 1g", 5)
	b := f.producto("Loratadina 10mg", 8)
	la := f.lote(a, "P-1", 90, 10)
	f.lote(b, "L-1", 90, 1)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(a, 4), linea(b, 2)))
	r := requireRechazo(t, err, model.MotivoStockInsuficiente)
	assert.Equal(t, b.ID, *r.ProductoID)

	got, _ := f.store.Lote(la.ID)
	assert.Equal(t, 10, got.Cantidad, "first line must be rolled back")
	assert.Equal(t, 10, f.store.StockTotal(a.ID, f.sucursal))
	assert.Empty(t, f.store.Ventas())
	assert.Empty(t, f.store.Movimientos())
	assert.Len(t, f.store.Intentos(), 1)
}

func TestProcesarVenta_CarritoVacio(t *testing.T) {
	f := nuevaVentaFixture(t)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito())
	requireRechazo(t, err, model.MotivoCarritoVacio)

	intentos := f.store.Intentos()
	require.Len(t, intentos, 1)
	assert.Nil(t, intentos[0].ProductoID)
}

func TestProcesarVenta_ProductoNoEncontrado(t *testing.T) {
	f := nuevaVentaFixture(t)
	fantasma := model.Producto{ID: uuid.New()}

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(fantasma, 1)))
	r := requireRechazo(t, err, model.MotivoProductoNoEncontrado)
	assert.Equal(t, fantasma.ID, *r.ProductoID)
}

func TestProcesarVenta_ProductoInactivo(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Jarabe", 12)
	p.Activo = false
	f.store.AgregarProducto(p)
	f.lote(p, "J-1", 90, 10)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 1)))
	requireRechazo(t, err, model.MotivoProductoInactivo)
}

func TestProcesarVenta_RecetaSoloPersonal(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Clonazepam 2mg", 30)
	p.RequiereReceta = true
	f.store.AgregarProducto(p)
	f.lote(p, "C-1", 90, 10)

	cliente := Actor{UsuarioID: uuid.New(), Rol: model.RolCliente}
	req := carrito(linea(p, 1))
	suc := f.sucursal.String()
	req.SucursalID = &suc

	_, err := f.svc.ProcesarVenta(context.Background(), cliente, req)
	requireRechazo(t, err, model.MotivoRequiereReceta)

	resp, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 1)))
	require.NoError(t, err)
	assert.Len(t, resp.Detalles, 1)
}

func TestProcesarVenta_StockInconsistente(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Omeprazol 20mg", 15)
	f.lote(p, "O-1", 90, 3)
	f.store.FijarStockTotal(p.ID, f.sucursal, 10)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 5)))
	requireRechazo(t, err, model.MotivoStockInconsistente)
	assert.Equal(t, 10, f.store.StockTotal(p.ID, f.sucursal))
}

func TestProcesarVenta_SinInventarioEsStockCero(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Vitamina C", 7)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 1)))
	requireRechazo(t, err, model.MotivoStockInsuficiente)
}

func TestProcesarVenta_PrecioPromocionSoloLotesProximos(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Protector solar", 100)
	cerca := f.lote(p, "S-1", 30, 2)
	lejos := f.lote(p, "S-2", 365, 5)
	f.store.AgregarPromocion(model.Promocion{
		ProductoID:          p.ID,
		PorcentajeDescuento: decimal.NewFromInt(20),
		FechaInicio:         ahora.AddDate(0, 0, -1),
		FechaFin:            ahora.AddDate(0, 0, 10),
		Aprobada:            true,
		Activo:              true,
	})

	resp, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 3)))
	require.NoError(t, err)
	require.Len(t, resp.Detalles, 2)

	assert.Equal(t, cerca.ID.String(), resp.Detalles[0].LoteID)
	assert.Equal(t, "80", resp.Detalles[0].PrecioUnitario.String())
	assert.Equal(t, lejos.ID.String(), resp.Detalles[1].LoteID)
	assert.Equal(t, "100", resp.Detalles[1].PrecioUnitario.String())
	assert.Equal(t, "260", resp.Total.String())
}

func TestProcesarVenta_PromocionNoAprobadaNoAplica(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Crema", 50)
	f.lote(p, "K-1", 10, 5)
	f.store.AgregarPromocion(model.Promocion{
		ProductoID:          p.ID,
		PorcentajeDescuento: decimal.NewFromInt(50),
		FechaInicio:         ahora.AddDate(0, 0, -1),
		FechaFin:            ahora.AddDate(0, 0, 10),
		Aprobada:            false,
		Activo:              true,
	})

	resp, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 1)))
	require.NoError(t, err)
	assert.Equal(t, "50", resp.Total.String())
}

func TestProcesarVenta_Concurrente(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Aspirina", 3)
	f.lote(p, "AS-1", 90, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 6)))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireRechazo(t, err, model.MotivoStockInsuficiente)
	}
	assert.Equal(t, 1, ok, "exactly one of two oversubscribing sales commits")
	assert.Equal(t, 4, f.store.StockTotal(p.ID, f.sucursal))
	assert.Equal(t, 4, f.store.SumaLotes(p.ID, f.sucursal))
}

func TestProcesarVenta_LineasRepetidasDelMismoProducto(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Gasas", 2)
	f.lote(p, "G-1", 90, 3)
	f.lote(p, "G-2", 120, 3)

	resp, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(linea(p, 2), linea(p, 3)))
	require.NoError(t, err)
	assert.Len(t, resp.Detalles, 3)
	assert.Equal(t, 1, f.store.StockTotal(p.ID, f.sucursal))
	assert.Equal(t, 1, f.store.SumaLotes(p.ID, f.sucursal))
}

func TestProcesarVenta_SucursalAjena(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Alcohol", 4)
	f.lote(p, "AL-1", 90, 3)

	otra := uuid.NewString()
	req := carrito(linea(p, 1))
	req.SucursalID = &otra

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), req)
	assert.ErrorIs(t, err, ErrSucursalAjena)
	assert.Empty(t, f.store.Intentos(), "authorization errors are not sale rejections")
}

func TestProcesarVenta_SucursalRequerida(t *testing.T) {
	f := nuevaVentaFixture(t)
	admin := Actor{UsuarioID: uuid.New(), Rol: model.RolAdmin}

	_, err := f.svc.ProcesarVenta(context.Background(), admin, carrito())
	assert.ErrorIs(t, err, ErrSucursalRequerida)
}

func TestProcesarVenta_ClienteQuedaComoComprador(t *testing.T) {
	f := nuevaVentaFixture(t)
	p := f.producto("Curitas", 1)
	f.lote(p, "CU-1", 90, 10)

	cliente := Actor{UsuarioID: uuid.New(), Rol: model.RolCliente}
	suc := f.sucursal.String()
	otro := uuid.NewString()
	req := carrito(linea(p, 2))
	req.SucursalID = &suc
	req.ClienteID = &otro

	resp, err := f.svc.ProcesarVenta(context.Background(), cliente, req)
	require.NoError(t, err)
	require.NotNil(t, resp.ClienteID)
	assert.Equal(t, cliente.UsuarioID.String(), *resp.ClienteID)
}

func TestProcesarVenta_FallaDeAuditoriaNoOcultaRechazo(t *testing.T) {
	f := nuevaVentaFixture(t)
	f.store.ErrRegistro = errors.New("db down")

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito())
	requireRechazo(t, err, model.MotivoCarritoVacio)
}

func TestProcesarVenta_LineaInvalida(t *testing.T) {
	f := nuevaVentaFixture(t)

	_, err := f.svc.ProcesarVenta(context.Background(), f.vendedor(), carrito(dto.LineaVentaRequest{ProductoID: "x", Cantidad: 1}))
	assert.ErrorIs(t, err, ErrDatosInvalidos)
}
