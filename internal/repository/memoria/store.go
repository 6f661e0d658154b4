// Package memoria is an in-process StockStore for tests. Transactions are
// serialized by a single mutex and applied copy-on-write, so a failed fn
// leaves no trace.
package memoria

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"farmapos/internal/model"
	"farmapos/internal/repository"

	"github.com/google/uuid"
)

type clave struct {
	producto uuid.UUID
	sucursal uuid.UUID
}

type estado struct {
	productos   map[uuid.UUID]model.Producto
	inventarios map[clave]model.Inventario
	lotes       map[uuid.UUID]model.Lote
	promociones map[uuid.UUID]model.Promocion
	ventas      []model.Venta
	movimientos []model.MovimientoStock
}

func nuevoEstado() *estado {
	return &estado{
		productos:   make(map[uuid.UUID]model.Producto),
		inventarios: make(map[clave]model.Inventario),
		lotes:       make(map[uuid.UUID]model.Lote),
		promociones: make(map[uuid.UUID]model.Promocion),
	}
}

func (e *estado) clonar() *estado {
	c := nuevoEstado()
	for k, v := range e.productos {
		c.productos[k] = v
	}
	for k, v := range e.inventarios {
		c.inventarios[k] = v
	}
	for k, v := range e.lotes {
		c.lotes[k] = v
	}
	for k, v := range e.promociones {
		c.promociones[k] = v
	}
	c.ventas = append([]model.Venta(nil), e.ventas...)
	c.movimientos = append([]model.MovimientoStock(nil), e.movimientos...)
	return c
}

// Store implements repository.StockStore and repository.IntentoWriter.
type Store struct {
	mu     sync.Mutex
	estado *estado

	imu      sync.Mutex
	intentos []model.IntentoBloqueado

	// ErrRegistro, when set, is returned by Registrar instead of storing the row.
	ErrRegistro error
}

var (
	_ repository.StockStore    = (*Store)(nil)
	_ repository.IntentoWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{estado: nuevoEstado()}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.StockTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	trabajo := s.estado.clonar()
	if err := fn(&stockTx{e: trabajo}); err != nil {
		return err
	}
	s.estado = trabajo
	return nil
}

func (s *Store) Registrar(ctx context.Context, i *model.IntentoBloqueado) error {
	if s.ErrRegistro != nil {
		return s.ErrRegistro
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	s.imu.Lock()
	s.intentos = append(s.intentos, *i)
	s.imu.Unlock()
	return nil
}

// ── Seeding ──────────────────────────────────────────────────────────────────

func (s *Store) AgregarProducto(p model.Producto) model.Producto {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.mu.Lock()
	s.estado.productos[p.ID] = p
	s.mu.Unlock()
	return p
}

// AgregarLote stores l and adds its quantity to the matching inventory row,
// creating the row when missing.
func (s *Store) AgregarLote(l model.Lote) model.Lote {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estado.lotes[l.ID] = l
	k := clave{l.ProductoID, l.SucursalID}
	inv, ok := s.estado.inventarios[k]
	if !ok {
		inv = model.Inventario{ID: uuid.New(), ProductoID: l.ProductoID, SucursalID: l.SucursalID}
	}
	if l.Activo {
		inv.StockTotal += l.Cantidad
	}
	s.estado.inventarios[k] = inv
	return l
}

// FijarStockTotal overwrites an inventory aggregate without touching lots.
func (s *Store) FijarStockTotal(productoID, sucursalID uuid.UUID, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := clave{productoID, sucursalID}
	inv, ok := s.estado.inventarios[k]
	if !ok {
		inv = model.Inventario{ID: uuid.New(), ProductoID: productoID, SucursalID: sucursalID}
	}
	inv.StockTotal = total
	s.estado.inventarios[k] = inv
}

func (s *Store) AgregarPromocion(p model.Promocion) model.Promocion {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.mu.Lock()
	s.estado.promociones[p.ID] = p
	s.mu.Unlock()
	return p
}

// ── Inspection ───────────────────────────────────────────────────────────────

func (s *Store) Lote(id uuid.UUID) (model.Lote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.estado.lotes[id]
	return l, ok
}

// StockTotal returns the inventory aggregate, or -1 when the row does not exist.
func (s *Store) StockTotal(productoID, sucursalID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.estado.inventarios[clave{productoID, sucursalID}]
	if !ok {
		return -1
	}
	return inv.StockTotal
}

// SumaLotes returns the stock held by the active lots of the pair.
func (s *Store) SumaLotes(productoID, sucursalID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, l := range s.estado.lotes {
		if l.ProductoID == productoID && l.SucursalID == sucursalID && l.Activo {
			total += l.Cantidad
		}
	}
	return total
}

func (s *Store) Ventas() []model.Venta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Venta(nil), s.estado.ventas...)
}

func (s *Store) Movimientos() []model.MovimientoStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.MovimientoStock(nil), s.estado.movimientos...)
}

func (s *Store) Intentos() []model.IntentoBloqueado {
	s.imu.Lock()
	defer s.imu.Unlock()
	return append([]model.IntentoBloqueado(nil), s.intentos...)
}

// ── StockTx ──────────────────────────────────────────────────────────────────

type stockTx struct{ e *estado }

func (t *stockTx) FindProducto(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := t.e.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (t *stockTx) LockInventario(_ context.Context, productoID, sucursalID uuid.UUID) (*model.Inventario, error) {
	inv, ok := t.e.inventarios[clave{productoID, sucursalID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (t *stockTx) LockLotesActivos(_ context.Context, productoID, sucursalID uuid.UUID) ([]model.Lote, error) {
	var lotes []model.Lote
	for _, l := range t.e.lotes {
		if l.ProductoID == productoID && l.SucursalID == sucursalID && l.Activo && l.Cantidad > 0 {
			lotes = append(lotes, l)
		}
	}
	sort.Slice(lotes, func(i, j int) bool {
		if !lotes[i].FechaVencimiento.Equal(lotes[j].FechaVencimiento) {
			return lotes[i].FechaVencimiento.Before(lotes[j].FechaVencimiento)
		}
		return lotes[i].NumeroLote < lotes[j].NumeroLote
	})
	return lotes, nil
}

func (t *stockTx) LockLote(_ context.Context, id uuid.UUID) (*model.Lote, error) {
	l, ok := t.e.lotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (t *stockTx) ExisteNumeroLote(_ context.Context, productoID uuid.UUID, numeroLote string) (bool, error) {
	for _, l := range t.e.lotes {
		if l.ProductoID == productoID && l.NumeroLote == numeroLote {
			return true, nil
		}
	}
	return false, nil
}

func (t *stockTx) PromocionesAprobadas(_ context.Context, productoID uuid.UUID, now time.Time) ([]model.Promocion, error) {
	var promos []model.Promocion
	for _, p := range t.e.promociones {
		if p.ProductoID == productoID && p.Vigente(now) {
			promos = append(promos, p)
		}
	}
	sort.Slice(promos, func(i, j int) bool {
		a, b := promos[i], promos[j]
		if c := a.PorcentajeDescuento.Cmp(b.PorcentajeDescuento); c != 0 {
			return c > 0
		}
		if !a.FechaInicio.Equal(b.FechaInicio) {
			return a.FechaInicio.Before(b.FechaInicio)
		}
		return a.ID.String() < b.ID.String()
	})
	return promos, nil
}

func (t *stockTx) CrearLote(_ context.Context, l *model.Lote) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	for _, existente := range t.e.lotes {
		if existente.ProductoID == l.ProductoID && existente.NumeroLote == l.NumeroLote {
			return errors.New("memoria: numero_lote duplicado")
		}
	}
	t.e.lotes[l.ID] = *l
	return nil
}

func (t *stockTx) GuardarLote(_ context.Context, l *model.Lote) error {
	actual, ok := t.e.lotes[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	actual.Cantidad = l.Cantidad
	actual.Activo = l.Activo
	t.e.lotes[l.ID] = actual
	return nil
}

func (t *stockTx) CrearInventario(_ context.Context, inv *model.Inventario) error {
	k := clave{inv.ProductoID, inv.SucursalID}
	if _, ok := t.e.inventarios[k]; ok {
		return nil
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	t.e.inventarios[k] = *inv
	return nil
}

func (t *stockTx) GuardarInventario(_ context.Context, inv *model.Inventario) error {
	k := clave{inv.ProductoID, inv.SucursalID}
	actual, ok := t.e.inventarios[k]
	if !ok {
		return repository.ErrNotFound
	}
	actual.StockTotal = inv.StockTotal
	actual.FechaRevision = inv.FechaRevision
	t.e.inventarios[k] = actual
	return nil
}

func (t *stockTx) CrearVenta(_ context.Context, v *model.Venta) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	detalles := make([]model.DetalleVenta, len(v.Detalles))
	for i := range v.Detalles {
		if v.Detalles[i].ID == uuid.Nil {
			v.Detalles[i].ID = uuid.New()
		}
		v.Detalles[i].VentaID = v.ID
		detalles[i] = v.Detalles[i]
	}
	copia := *v
	copia.Detalles = detalles
	t.e.ventas = append(t.e.ventas, copia)
	return nil
}

func (t *stockTx) CrearMovimiento(_ context.Context, m *model.MovimientoStock) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	t.e.movimientos = append(t.e.movimientos, *m)
	return nil
}
