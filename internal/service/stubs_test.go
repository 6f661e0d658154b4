package service

import (
	"context"
	"sync"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/model"
	"farmapos/internal/repository"
	"farmapos/internal/repository/memoria"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// spyInvalidador records every product whose cached price was dropped.
type spyInvalidador struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (s *spyInvalidador) Invalidar(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
}

// stubLoteRepo answers read queries from a memoria.Store and from fixed slices.
type stubLoteRepo struct {
	store       *memoria.Store
	lotes       []model.Lote
	inventarios []model.Inventario
	primero     *model.Lote
}

func (r *stubLoteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lote, error) {
	if r.store != nil {
		if l, ok := r.store.Lote(id); ok {
			return &l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubLoteRepo) List(_ context.Context, _ repository.LoteFilter) ([]model.Lote, error) {
	return r.lotes, nil
}

func (r *stubLoteRepo) ProximosAVencer(_ context.Context, _ *uuid.UUID, desde, hasta time.Time) ([]model.Lote, error) {
	var out []model.Lote
	for _, l := range r.lotes {
		if l.Activo && l.Cantidad > 0 && !l.FechaVencimiento.Before(desde) && !l.FechaVencimiento.After(hasta) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLoteRepo) PrimerLoteVendible(_ context.Context, _, _ uuid.UUID) (*model.Lote, error) {
	if r.primero == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.primero, nil
}

func (r *stubLoteRepo) FindInventario(_ context.Context, productoID, sucursalID uuid.UUID) (*model.Inventario, error) {
	for i := range r.inventarios {
		if r.inventarios[i].ProductoID == productoID && r.inventarios[i].SucursalID == sucursalID {
			return &r.inventarios[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubLoteRepo) ListInventarios(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]model.Inventario, error) {
	return r.inventarios, nil
}

func (r *stubLoteRepo) Inconsistencias(_ context.Context, _ *uuid.UUID) ([]repository.Inconsistencia, error) {
	return nil, nil
}

var _ repository.LoteRepository = (*stubLoteRepo)(nil)

// fakeProductoRepo keeps products in a map keyed by id.
type fakeProductoRepo struct {
	productos map[uuid.UUID]*model.Producto
}

func nuevoFakeProductos(ps ...model.Producto) *fakeProductoRepo {
	r := &fakeProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
	for i := range ps {
		p := ps[i]
		r.productos[p.ID] = &p
	}
	return r
}

func (r *fakeProductoRepo) Create(_ context.Context, p *model.Producto) error {
	for _, existente := range r.productos {
		if existente.CodigoBarras == p.CodigoBarras {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	c := *p
	r.productos[p.ID] = &c
	return nil
}

func (r *fakeProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakeProductoRepo) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	for _, p := range r.productos {
		if p.CodigoBarras == barcode && p.Activo {
			c := *p
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductoRepo) List(_ context.Context, _ dto.ProductoFilter, _ bool, _ time.Time) ([]model.Producto, int64, error) {
	out := make([]model.Producto, 0, len(r.productos))
	for _, p := range r.productos {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductoRepo) Update(_ context.Context, p *model.Producto) error {
	c := *p
	r.productos[p.ID] = &c
	return nil
}

func (r *fakeProductoRepo) UpdateEstado(_ context.Context, id uuid.UUID, estado string) error {
	if p, ok := r.productos[id]; ok {
		p.Estado = estado
	}
	return nil
}

func (r *fakeProductoRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if p, ok := r.productos[id]; ok {
		p.Activo = false
	}
	return nil
}

func (r *fakeProductoRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	if p, ok := r.productos[id]; ok {
		p.Activo = true
	}
	return nil
}

// fakePromocionRepo keeps promotions in insertion order.
type fakePromocionRepo struct {
	promos []model.Promocion
}

func (r *fakePromocionRepo) Create(_ context.Context, p *model.Promocion) error {
	r.promos = append(r.promos, *p)
	return nil
}

func (r *fakePromocionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Promocion, error) {
	for i := range r.promos {
		if r.promos[i].ID == id {
			c := r.promos[i]
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePromocionRepo) Update(_ context.Context, p *model.Promocion) error {
	for i := range r.promos {
		if r.promos[i].ID == p.ID {
			r.promos[i] = *p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakePromocionRepo) List(_ context.Context, f repository.PromocionFilter) ([]model.Promocion, error) {
	var out []model.Promocion
	for _, p := range r.promos {
		if !p.Activo {
			continue
		}
		if f.ProductoID != nil && p.ProductoID != *f.ProductoID {
			continue
		}
		if f.SoloVigentes && !p.Vigente(f.Now) {
			continue
		}
		if f.Pendientes && p.Aprobada {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePromocionRepo) TieneActiva(_ context.Context, productoID uuid.UUID, now time.Time) (bool, error) {
	for _, p := range r.promos {
		if p.ProductoID == productoID && p.Activo && !p.FechaFin.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePromocionRepo) ContarAprobadasActivas(_ context.Context, productoID uuid.UUID, excluir uuid.UUID) (int64, error) {
	var n int64
	for _, p := range r.promos {
		if p.ProductoID == productoID && p.Aprobada && p.Activo && p.ID != excluir {
			n++
		}
	}
	return n, nil
}

// fakeAlertaRepo records created alerts.
type fakeAlertaRepo struct {
	alertas []model.Alerta
}

func (r *fakeAlertaRepo) Create(_ context.Context, a *model.Alerta) error {
	r.alertas = append(r.alertas, *a)
	return nil
}

func (r *fakeAlertaRepo) ExisteVencimientoDelDia(_ context.Context, loteID uuid.UUID, dia time.Time) (bool, error) {
	y, m, d := dia.Date()
	for _, a := range r.alertas {
		ay, am, ad := a.Fecha.Date()
		if a.Tipo == model.AlertaVencimiento && a.LoteID != nil && *a.LoteID == loteID && ay == y && am == m && ad == d {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertaRepo) ExisteStockBajoNoLeida(_ context.Context, productoID, sucursalID uuid.UUID) (bool, error) {
	for _, a := range r.alertas {
		if a.Tipo == model.AlertaStockBajo && !a.Leida && a.ProductoID == productoID &&
			a.SucursalID != nil && *a.SucursalID == sucursalID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertaRepo) List(_ context.Context, _ dto.AlertaFilter) ([]model.Alerta, int64, error) {
	return r.alertas, int64(len(r.alertas)), nil
}

func (r *fakeAlertaRepo) MarcarLeida(_ context.Context, id uuid.UUID) error {
	for i := range r.alertas {
		if r.alertas[i].ID == id {
			r.alertas[i].Leida = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var (
	_ repository.ProductoRepository  = (*fakeProductoRepo)(nil)
	_ repository.PromocionRepository = (*fakePromocionRepo)(nil)
	_ repository.AlertaRepository    = (*fakeAlertaRepo)(nil)
)
