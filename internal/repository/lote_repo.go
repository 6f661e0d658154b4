package repository

import (
	"context"
	"time"

	"farmapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoteFilter restricts lot listings. Nil ids mean "any".
type LoteFilter struct {
	ProductoID       *uuid.UUID
	SucursalID       *uuid.UUID
	IncluirInactivos bool
}

// LoteRepository holds read-only lot and inventory queries. Every lot or
// inventory mutation goes through StockStore.
type LoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lote, error)
	List(ctx context.Context, filter LoteFilter) ([]model.Lote, error)
	// ProximosAVencer returns active lots with stock expiring in [desde, hasta].
	ProximosAVencer(ctx context.Context, sucursalID *uuid.UUID, desde, hasta time.Time) ([]model.Lote, error)
	// PrimerLoteVendible returns the next lot FIFO would consume, or gorm.ErrRecordNotFound.
	PrimerLoteVendible(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Lote, error)

	FindInventario(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Inventario, error)
	ListInventarios(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) ([]model.Inventario, error)
	Inconsistencias(ctx context.Context, sucursalID *uuid.UUID) ([]Inconsistencia, error)
}

// Inconsistencia is a (product, branch) pair whose aggregate differs from its lots.
type Inconsistencia struct {
	ProductoID uuid.UUID
	SucursalID uuid.UUID
	StockTotal int
	SumaLotes  int
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := r.db.WithContext(ctx).Preload("Producto").First(&l, "id = ?", id).Error
	return &l, err
}

func (r *loteRepo) List(ctx context.Context, filter LoteFilter) ([]model.Lote, error) {
	q := r.db.WithContext(ctx).Model(&model.Lote{})
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.SucursalID != nil {
		q = q.Where("sucursal_id = ?", *filter.SucursalID)
	}
	if !filter.IncluirInactivos {
		q = q.Where("activo = true")
	}
	var lotes []model.Lote
	err := q.Preload("Producto").Order("fecha_vencimiento ASC").Order("numero_lote ASC").Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ProximosAVencer(ctx context.Context, sucursalID *uuid.UUID, desde, hasta time.Time) ([]model.Lote, error) {
	q := r.db.WithContext(ctx).
		Where("activo = true AND cantidad > 0 AND fecha_vencimiento >= ? AND fecha_vencimiento <= ?", desde, hasta)
	if sucursalID != nil {
		q = q.Where("sucursal_id = ?", *sucursalID)
	}
	var lotes []model.Lote
	err := q.Preload("Producto").Order("fecha_vencimiento ASC").Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) PrimerLoteVendible(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND sucursal_id = ? AND activo = true AND cantidad > 0", productoID, sucursalID).
		Order("fecha_vencimiento ASC").Order("numero_lote ASC").
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loteRepo) FindInventario(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Inventario, error) {
	var inv model.Inventario
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND sucursal_id = ?", productoID, sucursalID).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *loteRepo) ListInventarios(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) ([]model.Inventario, error) {
	q := r.db.WithContext(ctx).Where("producto_id = ?", productoID)
	if sucursalID != nil {
		q = q.Where("sucursal_id = ?", *sucursalID)
	}
	var invs []model.Inventario
	err := q.Find(&invs).Error
	return invs, err
}

func (r *loteRepo) Inconsistencias(ctx context.Context, sucursalID *uuid.UUID) ([]Inconsistencia, error) {
	var rows []Inconsistencia
	q := r.db.WithContext(ctx).
		Table("inventarios i").
		Select(`i.producto_id, i.sucursal_id, i.stock_total,
			COALESCE((SELECT SUM(l.cantidad) FROM lotes l
			          WHERE l.producto_id = i.producto_id AND l.sucursal_id = i.sucursal_id
			            AND l.activo = true), 0) AS suma_lotes`)
	if sucursalID != nil {
		q = q.Where("i.sucursal_id = ?", *sucursalID)
	}
	err := r.db.WithContext(ctx).
		Table("(?) AS t", q).
		Where("t.stock_total <> t.suma_lotes").
		Scan(&rows).Error
	return rows, err
}
