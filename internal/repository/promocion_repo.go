package repository

import (
	"context"
	"time"

	"farmapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromocionFilter restricts promotion listings.
type PromocionFilter struct {
	ProductoID   *uuid.UUID
	SoloVigentes bool // approved, active and containing Now
	Pendientes   bool // active, not yet approved
	Now          time.Time
}

type PromocionRepository interface {
	Create(ctx context.Context, p *model.Promocion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promocion, error)
	Update(ctx context.Context, p *model.Promocion) error
	List(ctx context.Context, filter PromocionFilter) ([]model.Promocion, error)
	// TieneActiva reports whether the product has an active promotion (approved or
	// not) that has not ended at now.
	TieneActiva(ctx context.Context, productoID uuid.UUID, now time.Time) (bool, error)
	// ContarAprobadasActivas counts approved active promotions, excluding one id.
	ContarAprobadasActivas(ctx context.Context, productoID uuid.UUID, excluir uuid.UUID) (int64, error)
}

type promocionRepo struct{ db *gorm.DB }

func NewPromocionRepository(db *gorm.DB) PromocionRepository { return &promocionRepo{db: db} }

func (r *promocionRepo) Create(ctx context.Context, p *model.Promocion) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *promocionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Promocion, error) {
	var p model.Promocion
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promocionRepo) Update(ctx context.Context, p *model.Promocion) error {
	return r.db.WithContext(ctx).Omit("Producto").Save(p).Error
}

func (r *promocionRepo) List(ctx context.Context, filter PromocionFilter) ([]model.Promocion, error) {
	q := r.db.WithContext(ctx).Model(&model.Promocion{}).Where("activo = true")
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.SoloVigentes {
		q = q.Where("aprobada = true AND fecha_inicio <= ? AND fecha_fin >= ?", filter.Now, filter.Now)
	}
	if filter.Pendientes {
		q = q.Where("aprobada = false")
	}
	var promos []model.Promocion
	err := q.Order("porcentaje_descuento DESC").Order("fecha_inicio ASC").Order("id ASC").Find(&promos).Error
	return promos, err
}

func (r *promocionRepo) TieneActiva(ctx context.Context, productoID uuid.UUID, now time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Promocion{}).
		Where("producto_id = ? AND activo = true AND fecha_fin >= ?", productoID, now).
		Count(&n).Error
	return n > 0, err
}

func (r *promocionRepo) ContarAprobadasActivas(ctx context.Context, productoID uuid.UUID, excluir uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Promocion{}).
		Where("producto_id = ? AND aprobada = true AND activo = true AND id <> ?", productoID, excluir).
		Count(&n).Error
	return n, err
}
