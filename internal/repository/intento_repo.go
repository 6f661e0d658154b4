package repository

import (
	"context"

	"farmapos/internal/dto"
	"farmapos/internal/model"

	"gorm.io/gorm"
)

// IntentoWriter appends a rejected-attempt audit row. Implementations must
// not share a transaction with the sale that was rejected.
type IntentoWriter interface {
	Registrar(ctx context.Context, i *model.IntentoBloqueado) error
}

type IntentoRepository interface {
	IntentoWriter
	List(ctx context.Context, filter dto.IntentoFilter) ([]model.IntentoBloqueado, int64, error)
}

type intentoRepo struct{ db *gorm.DB }

func NewIntentoRepository(db *gorm.DB) IntentoRepository { return &intentoRepo{db: db} }

func (r *intentoRepo) Registrar(ctx context.Context, i *model.IntentoBloqueado) error {
	return r.db.WithContext(ctx).Omit("Usuario", "Producto").Create(i).Error
}

func (r *intentoRepo) List(ctx context.Context, filter dto.IntentoFilter) ([]model.IntentoBloqueado, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.IntentoBloqueado{})
	if filter.Motivo != "" {
		q = q.Where("motivo = ?", filter.Motivo)
	}
	if filter.UsuarioID != "" {
		q = q.Where("usuario_id = ?", filter.UsuarioID)
	}
	if filter.SucursalID != "" {
		q = q.Where("sucursal_id = ?", filter.SucursalID)
	}
	if filter.Desde != "" {
		q = q.Where("DATE(fecha) >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("DATE(fecha) <= ?", filter.Hasta)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.IntentoBloqueado
	err := q.Preload("Usuario").Preload("Producto").
		Order("fecha DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&rows).Error
	return rows, total, err
}
