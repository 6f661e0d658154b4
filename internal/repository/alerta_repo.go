package repository

import (
	"context"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertaRepository interface {
	Create(ctx context.Context, a *model.Alerta) error
	// ExisteVencimientoDelDia reports whether an expiry alert for the lot was
	// already produced on the calendar day of dia.
	ExisteVencimientoDelDia(ctx context.Context, loteID uuid.UUID, dia time.Time) (bool, error)
	ExisteStockBajoNoLeida(ctx context.Context, productoID, sucursalID uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.AlertaFilter) ([]model.Alerta, int64, error)
	MarcarLeida(ctx context.Context, id uuid.UUID) error
}

type alertaRepo struct{ db *gorm.DB }

func NewAlertaRepository(db *gorm.DB) AlertaRepository { return &alertaRepo{db: db} }

func (r *alertaRepo) Create(ctx context.Context, a *model.Alerta) error {
	return r.db.WithContext(ctx).Omit("Producto").Create(a).Error
}

func (r *alertaRepo) ExisteVencimientoDelDia(ctx context.Context, loteID uuid.UUID, dia time.Time) (bool, error) {
	inicio := time.Date(dia.Year(), dia.Month(), dia.Day(), 0, 0, 0, 0, dia.Location())
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Alerta{}).
		Where("tipo = ? AND lote_id = ? AND fecha >= ? AND fecha < ?",
			model.AlertaVencimiento, loteID, inicio, inicio.AddDate(0, 0, 1)).
		Count(&n).Error
	return n > 0, err
}

func (r *alertaRepo) ExisteStockBajoNoLeida(ctx context.Context, productoID, sucursalID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Alerta{}).
		Where("tipo = ? AND producto_id = ? AND sucursal_id = ? AND leida = false",
			model.AlertaStockBajo, productoID, sucursalID).
		Count(&n).Error
	return n > 0, err
}

func (r *alertaRepo) List(ctx context.Context, filter dto.AlertaFilter) ([]model.Alerta, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Alerta{})
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	if filter.SucursalID != "" {
		q = q.Where("sucursal_id = ?", filter.SucursalID)
	}
	if filter.SoloNoLeidas {
		q = q.Where("leida = false")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alertas []model.Alerta
	err := q.Order("fecha DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&alertas).Error
	return alertas, total, err
}

func (r *alertaRepo) MarcarLeida(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Alerta{}).Where("id = ?", id).Update("leida", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
