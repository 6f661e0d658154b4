package dto

import "github.com/shopspring/decimal"

type CrearPromocionRequest struct {
	ProductoID          string          `json:"producto_id"          validate:"required,uuid"`
	PorcentajeDescuento decimal.Decimal `json:"porcentaje_descuento" validate:"gt=0,lte=100"`
	FechaInicio         string          `json:"fecha_inicio"         validate:"required,datetime=2006-01-02"`
	FechaFin            string          `json:"fecha_fin"            validate:"required,datetime=2006-01-02"`
}

type PromocionFilter struct {
	ProductoID   string `form:"producto_id" validate:"omitempty,uuid"`
	SoloVigentes bool   `form:"solo_vigentes"`
	Pendientes   bool   `form:"pendientes"`
}

type PromocionResponse struct {
	ID                  string          `json:"id"`
	ProductoID          string          `json:"producto_id"`
	PorcentajeDescuento decimal.Decimal `json:"porcentaje_descuento"`
	FechaInicio         string          `json:"fecha_inicio"`
	FechaFin            string          `json:"fecha_fin"`
	Aprobada            bool            `json:"aprobada"`
	Activo              bool            `json:"activo"`
	Sugerida            bool            `json:"sugerida"`
}
