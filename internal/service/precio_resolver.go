package service

import (
	"time"

	"farmapos/internal/model"

	"github.com/shopspring/decimal"
)

var cien = decimal.NewFromInt(100)

// SeleccionarPromocion returns the promotion applied to a near-expiry lot, or
// nil when none is vigente at now. Among several, the highest discount wins,
// then the earliest fecha_inicio, then the lowest id.
func SeleccionarPromocion(promos []model.Promocion, now time.Time) *model.Promocion {
	var elegida *model.Promocion
	for i := range promos {
		p := &promos[i]
		if !p.Vigente(now) {
			continue
		}
		if elegida == nil || mejorPromocion(p, elegida) {
			elegida = p
		}
	}
	return elegida
}

func mejorPromocion(a, b *model.Promocion) bool {
	if c := a.PorcentajeDescuento.Cmp(b.PorcentajeDescuento); c != 0 {
		return c > 0
	}
	if !a.FechaInicio.Equal(b.FechaInicio) {
		return a.FechaInicio.Before(b.FechaInicio)
	}
	return a.ID.String() < b.ID.String()
}

// ResolverPrecioUnitario prices one unit taken from lote. The discount only
// applies when the lot is near expiry and a promotion is vigente; the result
// is rounded to cents. The applied promotion is returned for display.
func ResolverPrecioUnitario(producto model.Producto, lote model.Lote, promos []model.Promocion, now time.Time) (decimal.Decimal, *model.Promocion) {
	base := producto.Precio
	if !lote.ProximoAVencer(now) {
		return base, nil
	}
	promo := SeleccionarPromocion(promos, now)
	if promo == nil {
		return base, nil
	}
	factor := decimal.NewFromInt(1).Sub(promo.PorcentajeDescuento.Div(cien))
	return base.Mul(factor).Round(2), promo
}
