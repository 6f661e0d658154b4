package service

import (
	"farmapos/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// asignacionLote is the share of one cart line served by one lot.
type asignacionLote struct {
	indice         int // position in the ledger
	lote           model.Lote
	cantidad       int
	precioUnitario decimal.Decimal
}

func (a asignacionLote) subtotal() decimal.Decimal {
	return a.precioUnitario.Mul(decimal.NewFromInt(int64(a.cantidad)))
}

// asignarFIFO splits cantidad across the ledger lots, earliest expiry first.
// Reaching an expired lot while demand remains rejects the whole line. The
// ledger itself is not modified.
func asignarFIFO(producto model.Producto, sucursal string, ledger *loteLedger, cantidad int, promos []model.Promocion) ([]asignacionLote, *Rechazo) {
	pendiente := cantidad
	var out []asignacionLote

	for i, lote := range ledger.lotes {
		if pendiente == 0 {
			break
		}
		if !lote.Activo || lote.Cantidad <= 0 {
			continue
		}
		if lote.EstaVencido(ledger.now) {
			return nil, nuevoRechazo(model.MotivoProductoVencido, uuidPtr(producto.ID), uuidPtr(lote.ID), cantidad,
				"el lote %s de %s venció el %s", lote.NumeroLote, producto.Nombre, lote.FechaVencimiento.Format("2006-01-02"))
		}
		n := min(lote.Cantidad, pendiente)
		precio, _ := ResolverPrecioUnitario(producto, lote, promos, ledger.now)
		out = append(out, asignacionLote{indice: i, lote: lote, cantidad: n, precioUnitario: precio})
		pendiente -= n
	}

	if pendiente > 0 {
		log.Error().
			Str("producto_id", producto.ID.String()).
			Str("sucursal_id", sucursal).
			Int("solicitado", cantidad).
			Int("faltante", pendiente).
			Msg("stock inconsistente: el inventario no coincide con la suma de lotes")
		return nil, nuevoRechazo(model.MotivoStockInconsistente, uuidPtr(producto.ID), nil, cantidad,
			"inconsistencia de stock para %s", producto.Nombre)
	}
	return out, nil
}
