package service

import (
	"time"

	"farmapos/internal/model"
)

// loteLedger is the lot state of one product at one branch, in FIFO order,
// as read inside the current stock transaction.
type loteLedger struct {
	lotes []model.Lote
	now   time.Time
}

func nuevoLedger(lotes []model.Lote, now time.Time) *loteLedger {
	return &loteLedger{lotes: lotes, now: now}
}

// Disponible is the stock held by active lots, expired ones included.
func (l *loteLedger) Disponible() int {
	total := 0
	for _, lote := range l.lotes {
		if lote.Activo {
			total += lote.Cantidad
		}
	}
	return total
}

// Consumir takes n units from lot i and deactivates it at zero.
// n must not exceed the lot quantity.
func (l *loteLedger) Consumir(i, n int) model.Lote {
	lote := &l.lotes[i]
	lote.Cantidad -= n
	if lote.Cantidad == 0 {
		lote.Activo = false
	}
	return *lote
}

// PrimerVendible returns the first lot FIFO would consume, or false if the
// ledger is empty. An expired head lot is returned as is.
func (l *loteLedger) PrimerVendible() (model.Lote, bool) {
	for _, lote := range l.lotes {
		if lote.Activo && lote.Cantidad > 0 {
			return lote, true
		}
	}
	return model.Lote{}, false
}
