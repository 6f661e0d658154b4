package worker

// venta_worker.go
// Post-commit work for a registered sale: drop the cached prices of the sold
// products and raise low-stock alerts. The sale is already committed; nothing
// here can undo it.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VentaRegistradaPayload is the job envelope sent to QueueVentas.
type VentaRegistradaPayload struct {
	VentaID     string   `json:"venta_id"`
	SucursalID  string   `json:"sucursal_id"`
	ProductoIDs []string `json:"producto_ids"`
}

type invalidadorPrecios interface {
	Invalidar(ctx context.Context, productoID uuid.UUID)
}

type evaluadorStock interface {
	EvaluarStockBajo(ctx context.Context, productoID, sucursalID uuid.UUID) (bool, error)
}

// VentaWorker processes VentaRegistrada jobs.
type VentaWorker struct {
	precios    invalidadorPrecios
	stock      evaluadorStock
	dispatcher *Dispatcher
	destino    []string
}

// NewVentaWorker wires the processor. dispatcher and destino are optional;
// without them no email is sent for new low-stock alerts.
func NewVentaWorker(precios invalidadorPrecios, stock evaluadorStock, dispatcher *Dispatcher, destino []string) *VentaWorker {
	return &VentaWorker{precios: precios, stock: stock, dispatcher: dispatcher, destino: destino}
}

func (w *VentaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p VentaRegistradaPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("venta_worker: invalid payload: %w", err)
	}
	sucursalID, err := uuid.Parse(p.SucursalID)
	if err != nil {
		return fmt.Errorf("venta_worker: sucursal_id: %w", err)
	}

	var errs []error
	var bajos []string
	for _, s := range p.ProductoIDs {
		productoID, err := uuid.Parse(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		w.precios.Invalidar(ctx, productoID)

		creada, err := w.stock.EvaluarStockBajo(ctx, productoID, sucursalID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if creada {
			bajos = append(bajos, s)
		}
	}

	if len(bajos) > 0 {
		log.Info().Str("venta_id", p.VentaID).Strs("productos", bajos).Msg("venta_worker: stock bajo")
		if w.dispatcher != nil && len(w.destino) > 0 {
			body := fmt.Sprintf("Productos con stock bajo en la sucursal %s tras la venta %s:\n", p.SucursalID, p.VentaID)
			for _, b := range bajos {
				body += "  - " + b + "\n"
			}
			if err := w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
				To:      w.destino,
				Subject: "FarmaPOS: alerta de stock bajo",
				Body:    body,
			}); err != nil {
				log.Warn().Err(err).Msg("venta_worker: failed to enqueue email")
			}
		}
	}
	return errors.Join(errs...)
}
