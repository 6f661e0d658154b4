package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/model"
	"farmapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertaService produces expiry and low-stock alerts. It reads lots and
// inventory and writes only alertas and suggested promociones.
type AlertaService interface {
	EscanearVencimientos(ctx context.Context) (*dto.EscaneoResponse, error)
	EvaluarStockBajo(ctx context.Context, productoID, sucursalID uuid.UUID) (bool, error)
	Listar(ctx context.Context, filter dto.AlertaFilter) (*dto.AlertaListResponse, error)
	MarcarLeida(ctx context.Context, id uuid.UUID) error
}

// AlertaConfig holds the scan thresholds.
type AlertaConfig struct {
	StockMinimo      int
	PromoSugeridaPct decimal.Decimal
}

type alertaService struct {
	alertas repository.AlertaRepository
	lotes   repository.LoteRepository
	promos  repository.PromocionRepository
	cfg     AlertaConfig
	now     func() time.Time
}

func NewAlertaService(
	alertas repository.AlertaRepository,
	lotes repository.LoteRepository,
	promos repository.PromocionRepository,
	cfg AlertaConfig,
	reloj func() time.Time,
) AlertaService {
	if reloj == nil {
		reloj = time.Now
	}
	return &alertaService{alertas: alertas, lotes: lotes, promos: promos, cfg: cfg, now: reloj}
}

func (s *alertaService) EscanearVencimientos(ctx context.Context) (*dto.EscaneoResponse, error) {
	now := s.now()
	lotes, err := s.lotes.ProximosAVencer(ctx, nil, now, now.Add(model.VentanaProximoVencimiento))
	if err != nil {
		return nil, fmt.Errorf("escanear vencimientos: %w", err)
	}

	res := &dto.EscaneoResponse{}
	revisados := make(map[uuid.UUID]bool)

	for _, l := range lotes {
		existe, err := s.alertas.ExisteVencimientoDelDia(ctx, l.ID, now)
		if err != nil {
			return nil, err
		}
		if !existe {
			nombre := l.ProductoID.String()
			if l.Producto != nil {
				nombre = l.Producto.Nombre
			}
			sucursal, lote := l.SucursalID, l.ID
			a := &model.Alerta{
				ID:         uuid.New(),
				Tipo:       model.AlertaVencimiento,
				Mensaje:    fmt.Sprintf("El lote %s de %s vence el %s (%d unidades)", l.NumeroLote, nombre, l.FechaVencimiento.Format("2006-01-02"), l.Cantidad),
				ProductoID: l.ProductoID,
				SucursalID: &sucursal,
				LoteID:     &lote,
				Fecha:      now,
			}
			if err := s.alertas.Create(ctx, a); err != nil {
				return nil, err
			}
			res.AlertasCreadas++
		}

		if revisados[l.ProductoID] {
			continue
		}
		revisados[l.ProductoID] = true
		tiene, err := s.promos.TieneActiva(ctx, l.ProductoID, now)
		if err != nil {
			return nil, err
		}
		if tiene || !s.cfg.PromoSugeridaPct.IsPositive() {
			continue
		}
		p := &model.Promocion{
			ID:                  uuid.New(),
			ProductoID:          l.ProductoID,
			PorcentajeDescuento: s.cfg.PromoSugeridaPct,
			FechaInicio:         now,
			FechaFin:            l.FechaVencimiento,
			Aprobada:            false,
			Activo:              true,
			Sugerida:            true,
		}
		if err := s.promos.Create(ctx, p); err != nil {
			return nil, err
		}
		res.PromocionesSugeridas++
	}

	log.Info().
		Int("lotes", len(lotes)).
		Int("alertas", res.AlertasCreadas).
		Int("promociones_sugeridas", res.PromocionesSugeridas).
		Msg("escaneo de vencimientos completado")
	return res, nil
}

// EvaluarStockBajo raises a stock_bajo alert when the aggregate fell below the
// configured minimum and no unread one is pending. Reports whether it created one.
func (s *alertaService) EvaluarStockBajo(ctx context.Context, productoID, sucursalID uuid.UUID) (bool, error) {
	inv, err := s.lotes.FindInventario(ctx, productoID, sucursalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if inv.StockTotal >= s.cfg.StockMinimo {
		return false, nil
	}
	existe, err := s.alertas.ExisteStockBajoNoLeida(ctx, productoID, sucursalID)
	if err != nil || existe {
		return false, err
	}
	sucursal := sucursalID
	a := &model.Alerta{
		ID:         uuid.New(),
		Tipo:       model.AlertaStockBajo,
		Mensaje:    fmt.Sprintf("Stock bajo: quedan %d unidades (mínimo %d)", inv.StockTotal, s.cfg.StockMinimo),
		ProductoID: productoID,
		SucursalID: &sucursal,
		Fecha:      s.now(),
	}
	if err := s.alertas.Create(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

func (s *alertaService) Listar(ctx context.Context, filter dto.AlertaFilter) (*dto.AlertaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	rows, total, err := s.alertas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.AlertaResponse, 0, len(rows))
	for _, a := range rows {
		data = append(data, dto.AlertaResponse{
			ID:         a.ID.String(),
			Tipo:       a.Tipo,
			Mensaje:    a.Mensaje,
			ProductoID: a.ProductoID.String(),
			SucursalID: uuidString(a.SucursalID),
			LoteID:     uuidString(a.LoteID),
			Leida:      a.Leida,
			Fecha:      a.Fecha.Format(time.RFC3339),
		})
	}
	return &dto.AlertaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *alertaService) MarcarLeida(ctx context.Context, id uuid.UUID) error {
	err := s.alertas.MarcarLeida(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoEncontrado
	}
	return err
}
