package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/infra"
	"farmapos/internal/model"
	"farmapos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InvalidadorPrecios drops cached price checks of a product.
type InvalidadorPrecios interface {
	Invalidar(ctx context.Context, productoID uuid.UUID)
}

// PrecioService answers the public price check. Results are cached per
// barcode in a redis hash keyed by branch; redis calls go through a circuit
// breaker and a cache failure never fails the request.
type PrecioService interface {
	InvalidadorPrecios
	Consultar(ctx context.Context, barcode string, sucursalID uuid.UUID) (*dto.ConsultaPreciosResponse, error)
	EstadoCache() string
}

type precioService struct {
	productos repository.ProductoRepository
	lotes     repository.LoteRepository
	promos    repository.PromocionRepository
	rdb       *redis.Client
	cb        *infra.CircuitBreaker
	ttl       time.Duration
	now       func() time.Time
}

// NewPrecioService accepts a nil rdb, in which case nothing is cached.
func NewPrecioService(
	productos repository.ProductoRepository,
	lotes repository.LoteRepository,
	promos repository.PromocionRepository,
	rdb *redis.Client,
	cb *infra.CircuitBreaker,
	ttl time.Duration,
	reloj func() time.Time,
) PrecioService {
	if reloj == nil {
		reloj = time.Now
	}
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig())
	}
	return &precioService{
		productos: productos,
		lotes:     lotes,
		promos:    promos,
		rdb:       rdb,
		cb:        cb,
		ttl:       ttl,
		now:       reloj,
	}
}

func precioCacheKey(barcode string) string { return "precio:" + barcode }

func (s *precioService) Consultar(ctx context.Context, barcode string, sucursalID uuid.UUID) (*dto.ConsultaPreciosResponse, error) {
	key := precioCacheKey(barcode)
	campo := sucursalID.String()

	if s.rdb != nil {
		var cached []byte
		err := s.cb.Execute(func() error {
			b, err := s.rdb.HGet(ctx, key, campo).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			cached = b
			return err
		})
		if err == nil && cached != nil {
			var resp dto.ConsultaPreciosResponse
			if json.Unmarshal(cached, &resp) == nil {
				return &resp, nil
			}
		}
	}

	producto, err := s.productos.FindByBarcode(ctx, barcode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	resp, err := s.calcular(ctx, producto, sucursalID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			// best effort; detached from the request so a disconnect does not abort it
			bg := context.WithoutCancel(ctx)
			err := s.cb.Execute(func() error {
				pipe := s.rdb.TxPipeline()
				pipe.HSet(bg, key, campo, b)
				pipe.Expire(bg, key, s.ttl)
				_, err := pipe.Exec(bg)
				return err
			})
			if err != nil {
				log.Debug().Err(err).Str("codigo_barras", barcode).Msg("precio cache: no se pudo guardar")
			}
		}
	}
	return resp, nil
}

func (s *precioService) calcular(ctx context.Context, producto *model.Producto, sucursalID uuid.UUID) (*dto.ConsultaPreciosResponse, error) {
	now := s.now()
	resp := &dto.ConsultaPreciosResponse{
		Nombre:         producto.Nombre,
		PrecioBase:     producto.Precio,
		PrecioFinal:    producto.Precio,
		RequiereReceta: producto.RequiereReceta,
	}

	inv, err := s.lotes.FindInventario(ctx, producto.ID, sucursalID)
	switch {
	case err == nil:
		resp.StockDisponible = inv.StockTotal
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	lote, err := s.lotes.PrimerLoteVendible(ctx, producto.ID, sucursalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	if lote.EstaVencido(now) {
		return resp, nil
	}

	promos, err := s.promos.List(ctx, repository.PromocionFilter{ProductoID: &producto.ID, SoloVigentes: true, Now: now})
	if err != nil {
		return nil, err
	}
	precio, promo := ResolverPrecioUnitario(*producto, *lote, promos, now)
	resp.PrecioFinal = precio
	if promo != nil {
		desc := fmt.Sprintf("%s%% de descuento hasta %s",
			promo.PorcentajeDescuento.StringFixed(0), promo.FechaFin.Format("2006-01-02"))
		resp.Promocion = &desc
	}
	return resp, nil
}

func (s *precioService) Invalidar(ctx context.Context, productoID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	producto, err := s.productos.FindByID(ctx, productoID)
	if err != nil {
		log.Debug().Err(err).Str("producto_id", productoID.String()).Msg("precio cache: producto no encontrado al invalidar")
		return
	}
	err = s.cb.Execute(func() error {
		return s.rdb.Del(context.WithoutCancel(ctx), precioCacheKey(producto.CodigoBarras)).Err()
	})
	if err != nil {
		log.Warn().Err(err).Str("producto_id", productoID.String()).Msg("precio cache: no se pudo invalidar")
	}
}

func (s *precioService) EstadoCache() string {
	return s.cb.State().String()
}
