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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromocionService manages discount promotions. A promotion only affects
// pricing after approval; approval moves the product to estado=promocion.
type PromocionService interface {
	Crear(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error)
	Aprobar(ctx context.Context, id uuid.UUID) (*dto.PromocionResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
	Listar(ctx context.Context, actor Actor, filter dto.PromocionFilter) ([]dto.PromocionResponse, error)
}

type promocionService struct {
	repo      repository.PromocionRepository
	productos repository.ProductoRepository
	precios   InvalidadorPrecios
	now       func() time.Time
}

func NewPromocionService(
	repo repository.PromocionRepository,
	productos repository.ProductoRepository,
	precios InvalidadorPrecios,
	reloj func() time.Time,
) PromocionService {
	if reloj == nil {
		reloj = time.Now
	}
	return &promocionService{repo: repo, productos: productos, precios: precios, now: reloj}
}

// finDelDia moves a date to its last second, so fecha_fin is inclusive.
func finDelDia(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Second)
}

func (s *promocionService) Crear(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error) {
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("%w: producto_id", ErrDatosInvalidos)
	}
	if _, err := s.productos.FindByID(ctx, productoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoEncontrado
		}
		return nil, err
	}
	if !req.PorcentajeDescuento.IsPositive() || req.PorcentajeDescuento.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: porcentaje_descuento fuera de rango", ErrDatosInvalidos)
	}
	inicio, err := time.Parse("2006-01-02", req.FechaInicio)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha_inicio", ErrDatosInvalidos)
	}
	fin, err := time.Parse("2006-01-02", req.FechaFin)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha_fin", ErrDatosInvalidos)
	}
	if fin.Before(inicio) {
		return nil, fmt.Errorf("%w: fecha_fin anterior a fecha_inicio", ErrDatosInvalidos)
	}

	p := &model.Promocion{
		ID:                  uuid.New(),
		ProductoID:          productoID,
		PorcentajeDescuento: req.PorcentajeDescuento.Round(2),
		FechaInicio:         inicio,
		FechaFin:            finDelDia(fin),
		Aprobada:            false,
		Activo:              true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	resp := promocionToResponse(*p)
	return &resp, nil
}

func (s *promocionService) buscar(ctx context.Context, id uuid.UUID) (*model.Promocion, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	return p, err
}

func (s *promocionService) Aprobar(ctx context.Context, id uuid.UUID) (*dto.PromocionResponse, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Activo {
		return nil, fmt.Errorf("%w: la promoción está desactivada", ErrDatosInvalidos)
	}
	p.Aprobada = true
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := s.productos.UpdateEstado(ctx, p.ProductoID, model.EstadoProductoPromocion); err != nil {
		return nil, err
	}
	if s.precios != nil {
		s.precios.Invalidar(ctx, p.ProductoID)
	}
	resp := promocionToResponse(*p)
	return &resp, nil
}

func (s *promocionService) Desactivar(ctx context.Context, id uuid.UUID) error {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return err
	}
	p.Activo = false
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	restantes, err := s.repo.ContarAprobadasActivas(ctx, p.ProductoID, p.ID)
	if err != nil {
		return err
	}
	if restantes == 0 {
		producto, err := s.productos.FindByID(ctx, p.ProductoID)
		if err != nil {
			return err
		}
		if producto.Estado == model.EstadoProductoPromocion {
			if err := s.productos.UpdateEstado(ctx, p.ProductoID, model.EstadoProductoActivo); err != nil {
				return err
			}
		}
	}
	if s.precios != nil {
		s.precios.Invalidar(ctx, p.ProductoID)
	}
	return nil
}

// Listar hides pending and out-of-window promotions from customers.
func (s *promocionService) Listar(ctx context.Context, actor Actor, filter dto.PromocionFilter) ([]dto.PromocionResponse, error) {
	f := repository.PromocionFilter{
		SoloVigentes: filter.SoloVigentes,
		Pendientes:   filter.Pendientes,
		Now:          s.now(),
	}
	if actor.Rol == model.RolCliente {
		f.SoloVigentes = true
		f.Pendientes = false
	}
	var err error
	if f.ProductoID, err = parseUUIDOpcional(filter.ProductoID); err != nil {
		return nil, err
	}
	promos, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PromocionResponse, 0, len(promos))
	for _, p := range promos {
		out = append(out, promocionToResponse(p))
	}
	return out, nil
}

func promocionToResponse(p model.Promocion) dto.PromocionResponse {
	return dto.PromocionResponse{
		ID:                  p.ID.String(),
		ProductoID:          p.ProductoID.String(),
		PorcentajeDescuento: p.PorcentajeDescuento,
		FechaInicio:         p.FechaInicio.Format("2006-01-02"),
		FechaFin:            p.FechaFin.Format("2006-01-02"),
		Aprobada:            p.Aprobada,
		Activo:              p.Activo,
		Sugerida:            p.Sugerida,
	}
}
