package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/model"
	"farmapos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductoService defines the business logic contract for catalog products.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, actor Actor, id uuid.UUID) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, actor Actor, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
	Reactivar(ctx context.Context, id uuid.UUID) error
}

type productoService struct {
	repo    repository.ProductoRepository
	lotes   repository.LoteRepository
	promos  repository.PromocionRepository
	precios InvalidadorPrecios
	now     func() time.Time
}

func NewProductoService(
	repo repository.ProductoRepository,
	lotes repository.LoteRepository,
	promos repository.PromocionRepository,
	precios InvalidadorPrecios,
	reloj func() time.Time,
) ProductoService {
	if reloj == nil {
		reloj = time.Now
	}
	return &productoService{repo: repo, lotes: lotes, promos: promos, precios: precios, now: reloj}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if existente, err := s.repo.FindByBarcode(ctx, req.CodigoBarras); err == nil && existente != nil {
		return nil, fmt.Errorf("%w: codigo_barras %s", ErrConflicto, req.CodigoBarras)
	}
	categoriaID, err := parseUUIDPtr(req.CategoriaID)
	if err != nil {
		return nil, err
	}
	p := &model.Producto{
		ID:             uuid.New(),
		CodigoBarras:   strings.TrimSpace(req.CodigoBarras),
		Nombre:         strings.TrimSpace(req.Nombre),
		Descripcion:    req.Descripcion,
		CategoriaID:    categoriaID,
		Precio:         req.Precio.Round(2),
		RequiereReceta: req.RequiereReceta,
		Estado:         model.EstadoProductoActivo,
		Activo:         true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, actor Actor, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	if !actor.Rol.EsPersonal() {
		visible, err := s.visibleParaCliente(ctx, p)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, ErrNoEncontrado
		}
		resp := productoToResponse(p)
		return &resp, nil
	}

	resp := productoToResponse(p)
	lotes, err := s.lotes.List(ctx, repository.LoteFilter{ProductoID: &p.ID, SucursalID: actor.SucursalID})
	if err != nil {
		return nil, err
	}
	resp.Lotes = lotesToResponse(lotes, s.now())
	invs, err := s.lotes.ListInventarios(ctx, p.ID, actor.SucursalID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invs {
		resp.Inventario = append(resp.Inventario, inventarioToResponse(inv))
	}
	return &resp, nil
}

// visibleParaCliente mirrors the customer branch of ProductoRepository.List for one product.
func (s *productoService) visibleParaCliente(ctx context.Context, p *model.Producto) (bool, error) {
	if !p.Activo {
		return false, nil
	}
	now := s.now()
	switch p.Estado {
	case model.EstadoProductoActivo:
	case model.EstadoProductoPromocion:
		vigentes, err := s.promos.List(ctx, repository.PromocionFilter{ProductoID: &p.ID, SoloVigentes: true, Now: now})
		if err != nil {
			return false, err
		}
		if len(vigentes) == 0 {
			return false, nil
		}
	default:
		return false, nil
	}

	lotes, err := s.lotes.List(ctx, repository.LoteFilter{ProductoID: &p.ID})
	if err != nil {
		return false, err
	}
	for _, l := range lotes {
		if l.Cantidad > 0 && !l.EstaVencido(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *productoService) Listar(ctx context.Context, actor Actor, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	productos, total, err := s.repo.List(ctx, filter, !actor.Rol.EsPersonal(), s.now())
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	if req.Nombre != nil {
		p.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Descripcion != nil {
		p.Descripcion = req.Descripcion
	}
	if req.CategoriaID != nil {
		if p.CategoriaID, err = parseUUIDPtr(req.CategoriaID); err != nil {
			return nil, err
		}
	}
	if req.Precio != nil {
		if !req.Precio.IsPositive() {
			return nil, fmt.Errorf("%w: el precio debe ser positivo", ErrDatosInvalidos)
		}
		p.Precio = req.Precio.Round(2)
	}
	if req.RequiereReceta != nil {
		p.RequiereReceta = *req.RequiereReceta
	}
	if req.Estado != nil {
		p.Estado = *req.Estado
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if s.precios != nil {
		s.precios.Invalidar(ctx, p.ID)
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) Desactivar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoEncontrado
		}
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if s.precios != nil {
		s.precios.Invalidar(ctx, id)
	}
	return nil
}

func (s *productoService) Reactivar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoEncontrado
		}
		return err
	}
	return s.repo.Reactivar(ctx, id)
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	return parseUUIDOpcional(*s)
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	r := dto.ProductoResponse{
		ID:             p.ID.String(),
		CodigoBarras:   p.CodigoBarras,
		Nombre:         p.Nombre,
		Descripcion:    p.Descripcion,
		CategoriaID:    uuidString(p.CategoriaID),
		Precio:         p.Precio,
		RequiereReceta: p.RequiereReceta,
		Estado:         p.Estado,
		Activo:         p.Activo,
	}
	if p.Categoria != nil {
		r.Categoria = p.Categoria.Nombre
	}
	return r
}
