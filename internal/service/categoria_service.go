package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"farmapos/internal/dto"
	"farmapos/internal/model"
	"farmapos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoriaService manages the therapeutic groups products are filed under
// (analgésicos, antibióticos, dermocosmética...). Names are unique ignoring
// case and surrounding spaces.
type CategoriaService interface {
	Crear(ctx context.Context, req dto.CrearCategoriaRequest) (dto.CategoriaResponse, error)
	Listar(ctx context.Context, incluirInactivas bool) ([]dto.CategoriaResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarCategoriaRequest) (dto.CategoriaResponse, error)
	// Desactivar refuses while active products are still filed under the category.
	Desactivar(ctx context.Context, id uuid.UUID) error
}

type categoriaService struct {
	repo repository.CategoriaRepository
}

func NewCategoriaService(repo repository.CategoriaRepository) CategoriaService {
	return &categoriaService{repo: repo}
}

func categoriaToResponse(c model.Categoria) dto.CategoriaResponse {
	return dto.CategoriaResponse{
		ID:          c.ID,
		Nombre:      c.Nombre,
		Descripcion: c.Descripcion,
		Activo:      c.Activo,
	}
}

// nombreLibre returns ErrConflicto when another category already uses nombre.
func (s *categoriaService) nombreLibre(ctx context.Context, nombre string, propia uuid.UUID) error {
	otra, err := s.repo.ObtenerPorNombre(ctx, nombre)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case otra.ID == propia:
		return nil
	}
	return fmt.Errorf("%w: ya existe el grupo terapéutico %q", ErrConflicto, otra.Nombre)
}

func (s *categoriaService) buscar(ctx context.Context, id uuid.UUID) (*model.Categoria, error) {
	c, err := s.repo.ObtenerPorID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: categoría %s", ErrNoEncontrado, id)
	}
	return c, err
}

func (s *categoriaService) Crear(ctx context.Context, req dto.CrearCategoriaRequest) (dto.CategoriaResponse, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return dto.CategoriaResponse{}, fmt.Errorf("%w: nombre vacío", ErrDatosInvalidos)
	}
	if err := s.nombreLibre(ctx, nombre, uuid.Nil); err != nil {
		return dto.CategoriaResponse{}, err
	}

	c := &model.Categoria{Nombre: nombre, Descripcion: req.Descripcion, Activo: true}
	if err := s.repo.Crear(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CategoriaResponse{}, fmt.Errorf("%w: ya existe el grupo terapéutico %q", ErrConflicto, nombre)
		}
		return dto.CategoriaResponse{}, err
	}
	return categoriaToResponse(*c), nil
}

func (s *categoriaService) Listar(ctx context.Context, incluirInactivas bool) ([]dto.CategoriaResponse, error) {
	cats, err := s.repo.Listar(ctx, incluirInactivas)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoriaResponse, len(cats))
	for i, c := range cats {
		out[i] = categoriaToResponse(c)
	}
	return out, nil
}

func (s *categoriaService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarCategoriaRequest) (dto.CategoriaResponse, error) {
	c, err := s.buscar(ctx, id)
	if err != nil {
		return dto.CategoriaResponse{}, err
	}

	if req.Nombre != nil {
		nombre := strings.TrimSpace(*req.Nombre)
		if nombre == "" {
			return dto.CategoriaResponse{}, fmt.Errorf("%w: nombre vacío", ErrDatosInvalidos)
		}
		if err := s.nombreLibre(ctx, nombre, c.ID); err != nil {
			return dto.CategoriaResponse{}, err
		}
		c.Nombre = nombre
	}
	if req.Descripcion != nil {
		c.Descripcion = req.Descripcion
	}
	if req.Activo != nil && !*req.Activo && c.Activo {
		if err := s.sinProductosActivos(ctx, c); err != nil {
			return dto.CategoriaResponse{}, err
		}
	}
	if req.Activo != nil {
		c.Activo = *req.Activo
	}

	if err := s.repo.Actualizar(ctx, c); err != nil {
		return dto.CategoriaResponse{}, err
	}
	return categoriaToResponse(*c), nil
}

func (s *categoriaService) Desactivar(ctx context.Context, id uuid.UUID) error {
	c, err := s.buscar(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sinProductosActivos(ctx, c); err != nil {
		return err
	}
	return s.repo.Desactivar(ctx, id)
}

func (s *categoriaService) sinProductosActivos(ctx context.Context, c *model.Categoria) error {
	n, err := s.repo.ContarProductosActivos(ctx, c.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d productos activos en %q; reclasifíquelos antes de desactivar", ErrConflicto, n, c.Nombre)
	}
	return nil
}

// ── Sucursales ────────────────────────────────────────────────────────────────

type SucursalService interface {
	Crear(ctx context.Context, req dto.CrearSucursalRequest) (dto.SucursalResponse, error)
	Listar(ctx context.Context) ([]dto.SucursalResponse, error)
}

type sucursalService struct {
	repo repository.SucursalRepository
}

func NewSucursalService(repo repository.SucursalRepository) SucursalService {
	return &sucursalService{repo: repo}
}

func mapSucursal(s model.Sucursal) dto.SucursalResponse {
	return dto.SucursalResponse{
		ID:        s.ID,
		Nombre:    s.Nombre,
		Direccion: s.Direccion,
		Activo:    s.Activo,
	}
}

func (s *sucursalService) Crear(ctx context.Context, req dto.CrearSucursalRequest) (dto.SucursalResponse, error) {
	suc := &model.Sucursal{
		Nombre:    req.Nombre,
		Direccion: req.Direccion,
		Activo:    true,
	}
	if err := s.repo.Crear(ctx, suc); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SucursalResponse{}, fmt.Errorf("%w: sucursal %s", ErrConflicto, req.Nombre)
		}
		return dto.SucursalResponse{}, err
	}
	return mapSucursal(*suc), nil
}

func (s *sucursalService) Listar(ctx context.Context) ([]dto.SucursalResponse, error) {
	list, err := s.repo.Listar(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SucursalResponse, 0, len(list))
	for _, suc := range list {
		result = append(result, mapSucursal(suc))
	}
	return result, nil
}
