package service

import (
	"context"
	"fmt"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/model"
	"farmapos/internal/repository"

	"github.com/google/uuid"
)

// IntentoService queries the blocked-attempt audit trail.
type IntentoService interface {
	Listar(ctx context.Context, filter dto.IntentoFilter) (*dto.IntentoListResponse, error)
	PorUsuario(ctx context.Context, usuarioID uuid.UUID, page, limit int) (*dto.IntentoListResponse, error)
	// Recientes covers attempts since the previous calendar day.
	Recientes(ctx context.Context, page, limit int) (*dto.IntentoListResponse, error)
}

type intentoService struct {
	repo repository.IntentoRepository
	now  func() time.Time
}

func NewIntentoService(repo repository.IntentoRepository, reloj func() time.Time) IntentoService {
	if reloj == nil {
		reloj = time.Now
	}
	return &intentoService{repo: repo, now: reloj}
}

func (s *intentoService) Listar(ctx context.Context, filter dto.IntentoFilter) (*dto.IntentoListResponse, error) {
	if filter.Motivo != "" && !model.MotivoBloqueo(filter.Motivo).Valido() {
		return nil, fmt.Errorf("%w: motivo %q", ErrDatosInvalidos, filter.Motivo)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.IntentoResponse, 0, len(rows))
	for _, i := range rows {
		data = append(data, intentoToResponse(i))
	}
	return &dto.IntentoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *intentoService) PorUsuario(ctx context.Context, usuarioID uuid.UUID, page, limit int) (*dto.IntentoListResponse, error) {
	return s.Listar(ctx, dto.IntentoFilter{UsuarioID: usuarioID.String(), Page: page, Limit: limit})
}

func (s *intentoService) Recientes(ctx context.Context, page, limit int) (*dto.IntentoListResponse, error) {
	desde := s.now().Add(-24 * time.Hour)
	return s.Listar(ctx, dto.IntentoFilter{Desde: desde.Format("2006-01-02"), Page: page, Limit: limit})
}

func intentoToResponse(i model.IntentoBloqueado) dto.IntentoResponse {
	r := dto.IntentoResponse{
		ID:              i.ID.String(),
		UsuarioID:       i.UsuarioID.String(),
		ClienteID:       uuidString(i.ClienteID),
		SucursalID:      uuidString(i.SucursalID),
		Motivo:          string(i.Motivo),
		ProductoID:      uuidString(i.ProductoID),
		LoteID:          uuidString(i.LoteID),
		CantidadIntento: i.CantidadIntento,
		Mensaje:         i.Mensaje,
		Fecha:           i.Fecha.Format(time.RFC3339),
	}
	if i.Usuario != nil {
		r.Usuario = i.Usuario.Username
	}
	if i.Producto != nil {
		r.Producto = i.Producto.Nombre
	}
	return r
}
