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

// InventarioService exposes read-only views over stock. Every write to lots
// and aggregates belongs to the sale engine and LoteService.
type InventarioService interface {
	Consultar(ctx context.Context, filter dto.InventarioFilter) ([]dto.InventarioResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	Consistencia(ctx context.Context, sucursalID string) ([]dto.InconsistenciaResponse, error)
}

type inventarioService struct {
	lotes       repository.LoteRepository
	movimientos repository.MovimientoStockRepository
	now         func() time.Time
}

func NewInventarioService(lotes repository.LoteRepository, movimientos repository.MovimientoStockRepository) InventarioService {
	return &inventarioService{lotes: lotes, movimientos: movimientos, now: time.Now}
}

func (s *inventarioService) Consultar(ctx context.Context, filter dto.InventarioFilter) ([]dto.InventarioResponse, error) {
	productoID, err := uuid.Parse(filter.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("%w: producto_id", ErrDatosInvalidos)
	}
	sucursalID, err := parseUUIDOpcional(filter.SucursalID)
	if err != nil {
		return nil, err
	}

	invs, err := s.lotes.ListInventarios(ctx, productoID, sucursalID)
	if err != nil {
		return nil, err
	}
	lotes, err := s.lotes.List(ctx, repository.LoteFilter{ProductoID: &productoID, SucursalID: sucursalID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	porSucursal := make(map[uuid.UUID][]dto.LoteResponse)
	for _, l := range lotes {
		porSucursal[l.SucursalID] = append(porSucursal[l.SucursalID], loteToResponse(l, now))
	}

	out := make([]dto.InventarioResponse, 0, len(invs))
	for _, inv := range invs {
		r := inventarioToResponse(inv)
		r.Lotes = porSucursal[inv.SucursalID]
		out = append(out, r)
	}
	return out, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	f := repository.MovimientoStockFilter{Tipo: filter.Tipo, Page: filter.Page, Limit: filter.Limit}
	var err error
	if f.ProductoID, err = parseUUIDOpcional(filter.ProductoID); err != nil {
		return nil, err
	}
	if f.SucursalID, err = parseUUIDOpcional(filter.SucursalID); err != nil {
		return nil, err
	}
	movs, total, err := s.movimientos.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoResponse, 0, len(movs))
	for _, m := range movs {
		data = append(data, movimientoToResponse(m))
	}
	return &dto.MovimientoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Consistencia lists the pairs breaking stock_total == sum(active lots).
// An empty result is the expected state.
func (s *inventarioService) Consistencia(ctx context.Context, sucursalID string) ([]dto.InconsistenciaResponse, error) {
	sid, err := parseUUIDOpcional(sucursalID)
	if err != nil {
		return nil, err
	}
	rows, err := s.lotes.Inconsistencias(ctx, sid)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InconsistenciaResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.InconsistenciaResponse{
			ProductoID: r.ProductoID.String(),
			SucursalID: r.SucursalID.String(),
			StockTotal: r.StockTotal,
			SumaLotes:  r.SumaLotes,
		})
	}
	return out, nil
}

func inventarioToResponse(inv model.Inventario) dto.InventarioResponse {
	return dto.InventarioResponse{
		ProductoID:    inv.ProductoID.String(),
		SucursalID:    inv.SucursalID.String(),
		StockTotal:    inv.StockTotal,
		FechaRevision: inv.FechaRevision.Format(time.RFC3339),
	}
}

func movimientoToResponse(m model.MovimientoStock) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:            m.ID.String(),
		ProductoID:    m.ProductoID.String(),
		SucursalID:    m.SucursalID.String(),
		LoteID:        m.LoteID.String(),
		Tipo:          m.Tipo,
		Cantidad:      m.Cantidad,
		StockAnterior: m.StockAnterior,
		StockNuevo:    m.StockNuevo,
		Motivo:        m.Motivo,
		ReferenciaID:  uuidString(m.ReferenciaID),
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
}
