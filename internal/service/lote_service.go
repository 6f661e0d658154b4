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
	"gorm.io/gorm"
)

// LoteService handles lot intake and write-off. Both run through the same
// StockStore as sales so the inventory aggregate is never updated twice.
type LoteService interface {
	Ingresar(ctx context.Context, actor Actor, req dto.IngresarLoteRequest) (*dto.IngresoLoteResponse, error)
	DarDeBaja(ctx context.Context, actor Actor, id uuid.UUID, req dto.BajaLoteRequest) (*dto.LoteResponse, error)
	Listar(ctx context.Context, filter dto.LoteFilter) ([]dto.LoteResponse, error)
	ProximosAVencer(ctx context.Context, filter dto.ProximosAVencerFilter) ([]dto.LoteResponse, error)
}

type loteService struct {
	store   repository.StockStore
	lotes   repository.LoteRepository
	precios InvalidadorPrecios
	now     func() time.Time
}

func NewLoteService(store repository.StockStore, lotes repository.LoteRepository, precios InvalidadorPrecios, reloj func() time.Time) LoteService {
	if reloj == nil {
		reloj = time.Now
	}
	return &loteService{store: store, lotes: lotes, precios: precios, now: reloj}
}

func (s *loteService) Ingresar(ctx context.Context, actor Actor, req dto.IngresarLoteRequest) (*dto.IngresoLoteResponse, error) {
	if !actor.Rol.Puede(model.CapGestionarLotes) {
		return nil, ErrSinPermiso
	}
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("%w: producto_id", ErrDatosInvalidos)
	}
	sucursalID, err := uuid.Parse(req.SucursalID)
	if err != nil {
		return nil, fmt.Errorf("%w: sucursal_id", ErrDatosInvalidos)
	}
	if actor.fijadoASucursal() && *actor.SucursalID != sucursalID {
		return nil, ErrSucursalAjena
	}
	if req.Cantidad < 1 {
		return nil, fmt.Errorf("%w: la cantidad debe ser positiva", ErrDatosInvalidos)
	}
	vence, err := time.Parse("2006-01-02", req.FechaVencimiento)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha_vencimiento", ErrDatosInvalidos)
	}

	now := s.now()
	lote := model.Lote{
		ID:               uuid.New(),
		ProductoID:       productoID,
		SucursalID:       sucursalID,
		NumeroLote:       req.NumeroLote,
		FechaVencimiento: vence,
		Cantidad:         req.Cantidad,
		Activo:           true,
	}
	if lote.EstaVencido(now) {
		return nil, fmt.Errorf("%w: el lote ya está vencido", ErrDatosInvalidos)
	}

	var stockTotal int
	err = s.store.Transaction(ctx, func(tx repository.StockTx) error {
		producto, err := tx.FindProducto(ctx, productoID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoEncontrado
		}
		if err != nil {
			return err
		}
		if !producto.Activo {
			return fmt.Errorf("%w: el producto está inactivo", ErrDatosInvalidos)
		}
		existe, err := tx.ExisteNumeroLote(ctx, productoID, req.NumeroLote)
		if err != nil {
			return err
		}
		if existe {
			return fmt.Errorf("%w: el lote %s ya fue ingresado", ErrConflicto, req.NumeroLote)
		}

		inv, err := bloquearOCrearInventario(ctx, tx, productoID, sucursalID, now)
		if err != nil {
			return err
		}
		l := lote
		if err := tx.CrearLote(ctx, &l); err != nil {
			return err
		}

		anterior := inv.StockTotal
		inv.StockTotal += l.Cantidad
		inv.FechaRevision = now
		if err := tx.GuardarInventario(ctx, inv); err != nil {
			return err
		}
		usuario := actor.UsuarioID
		stockTotal = inv.StockTotal
		return tx.CrearMovimiento(ctx, &model.MovimientoStock{
			ProductoID:    productoID,
			SucursalID:    sucursalID,
			LoteID:        l.ID,
			Tipo:          model.MovimientoIngreso,
			Cantidad:      l.Cantidad,
			StockAnterior: anterior,
			StockNuevo:    inv.StockTotal,
			Motivo:        "ingreso de lote " + l.NumeroLote,
			UsuarioID:     &usuario,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("lote_id", lote.ID.String()).
		Str("producto_id", productoID.String()).
		Int("cantidad", lote.Cantidad).
		Msg("lote ingresado")
	if s.precios != nil {
		s.precios.Invalidar(ctx, productoID)
	}
	return &dto.IngresoLoteResponse{Lote: loteToResponse(lote, now), StockTotal: stockTotal}, nil
}

// bloquearOCrearInventario locks the aggregate row, inserting an empty one first
// when the pair has never had stock.
func bloquearOCrearInventario(ctx context.Context, tx repository.StockTx, productoID, sucursalID uuid.UUID, now time.Time) (*model.Inventario, error) {
	inv, err := tx.LockInventario(ctx, productoID, sucursalID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	nuevo := &model.Inventario{
		ID:            uuid.New(),
		ProductoID:    productoID,
		SucursalID:    sucursalID,
		FechaRevision: now,
	}
	if err := tx.CrearInventario(ctx, nuevo); err != nil {
		return nil, err
	}
	return tx.LockInventario(ctx, productoID, sucursalID)
}

func (s *loteService) DarDeBaja(ctx context.Context, actor Actor, id uuid.UUID, req dto.BajaLoteRequest) (*dto.LoteResponse, error) {
	if !actor.Rol.Puede(model.CapGestionarLotes) {
		return nil, ErrSinPermiso
	}
	// Unlocked read to learn the pair; the inventory row is locked before the
	// lot, in the same order the sale engine uses.
	actual, err := s.lotes.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if actor.fijadoASucursal() && *actor.SucursalID != actual.SucursalID {
		return nil, ErrSucursalAjena
	}

	now := s.now()
	var resultado model.Lote
	err = s.store.Transaction(ctx, func(tx repository.StockTx) error {
		inv, err := bloquearOCrearInventario(ctx, tx, actual.ProductoID, actual.SucursalID, now)
		if err != nil {
			return err
		}
		lote, err := tx.LockLote(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoEncontrado
		}
		if err != nil {
			return err
		}
		if !lote.Activo {
			return fmt.Errorf("%w: el lote ya fue dado de baja", ErrDatosInvalidos)
		}

		lote.Activo = false
		if err := tx.GuardarLote(ctx, lote); err != nil {
			return err
		}
		anterior := inv.StockTotal
		inv.StockTotal -= lote.Cantidad
		inv.FechaRevision = now
		if err := tx.GuardarInventario(ctx, inv); err != nil {
			return err
		}
		usuario := actor.UsuarioID
		resultado = *lote
		return tx.CrearMovimiento(ctx, &model.MovimientoStock{
			ProductoID:    lote.ProductoID,
			SucursalID:    lote.SucursalID,
			LoteID:        lote.ID,
			Tipo:          model.MovimientoBaja,
			Cantidad:      -lote.Cantidad,
			StockAnterior: anterior,
			StockNuevo:    inv.StockTotal,
			Motivo:        req.Motivo,
			UsuarioID:     &usuario,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("lote_id", id.String()).Str("motivo", req.Motivo).Msg("lote dado de baja")
	if s.precios != nil {
		s.precios.Invalidar(ctx, resultado.ProductoID)
	}
	resp := loteToResponse(resultado, now)
	return &resp, nil
}

func (s *loteService) Listar(ctx context.Context, filter dto.LoteFilter) ([]dto.LoteResponse, error) {
	f := repository.LoteFilter{IncluirInactivos: filter.IncluirInactivos}
	var err error
	if f.ProductoID, err = parseUUIDOpcional(filter.ProductoID); err != nil {
		return nil, err
	}
	if f.SucursalID, err = parseUUIDOpcional(filter.SucursalID); err != nil {
		return nil, err
	}
	lotes, err := s.lotes.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return lotesToResponse(lotes, s.now()), nil
}

func (s *loteService) ProximosAVencer(ctx context.Context, filter dto.ProximosAVencerFilter) ([]dto.LoteResponse, error) {
	sucursalID, err := parseUUIDOpcional(filter.SucursalID)
	if err != nil {
		return nil, err
	}
	dias := filter.Dias
	if dias < 1 {
		dias = int(model.VentanaProximoVencimiento / (24 * time.Hour))
	}
	now := s.now()
	lotes, err := s.lotes.ProximosAVencer(ctx, sucursalID, now, now.AddDate(0, 0, dias))
	if err != nil {
		return nil, err
	}
	return lotesToResponse(lotes, now), nil
}

func parseUUIDOpcional(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrDatosInvalidos, s)
	}
	return &id, nil
}

func loteToResponse(l model.Lote, now time.Time) dto.LoteResponse {
	r := dto.LoteResponse{
		ID:               l.ID.String(),
		ProductoID:       l.ProductoID.String(),
		SucursalID:       l.SucursalID.String(),
		NumeroLote:       l.NumeroLote,
		FechaVencimiento: l.FechaVencimiento.Format("2006-01-02"),
		Cantidad:         l.Cantidad,
		Activo:           l.Activo,
		Vencido:          l.EstaVencido(now),
		ProximoAVencer:   !l.EstaVencido(now) && l.ProximoAVencer(now),
	}
	if l.Producto != nil {
		r.Producto = l.Producto.Nombre
	}
	return r
}

func lotesToResponse(lotes []model.Lote, now time.Time) []dto.LoteResponse {
	out := make([]dto.LoteResponse, 0, len(lotes))
	for _, l := range lotes {
		out = append(out, loteToResponse(l, now))
	}
	return out
}
