package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"farmapos/internal/dto"
	"farmapos/internal/infra"
	"farmapos/internal/model"
	"farmapos/internal/repository"
	"farmapos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UsuarioID  uuid.UUID
	Rol        model.Rol
	SucursalID *uuid.UUID
}

// fijadoASucursal reports whether the caller may only operate at its own branch.
func (a Actor) fijadoASucursal() bool {
	return a.Rol.EsPersonal() && a.Rol != model.RolAdmin && a.SucursalID != nil
}

type VentaService interface {
	ProcesarVenta(ctx context.Context, actor Actor, req dto.ProcesarVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, actor Actor, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, actor Actor, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	GenerarTicket(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, error)
}

type ventaService struct {
	store      repository.StockStore
	intentos   repository.IntentoWriter
	ventas     repository.VentaRepository
	dispatcher *worker.Dispatcher
	now        func() time.Time
}

// NewVentaService wires the sale engine. dispatcher may be nil (no post-sale
// jobs); reloj may be nil (time.Now).
func NewVentaService(
	store repository.StockStore,
	intentos repository.IntentoWriter,
	ventas repository.VentaRepository,
	dispatcher *worker.Dispatcher,
	reloj func() time.Time,
) VentaService {
	if reloj == nil {
		reloj = time.Now
	}
	return &ventaService{
		store:      store,
		intentos:   intentos,
		ventas:     ventas,
		dispatcher: dispatcher,
		now:        reloj,
	}
}

type lineaCarrito struct {
	productoID uuid.UUID
	cantidad   int
}

// ── ProcesarVenta ─────────────────────────────────────────────────────────────
//   1. Resolve branch and customer from the caller
//   2. Empty cart: reject before opening a transaction
//   3. BEGIN SERIALIZABLE: lock inventory rows in product id order, then per line
//      eligibility → aggregate check → FIFO allocation → lot/inventory writes
//   4. Write venta + detalles, COMMIT
//   5. On rejection: one intento_bloqueado outside the rolled back transaction
//   6. (async) venta_registrada job

func (s *ventaService) ProcesarVenta(ctx context.Context, actor Actor, req dto.ProcesarVentaRequest) (*dto.VentaResponse, error) {
	if !actor.Rol.Puede(model.CapVender) {
		return nil, ErrSinPermiso
	}
	sucursalID, err := resolverSucursal(actor, req.SucursalID)
	if err != nil {
		return nil, err
	}
	clienteID, err := resolverCliente(actor, req.ClienteID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	intento := model.IntentoBloqueado{
		UsuarioID:  actor.UsuarioID,
		ClienteID:  clienteID,
		SucursalID: &sucursalID,
		Fecha:      now,
	}

	if len(req.Lineas) == 0 {
		r := nuevoRechazo(model.MotivoCarritoVacio, nil, nil, 0, "el carrito está vacío")
		s.registrarIntento(ctx, intento, r)
		return nil, r
	}

	lineas := make([]lineaCarrito, 0, len(req.Lineas))
	for _, l := range req.Lineas {
		pid, err := uuid.Parse(l.ProductoID)
		if err != nil || l.Cantidad < 1 {
			return nil, fmt.Errorf("%w: línea %q", ErrDatosInvalidos, l.ProductoID)
		}
		lineas = append(lineas, lineaCarrito{productoID: pid, cantidad: l.Cantidad})
	}

	var venta *model.Venta
	err = s.store.Transaction(ctx, func(tx repository.StockTx) error {
		v, err := s.ejecutarCarrito(ctx, tx, actor, sucursalID, clienteID, lineas, now)
		if err != nil {
			return err
		}
		venta = v
		return nil
	})
	if err != nil {
		if r, ok := ComoRechazo(err); ok {
			s.registrarIntento(ctx, intento, r)
			return nil, r
		}
		return nil, fmt.Errorf("procesar venta: %w", err)
	}

	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("sucursal_id", sucursalID.String()).
		Str("total", venta.Total.StringFixed(2)).
		Int("detalles", len(venta.Detalles)).
		Msg("venta registrada")

	s.notificarVenta(ctx, venta)
	return ventaToResponse(venta), nil
}

// ejecutarCarrito runs inside the stock transaction and may be invoked again
// on a serialization retry, so it keeps no state outside its return value.
func (s *ventaService) ejecutarCarrito(
	ctx context.Context,
	tx repository.StockTx,
	actor Actor,
	sucursalID uuid.UUID,
	clienteID *uuid.UUID,
	lineas []lineaCarrito,
	now time.Time,
) (*model.Venta, error) {
	inventarios, err := bloquearInventarios(ctx, tx, lineas, sucursalID)
	if err != nil {
		return nil, err
	}

	venta := &model.Venta{
		ID:         uuid.New(),
		ClienteID:  clienteID,
		VendedorID: actor.UsuarioID,
		SucursalID: sucursalID,
		Fecha:      now,
		VentaError: false,
	}
	total := decimal.Zero

	for _, linea := range lineas {
		pid := linea.productoID
		producto, err := tx.FindProducto(ctx, pid)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nuevoRechazo(model.MotivoProductoNoEncontrado, uuidPtr(pid), nil, linea.cantidad,
				"producto %s no encontrado", pid)
		}
		if err != nil {
			return nil, err
		}

		if r := VerificarElegibilidad(producto, actor.Rol); r != nil {
			r.Cantidad = linea.cantidad
			return nil, r
		}

		inv := inventarios[pid]
		disponible := 0
		if inv != nil {
			disponible = inv.StockTotal
		}
		if disponible < linea.cantidad {
			return nil, nuevoRechazo(model.MotivoStockInsuficiente, uuidPtr(pid), nil, linea.cantidad,
				"stock insuficiente para %s: disponible %d, solicitado %d", producto.Nombre, disponible, linea.cantidad)
		}

		lotes, err := tx.LockLotesActivos(ctx, pid, sucursalID)
		if err != nil {
			return nil, err
		}
		promos, err := tx.PromocionesAprobadas(ctx, pid, now)
		if err != nil {
			return nil, err
		}

		ledger := nuevoLedger(lotes, now)
		asignaciones, r := asignarFIFO(*producto, sucursalID.String(), ledger, linea.cantidad, promos)
		if r != nil {
			return nil, r
		}

		for _, a := range asignaciones {
			lote := ledger.Consumir(a.indice, a.cantidad)
			if err := tx.GuardarLote(ctx, &lote); err != nil {
				return nil, err
			}

			anterior := inv.StockTotal
			inv.StockTotal -= a.cantidad
			ventaRef := venta.ID
			usuario := actor.UsuarioID
			mov := &model.MovimientoStock{
				ProductoID:    pid,
				SucursalID:    sucursalID,
				LoteID:        lote.ID,
				Tipo:          model.MovimientoVenta,
				Cantidad:      -a.cantidad,
				StockAnterior: anterior,
				StockNuevo:    inv.StockTotal,
				Motivo:        "venta",
				UsuarioID:     &usuario,
				ReferenciaID:  &ventaRef,
			}
			if err := tx.CrearMovimiento(ctx, mov); err != nil {
				return nil, err
			}

			detalle := model.DetalleVenta{
				ID:             uuid.New(),
				VentaID:        venta.ID,
				ProductoID:     pid,
				LoteID:         lote.ID,
				Cantidad:       a.cantidad,
				PrecioUnitario: a.precioUnitario,
				Subtotal:       a.subtotal(),
				Producto:       producto,
				Lote:           &lote,
			}
			venta.Detalles = append(venta.Detalles, detalle)
			total = total.Add(detalle.Subtotal)
		}

		inv.FechaRevision = now
		if err := tx.GuardarInventario(ctx, inv); err != nil {
			return nil, err
		}
	}

	venta.Total = total
	if err := tx.CrearVenta(ctx, venta); err != nil {
		return nil, err
	}
	return venta, nil
}

// bloquearInventarios locks the inventory row of every distinct cart product
// in ascending id order. Missing rows are left out of the map.
func bloquearInventarios(ctx context.Context, tx repository.StockTx, lineas []lineaCarrito, sucursalID uuid.UUID) (map[uuid.UUID]*model.Inventario, error) {
	ids := make([]uuid.UUID, 0, len(lineas))
	vistos := make(map[uuid.UUID]bool, len(lineas))
	for _, l := range lineas {
		if !vistos[l.productoID] {
			vistos[l.productoID] = true
			ids = append(ids, l.productoID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	out := make(map[uuid.UUID]*model.Inventario, len(ids))
	for _, id := range ids {
		inv, err := tx.LockInventario(ctx, id, sucursalID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = inv
	}
	return out, nil
}

func resolverSucursal(actor Actor, solicitada *string) (uuid.UUID, error) {
	if solicitada != nil && *solicitada != "" {
		id, err := uuid.Parse(*solicitada)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: sucursal_id", ErrDatosInvalidos)
		}
		if actor.fijadoASucursal() && *actor.SucursalID != id {
			return uuid.Nil, ErrSucursalAjena
		}
		return id, nil
	}
	if actor.SucursalID != nil {
		return *actor.SucursalID, nil
	}
	return uuid.Nil, ErrSucursalRequerida
}

// resolverCliente records a customer caller as the buyer; staff may name one.
func resolverCliente(actor Actor, solicitado *string) (*uuid.UUID, error) {
	if actor.Rol == model.RolCliente {
		id := actor.UsuarioID
		return &id, nil
	}
	if solicitado == nil || *solicitado == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*solicitado)
	if err != nil {
		return nil, fmt.Errorf("%w: cliente_id", ErrDatosInvalidos)
	}
	return &id, nil
}

// registrarIntento writes the audit row with a context that outlives the
// request, so a client disconnect does not drop it.
func (s *ventaService) registrarIntento(ctx context.Context, intento model.IntentoBloqueado, r *Rechazo) {
	intento.Motivo = r.Motivo
	intento.ProductoID = r.ProductoID
	intento.LoteID = r.LoteID
	intento.CantidadIntento = r.Cantidad
	intento.Mensaje = r.Mensaje

	ev := log.Warn().Str("motivo", string(r.Motivo)).Str("usuario_id", intento.UsuarioID.String())
	if r.ProductoID != nil {
		ev = ev.Str("producto_id", r.ProductoID.String())
	}
	ev.Msg("venta rechazada")

	if s.intentos == nil {
		return
	}
	if err := s.intentos.Registrar(context.WithoutCancel(ctx), &intento); err != nil {
		log.Error().Err(err).Str("motivo", string(r.Motivo)).Msg("no se pudo registrar el intento bloqueado")
	}
}

func (s *ventaService) notificarVenta(ctx context.Context, v *model.Venta) {
	if s.dispatcher == nil {
		return
	}
	payload := worker.VentaRegistradaPayload{
		VentaID:    v.ID.String(),
		SucursalID: v.SucursalID.String(),
	}
	vistos := map[uuid.UUID]bool{}
	for _, d := range v.Detalles {
		if !vistos[d.ProductoID] {
			vistos[d.ProductoID] = true
			payload.ProductoIDs = append(payload.ProductoIDs, d.ProductoID.String())
		}
	}
	if err := s.dispatcher.EnqueueVentaRegistrada(context.WithoutCancel(ctx), payload); err != nil {
		log.Warn().Err(err).Str("venta_id", payload.VentaID).Msg("no se pudo encolar venta_registrada")
	}
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *ventaService) buscarVisible(ctx context.Context, actor Actor, id uuid.UUID) (*model.Venta, error) {
	v, err := s.ventas.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if actor.Rol == model.RolCliente && (v.ClienteID == nil || *v.ClienteID != actor.UsuarioID) {
		return nil, ErrNoEncontrado
	}
	if actor.fijadoASucursal() && *actor.SucursalID != v.SucursalID {
		return nil, ErrNoEncontrado
	}
	return v, nil
}

func (s *ventaService) ObtenerVenta(ctx context.Context, actor Actor, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.buscarVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(v), nil
}

func (s *ventaService) GenerarTicket(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, error) {
	v, err := s.buscarVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return infra.GenerarTicketPDF(v)
}

// ListarVentas is staff-only; branch-pinned staff only see their branch.
func (s *ventaService) ListarVentas(ctx context.Context, actor Actor, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if !actor.Rol.EsPersonal() {
		return nil, ErrSinPermiso
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if actor.fijadoASucursal() {
		filter.SucursalID = actor.SucursalID.String()
	}
	ventas, total, err := s.ventas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	detalles := make([]dto.DetalleVentaResponse, 0, len(v.Detalles))
	for _, d := range v.Detalles {
		item := dto.DetalleVentaResponse{
			ProductoID:     d.ProductoID.String(),
			LoteID:         d.LoteID.String(),
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.Subtotal,
		}
		if d.Producto != nil {
			item.Producto = d.Producto.Nombre
		}
		if d.Lote != nil {
			item.NumeroLote = d.Lote.NumeroLote
		}
		detalles = append(detalles, item)
	}
	return &dto.VentaResponse{
		ID:         v.ID.String(),
		ClienteID:  uuidString(v.ClienteID),
		VendedorID: v.VendedorID.String(),
		SucursalID: v.SucursalID.String(),
		Fecha:      v.Fecha.Format(time.RFC3339),
		Total:      v.Total,
		VentaError: v.VentaError,
		Detalles:   detalles,
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
