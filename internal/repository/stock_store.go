package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"farmapos/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("farmapos/repository")

// ErrNotFound is returned by StockTx lookups that match no row.
var ErrNotFound = errors.New("registro no encontrado")

// StockTx is the set of reads and writes available inside one stock
// transaction. Every Lock* method takes a row lock held until commit.
type StockTx interface {
	FindProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	LockInventario(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Inventario, error)
	// LockLotesActivos returns active lots with stock, earliest expiry first.
	LockLotesActivos(ctx context.Context, productoID, sucursalID uuid.UUID) ([]model.Lote, error)
	LockLote(ctx context.Context, id uuid.UUID) (*model.Lote, error)
	ExisteNumeroLote(ctx context.Context, productoID uuid.UUID, numeroLote string) (bool, error)
	PromocionesAprobadas(ctx context.Context, productoID uuid.UUID, now time.Time) ([]model.Promocion, error)

	CrearLote(ctx context.Context, l *model.Lote) error
	GuardarLote(ctx context.Context, l *model.Lote) error
	// CrearInventario inserts an empty aggregate; a concurrent insert of the same pair is not an error.
	CrearInventario(ctx context.Context, inv *model.Inventario) error
	GuardarInventario(ctx context.Context, inv *model.Inventario) error
	CrearVenta(ctx context.Context, v *model.Venta) error
	CrearMovimiento(ctx context.Context, m *model.MovimientoStock) error
}

// StockStore runs fn atomically: either every write made through tx is
// committed or none is.
type StockStore interface {
	Transaction(ctx context.Context, fn func(tx StockTx) error) error
}

// EsConflictoSerializacion reports whether err is a Postgres serialization
// failure or deadlock, both of which are safe to retry from scratch.
func EsConflictoSerializacion(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// ── GORM implementation ──────────────────────────────────────────────────────

type gormStockStore struct {
	db            *gorm.DB
	maxReintentos int
}

// NewStockStore returns a Postgres-backed StockStore using SERIALIZABLE
// transactions, retried up to maxReintentos times on serialization conflicts.
func NewStockStore(db *gorm.DB, maxReintentos int) StockStore {
	if maxReintentos < 1 {
		maxReintentos = 1
	}
	return &gormStockStore{db: db, maxReintentos: maxReintentos}
}

func (s *gormStockStore) Transaction(ctx context.Context, fn func(tx StockTx) error) error {
	var err error
	for intento := 1; intento <= s.maxReintentos; intento++ {
		err = s.intentar(ctx, intento, fn)
		if err == nil || !EsConflictoSerializacion(err) {
			return err
		}
		log.Warn().Err(err).Int("intento", intento).Msg("stock_store: conflicto de serializacion, reintentando")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(intento*intento) * 15 * time.Millisecond):
		}
	}
	return fmt.Errorf("transaccion abortada tras %d intentos: %w", s.maxReintentos, err)
}

func (s *gormStockStore) intentar(ctx context.Context, intento int, fn func(tx StockTx) error) error {
	ctx, span := tracer.Start(ctx, "venta.tx",
		trace.WithAttributes(
			attribute.Int("tx.intento", intento),
			attribute.String("tx.isolation", "serializable"),
		))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStockTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

type gormStockTx struct{ db *gorm.DB }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (t *gormStockTx) forUpdate(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormStockTx) FindProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	if err := t.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (t *gormStockTx) LockInventario(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Inventario, error) {
	var inv model.Inventario
	err := t.forUpdate(ctx).
		Where("producto_id = ? AND sucursal_id = ?", productoID, sucursalID).
		First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (t *gormStockTx) LockLotesActivos(ctx context.Context, productoID, sucursalID uuid.UUID) ([]model.Lote, error) {
	var lotes []model.Lote
	err := t.forUpdate(ctx).
		Where("producto_id = ? AND sucursal_id = ? AND activo = true AND cantidad > 0", productoID, sucursalID).
		Order("fecha_vencimiento ASC").Order("numero_lote ASC").
		Find(&lotes).Error
	return lotes, err
}

func (t *gormStockTx) LockLote(ctx context.Context, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	if err := t.forUpdate(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (t *gormStockTx) ExisteNumeroLote(ctx context.Context, productoID uuid.UUID, numeroLote string) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&model.Lote{}).
		Where("producto_id = ? AND numero_lote = ?", productoID, numeroLote).
		Count(&n).Error
	return n > 0, err
}

func (t *gormStockTx) PromocionesAprobadas(ctx context.Context, productoID uuid.UUID, now time.Time) ([]model.Promocion, error) {
	var promos []model.Promocion
	err := t.db.WithContext(ctx).
		Where("producto_id = ? AND aprobada = true AND activo = true AND fecha_inicio <= ? AND fecha_fin >= ?",
			productoID, now, now).
		Order("porcentaje_descuento DESC").Order("fecha_inicio ASC").Order("id ASC").
		Find(&promos).Error
	return promos, err
}

func (t *gormStockTx) CrearLote(ctx context.Context, l *model.Lote) error {
	return t.db.WithContext(ctx).Create(l).Error
}

func (t *gormStockTx) GuardarLote(ctx context.Context, l *model.Lote) error {
	// map form so that cantidad=0 and activo=false are written
	return t.db.WithContext(ctx).Model(&model.Lote{}).Where("id = ?", l.ID).Updates(map[string]interface{}{
		"cantidad": l.Cantidad,
		"activo":   l.Activo,
	}).Error
}

func (t *gormStockTx) CrearInventario(ctx context.Context, inv *model.Inventario) error {
	return t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "producto_id"}, {Name: "sucursal_id"}},
			DoNothing: true,
		}).
		Create(inv).Error
}

func (t *gormStockTx) GuardarInventario(ctx context.Context, inv *model.Inventario) error {
	return t.db.WithContext(ctx).Model(&model.Inventario{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
		"stock_total":    inv.StockTotal,
		"fecha_revision": inv.FechaRevision,
	}).Error
}

func (t *gormStockTx) CrearVenta(ctx context.Context, v *model.Venta) error {
	db := t.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(v).Error; err != nil {
		return err
	}
	if len(v.Detalles) == 0 {
		return nil
	}
	for i := range v.Detalles {
		v.Detalles[i].VentaID = v.ID
	}
	return db.Omit(clause.Associations).Create(&v.Detalles).Error
}

func (t *gormStockTx) CrearMovimiento(ctx context.Context, m *model.MovimientoStock) error {
	return t.db.WithContext(ctx).Create(m).Error
}
