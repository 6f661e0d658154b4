package infra

import (
	"fmt"
	"time"

	"farmapos/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and brings the schema up to
// date. TranslateError is enabled so unique violations surface as
// gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table and then applies the
// constraints AutoMigrate cannot express. It is idempotent; integration tests
// call it directly against a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Sucursal{},
		&model.Categoria{},
		&model.Usuario{},
		&model.Producto{},
		&model.Lote{},
		&model.Inventario{},
		&model.Promocion{},
		&model.Venta{},
		&model.DetalleVenta{},
		&model.MovimientoStock{},
		&model.IntentoBloqueado{},
		&model.Alerta{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	log.Debug().Msg("database schema up to date")
	return nil
}

// applySchemaPatches adds CHECK constraints and partial indexes. Each statement
// is guarded so re-running on an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"chk_lotes_cantidad", checkConstraint("lotes", "chk_lotes_cantidad", "cantidad >= 0")},
		{"chk_inventarios_stock", checkConstraint("inventarios", "chk_inventarios_stock", "stock_total >= 0")},
		{"chk_promociones_pct", checkConstraint("promociones", "chk_promociones_pct",
			"porcentaje_descuento > 0 AND porcentaje_descuento <= 100")},
		{"chk_promociones_rango", checkConstraint("promociones", "chk_promociones_rango", "fecha_fin >= fecha_inicio")},
		{"chk_detalle_cantidad", checkConstraint("detalle_ventas", "chk_detalle_cantidad", "cantidad > 0")},
		// FIFO scans only ever read active lots with stock.
		{"idx_lotes_vendibles", `CREATE INDEX IF NOT EXISTS idx_lotes_vendibles
			ON lotes (producto_id, sucursal_id, fecha_vencimiento, numero_lote)
			WHERE activo = true AND cantidad > 0`},
		{"idx_alertas_no_leidas", `CREATE INDEX IF NOT EXISTS idx_alertas_no_leidas
			ON alertas (producto_id, sucursal_id)
			WHERE leida = false`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

func checkConstraint(table, name, expr string) string {
	return fmt.Sprintf(`DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
    ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
  END IF;
END $$`, name, table, name, expr)
}
