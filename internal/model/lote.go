package model

import (
	"time"

	"github.com/google/uuid"
)

// VentanaProximoVencimiento is the near-expiry threshold shared by pricing,
// alerting and customer visibility.
const VentanaProximoVencimiento = 60 * 24 * time.Hour

// Lote is a dated batch of one product at one branch.
// Cantidad never goes negative; a lot that reaches zero is deactivated, not deleted.
type Lote struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lote_producto_numero;index:idx_lote_fifo,priority:1"`
	SucursalID       uuid.UUID `gorm:"type:uuid;not null;index:idx_lote_fifo,priority:2"`
	NumeroLote       string    `gorm:"not null;uniqueIndex:idx_lote_producto_numero"`
	FechaVencimiento time.Time `gorm:"not null;index:idx_lote_fifo,priority:3"`
	Cantidad         int       `gorm:"not null;default:0"`
	Activo           bool      `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
	Sucursal *Sucursal `gorm:"foreignKey:SucursalID"`
}

// EstaVencido reports whether the lot expired strictly before now.
func (l Lote) EstaVencido(now time.Time) bool {
	return l.FechaVencimiento.Before(now)
}

// ProximoAVencer reports whether the lot expires within the near-expiry window.
// Already expired lots also satisfy this; callers check EstaVencido first.
func (l Lote) ProximoAVencer(now time.Time) bool {
	return !l.FechaVencimiento.After(now.Add(VentanaProximoVencimiento))
}

// Inventario is the denormalized stock total of a product at a branch.
// StockTotal must equal the sum of Cantidad over the active lots of the same pair.
type Inventario struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventario_producto_sucursal"`
	SucursalID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventario_producto_sucursal"`
	StockTotal    int       `gorm:"not null;default:0"`
	FechaRevision time.Time `gorm:"not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (Inventario) TableName() string { return "inventarios" }
