package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is the sale header. It is only ever written together with all of its
// Detalles, inside the transaction that mutated the lots they reference.
type Venta struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID  *uuid.UUID      `gorm:"type:uuid;index"`
	VendedorID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SucursalID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Fecha      time.Time       `gorm:"not null;index"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// VentaError flags a sale that ran into an expired lot. Committed sales always carry false.
	VentaError bool `gorm:"not null;default:false"`
	CreatedAt  time.Time

	Detalles []DetalleVenta `gorm:"foreignKey:VentaID"`
	Vendedor *Usuario       `gorm:"foreignKey:VendedorID"`
	Sucursal *Sucursal      `gorm:"foreignKey:SucursalID"`
}

// DetalleVenta is one lot consumed by one cart line. A line that spans several
// lots yields several detail rows.
type DetalleVenta struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	LoteID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
	Lote     *Lote     `gorm:"foreignKey:LoteID"`
}
