package model

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de movimiento de stock.
const (
	MovimientoVenta   = "venta"
	MovimientoIngreso = "ingreso"
	MovimientoBaja    = "baja"
)

// MovimientoStock records one lot mutation together with the inventory
// aggregate before and after it. Rows are never updated.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SucursalID    uuid.UUID `gorm:"type:uuid;not null;index"`
	LoteID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"not null"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	UsuarioID     *uuid.UUID `gorm:"type:uuid"`
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // venta_id for tipo=venta
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
	Lote     *Lote     `gorm:"foreignKey:LoteID"`
}

func (MovimientoStock) TableName() string { return "movimientos_stock" }
