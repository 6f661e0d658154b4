package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados de catálogo de un producto.
const (
	EstadoProductoActivo    = "activo"
	EstadoProductoPromocion = "promocion"
	EstadoProductoInactivo  = "inactivo"
)

// Producto is a catalog item. Stock lives in Lote/Inventario, never here.
// Activo=false is a soft delete; Estado tracks the commercial lifecycle.
type Producto struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras   string    `gorm:"uniqueIndex;not null"`
	Nombre         string    `gorm:"index;not null"`
	Descripcion    *string
	CategoriaID    *uuid.UUID      `gorm:"type:uuid;index"`
	Precio         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	RequiereReceta bool            `gorm:"not null;default:false"`
	Estado         string          `gorm:"type:varchar(20);not null;default:'activo'"`
	Activo         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Categoria *Categoria `gorm:"foreignKey:CategoriaID"`
}
