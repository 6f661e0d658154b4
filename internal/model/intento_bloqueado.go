package model

import (
	"time"

	"github.com/google/uuid"
)

// MotivoBloqueo is the machine-readable reason a sale attempt was rejected.
type MotivoBloqueo string

const (
	MotivoProductoNoEncontrado MotivoBloqueo = "PRODUCT_NOT_FOUND"
	MotivoProductoInactivo     MotivoBloqueo = "PRODUCT_INACTIVE"
	MotivoRequiereReceta       MotivoBloqueo = "REQUIRES_PRESCRIPTION"
	MotivoStockInsuficiente    MotivoBloqueo = "INSUFFICIENT_STOCK"
	MotivoProductoVencido      MotivoBloqueo = "PRODUCT_EXPIRED"
	MotivoStockInconsistente   MotivoBloqueo = "STOCK_INCONSISTENT"
	MotivoCarritoVacio         MotivoBloqueo = "EMPTY_CART"
)

// Valido reports whether m is one of the known rejection reasons.
func (m MotivoBloqueo) Valido() bool {
	switch m {
	case MotivoProductoNoEncontrado, MotivoProductoInactivo, MotivoRequiereReceta,
		MotivoStockInsuficiente, MotivoProductoVencido, MotivoStockInconsistente, MotivoCarritoVacio:
		return true
	}
	return false
}

// IntentoBloqueado is the append-only audit row for a rejected sale attempt.
// It is written outside the sale transaction so it survives the rollback.
type IntentoBloqueado struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	ClienteID       *uuid.UUID    `gorm:"type:uuid"`
	SucursalID      *uuid.UUID    `gorm:"type:uuid;index"`
	Motivo          MotivoBloqueo `gorm:"type:varchar(32);not null;index"`
	ProductoID      *uuid.UUID    `gorm:"type:uuid;index"`
	LoteID          *uuid.UUID    `gorm:"type:uuid"`
	CantidadIntento int           `gorm:"not null;default:0"`
	Mensaje         string        `gorm:"not null"`
	Fecha           time.Time     `gorm:"not null;index"`

	Usuario  *Usuario  `gorm:"foreignKey:UsuarioID"`
	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (IntentoBloqueado) TableName() string { return "intentos_bloqueados" }
