package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Promocion is a time-windowed percentage discount on a product.
// Only approved, active promotions whose window contains "now" affect pricing.
// Sugerida marks rows created by the expiry scan, pending human approval.
type Promocion struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	PorcentajeDescuento decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	FechaInicio         time.Time       `gorm:"not null"`
	FechaFin            time.Time       `gorm:"not null"`
	Aprobada            bool            `gorm:"not null;default:false"`
	Activo              bool            `gorm:"not null;default:true"`
	Sugerida            bool            `gorm:"not null;default:false"`
	CreatedAt           time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (Promocion) TableName() string { return "promociones" }

// Vigente reports whether the promotion may be applied at now.
func (p Promocion) Vigente(now time.Time) bool {
	return p.Aprobada && p.Activo && !now.Before(p.FechaInicio) && !now.After(p.FechaFin)
}
