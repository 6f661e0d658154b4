package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertaVencimiento = "vencimiento"
	AlertaStockBajo   = "stock_bajo"
)

// Alerta is produced by the background scans. The scans read lots and
// inventory but only ever write Alerta and Promocion rows.
type Alerta struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Tipo       string     `gorm:"type:varchar(20);not null;index"`
	Mensaje    string     `gorm:"not null"`
	ProductoID uuid.UUID  `gorm:"type:uuid;not null;index"`
	SucursalID *uuid.UUID `gorm:"type:uuid;index"`
	LoteID     *uuid.UUID `gorm:"type:uuid;index"`
	Leida      bool       `gorm:"not null;default:false"`
	Fecha      time.Time  `gorm:"not null;index"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (Alerta) TableName() string { return "alertas" }
