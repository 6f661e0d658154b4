package model

import (
	"time"

	"github.com/google/uuid"
)

// Usuario stores staff and customer accounts.
// SucursalID pins staff to one branch; nil means any branch.
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	Email        *string
	PasswordHash string     `gorm:"not null"`
	Rol          Rol        `gorm:"type:varchar(20);not null"`
	SucursalID   *uuid.UUID `gorm:"type:uuid"`
	Activo       bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
