package service

import (
	"errors"
	"fmt"

	"farmapos/internal/model"

	"github.com/google/uuid"
)

// Rechazo is a business rejection of a sale attempt. It aborts the whole
// cart and is mirrored into exactly one IntentoBloqueado row.
type Rechazo struct {
	Motivo     model.MotivoBloqueo
	ProductoID *uuid.UUID
	LoteID     *uuid.UUID
	Cantidad   int
	Mensaje    string
}

func (r *Rechazo) Error() string {
	return fmt.Sprintf("%s: %s", r.Motivo, r.Mensaje)
}

func nuevoRechazo(motivo model.MotivoBloqueo, productoID, loteID *uuid.UUID, cantidad int, format string, args ...any) *Rechazo {
	return &Rechazo{
		Motivo:     motivo,
		ProductoID: productoID,
		LoteID:     loteID,
		Cantidad:   cantidad,
		Mensaje:    fmt.Sprintf(format, args...),
	}
}

// ComoRechazo unwraps err into a *Rechazo.
func ComoRechazo(err error) (*Rechazo, bool) {
	var r *Rechazo
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
