package service

import "errors"

// Sentinel errors shared by the services. Handlers map them to status codes;
// anything else is reported as a 500 without its text.
var (
	ErrNoEncontrado      = errors.New("recurso no encontrado")
	ErrSinPermiso        = errors.New("operación no permitida para el rol")
	ErrDatosInvalidos    = errors.New("datos inválidos")
	ErrConflicto         = errors.New("el recurso ya existe")
	ErrSucursalRequerida = errors.New("sucursal_id es obligatorio")
	ErrSucursalAjena     = errors.New("el usuario no puede operar en otra sucursal")
	ErrCredenciales      = errors.New("credenciales inválidas")
)
