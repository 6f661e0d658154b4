package service

import (
	"farmapos/internal/model"
)

// VerificarElegibilidad rejects products that the caller may not buy.
// It is a pure check over an already loaded product.
func VerificarElegibilidad(p *model.Producto, rol model.Rol) *Rechazo {
	if !p.Activo || p.Estado == model.EstadoProductoInactivo {
		return nuevoRechazo(model.MotivoProductoInactivo, uuidPtr(p.ID), nil, 0,
			"el producto %s no está disponible para la venta", p.Nombre)
	}
	if p.RequiereReceta && !rol.Puede(model.CapDispensarReceta) {
		return nuevoRechazo(model.MotivoRequiereReceta, uuidPtr(p.ID), nil, 0,
			"el producto %s requiere receta y debe ser dispensado por personal de farmacia", p.Nombre)
	}
	return nil
}
