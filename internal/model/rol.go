package model

// Rol is the caller role carried in the access token.
type Rol string

const (
	RolAdmin        Rol = "admin"
	RolFarmaceutico Rol = "farmaceutico"
	RolVendedor     Rol = "vendedor"
	RolCliente      Rol = "cliente"
)

// Capacidad names an operation gated by role.
type Capacidad string

const (
	CapVender            Capacidad = "vender"
	CapDispensarReceta   Capacidad = "dispensar_receta"
	CapGestionarCatalogo Capacidad = "gestionar_catalogo"
	CapGestionarLotes    Capacidad = "gestionar_lotes"
	CapCrearPromocion    Capacidad = "crear_promocion"
	CapAprobarPromocion  Capacidad = "aprobar_promocion"
	CapVerAuditoria      Capacidad = "ver_auditoria"
	CapVerAlertas        Capacidad = "ver_alertas"
	CapGestionarUsuarios Capacidad = "gestionar_usuarios"
)

var capacidades = map[Rol]map[Capacidad]bool{
	RolAdmin: {
		CapVender: true, CapDispensarReceta: true, CapGestionarCatalogo: true,
		CapGestionarLotes: true, CapCrearPromocion: true, CapAprobarPromocion: true,
		CapVerAuditoria: true, CapVerAlertas: true, CapGestionarUsuarios: true,
	},
	RolFarmaceutico: {
		CapVender: true, CapDispensarReceta: true, CapGestionarCatalogo: true,
		CapGestionarLotes: true, CapCrearPromocion: true, CapAprobarPromocion: true,
		CapVerAuditoria: true, CapVerAlertas: true,
	},
	RolVendedor: {
		CapVender: true, CapDispensarReceta: true, CapVerAlertas: true,
	},
	RolCliente: {
		CapVender: true,
	},
}

// ParseRol returns the role for s and whether it is known.
func ParseRol(s string) (Rol, bool) {
	r := Rol(s)
	_, ok := capacidades[r]
	return r, ok
}

// Puede reports whether the role holds the capability. Unknown roles hold none.
func (r Rol) Puede(c Capacidad) bool {
	return capacidades[r][c]
}

// EsPersonal is true for every role except cliente.
func (r Rol) EsPersonal() bool {
	_, ok := capacidades[r]
	return ok && r != RolCliente
}
