package dto

// IntentoFilter is bound from GET /v1/intentos-bloqueados.
type IntentoFilter struct {
	Motivo     string `form:"motivo"`
	UsuarioID  string `form:"usuario_id"  validate:"omitempty,uuid"`
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Desde      string `form:"desde"` // YYYY-MM-DD
	Hasta      string `form:"hasta"` // YYYY-MM-DD, inclusive
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type IntentoResponse struct {
	ID              string  `json:"id"`
	UsuarioID       string  `json:"usuario_id"`
	Usuario         string  `json:"usuario,omitempty"`
	ClienteID       *string `json:"cliente_id"`
	SucursalID      *string `json:"sucursal_id"`
	Motivo          string  `json:"motivo"`
	ProductoID      *string `json:"producto_id"`
	Producto        string  `json:"producto,omitempty"`
	LoteID          *string `json:"lote_id"`
	CantidadIntento int     `json:"cantidad_intento"`
	Mensaje         string  `json:"mensaje"`
	Fecha           string  `json:"fecha"`
}

type IntentoListResponse struct {
	Data  []IntentoResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
