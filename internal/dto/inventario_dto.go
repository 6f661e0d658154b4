package dto

type InventarioFilter struct {
	ProductoID string `form:"producto_id" validate:"required,uuid"`
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
}

type InventarioResponse struct {
	ProductoID    string         `json:"producto_id"`
	SucursalID    string         `json:"sucursal_id"`
	StockTotal    int            `json:"stock_total"`
	FechaRevision string         `json:"fecha_revision"`
	Lotes         []LoteResponse `json:"lotes,omitempty"`
}

// InconsistenciaResponse lists a (product, branch) pair whose aggregate does
// not match the sum of its active lots.
type InconsistenciaResponse struct {
	ProductoID string `json:"producto_id"`
	SucursalID string `json:"sucursal_id"`
	StockTotal int    `json:"stock_total"`
	SumaLotes  int    `json:"suma_lotes"`
}

type MovimientoFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=venta ingreso baja"`
	Page       int    `form:"page,default=1"    validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovimientoResponse struct {
	ID            string  `json:"id"`
	ProductoID    string  `json:"producto_id"`
	SucursalID    string  `json:"sucursal_id"`
	LoteID        string  `json:"lote_id"`
	Tipo          string  `json:"tipo"`
	Cantidad      int     `json:"cantidad"`
	StockAnterior int     `json:"stock_anterior"`
	StockNuevo    int     `json:"stock_nuevo"`
	Motivo        string  `json:"motivo"`
	ReferenciaID  *string `json:"referencia_id"`
	CreatedAt     string  `json:"created_at"`
}

type MovimientoListResponse struct {
	Data  []MovimientoResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
