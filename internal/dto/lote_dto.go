package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type IngresarLoteRequest struct {
	ProductoID       string `json:"producto_id"       validate:"required,uuid"`
	SucursalID       string `json:"sucursal_id"       validate:"required,uuid"`
	NumeroLote       string `json:"numero_lote"       validate:"required,min=1,max=60"`
	FechaVencimiento string `json:"fecha_vencimiento" validate:"required,datetime=2006-01-02"`
	Cantidad         int    `json:"cantidad"          validate:"required,min=1"`
}

type BajaLoteRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3,max=200"`
}

type LoteFilter struct {
	ProductoID       string `form:"producto_id"  validate:"omitempty,uuid"`
	SucursalID       string `form:"sucursal_id"  validate:"omitempty,uuid"`
	IncluirInactivos bool   `form:"incluir_inactivos"`
}

type ProximosAVencerFilter struct {
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Dias       int    `form:"dias,default=60" validate:"min=1,max=365"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LoteResponse struct {
	ID               string `json:"id"`
	ProductoID       string `json:"producto_id"`
	Producto         string `json:"producto,omitempty"`
	SucursalID       string `json:"sucursal_id"`
	NumeroLote       string `json:"numero_lote"`
	FechaVencimiento string `json:"fecha_vencimiento"`
	Cantidad         int    `json:"cantidad"`
	Activo           bool   `json:"activo"`
	Vencido          bool   `json:"vencido"`
	ProximoAVencer   bool   `json:"proximo_a_vencer"`
}

type IngresoLoteResponse struct {
	Lote       LoteResponse `json:"lote"`
	StockTotal int          `json:"stock_total"`
}
