package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LineaVentaRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

// ProcesarVentaRequest is the cart submitted to POST /v1/ventas.
// An empty Lineas slice is accepted by validation and rejected by the engine
// with EMPTY_CART.
type ProcesarVentaRequest struct {
	ClienteID  *string             `json:"cliente_id"  validate:"omitempty,uuid"`
	SucursalID *string             `json:"sucursal_id" validate:"omitempty,uuid"`
	Lineas     []LineaVentaRequest `json:"lineas"      validate:"dive"`
}

// VentaFilter is bound from the query string of GET /v1/ventas.
type VentaFilter struct {
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	VendedorID string `form:"vendedor_id" validate:"omitempty,uuid"`
	Desde      string `form:"desde"` // YYYY-MM-DD
	Hasta      string `form:"hasta"` // YYYY-MM-DD, inclusive
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetalleVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	LoteID         string          `json:"lote_id"`
	NumeroLote     string          `json:"numero_lote"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type VentaResponse struct {
	ID         string                 `json:"id"`
	ClienteID  *string                `json:"cliente_id"`
	VendedorID string                 `json:"vendedor_id"`
	SucursalID string                 `json:"sucursal_id"`
	Fecha      string                 `json:"fecha"`
	Total      decimal.Decimal        `json:"total"`
	VentaError bool                   `json:"venta_error"`
	Detalles   []DetalleVentaResponse `json:"detalles"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
