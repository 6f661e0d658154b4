package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	CodigoBarras   string          `json:"codigo_barras"   validate:"required,min=8,max=18"`
	Nombre         string          `json:"nombre"          validate:"required,min=2,max=120"`
	Descripcion    *string         `json:"descripcion"`
	CategoriaID    *string         `json:"categoria_id"    validate:"omitempty,uuid"`
	Precio         decimal.Decimal `json:"precio"          validate:"gt=0"`
	RequiereReceta bool            `json:"requiere_receta"`
}

type ActualizarProductoRequest struct {
	Nombre         *string          `json:"nombre"          validate:"omitempty,min=2,max=120"`
	Descripcion    *string          `json:"descripcion"`
	CategoriaID    *string          `json:"categoria_id"    validate:"omitempty,uuid"`
	Precio         *decimal.Decimal `json:"precio"`
	RequiereReceta *bool            `json:"requiere_receta"`
	Estado         *string          `json:"estado"          validate:"omitempty,oneof=activo promocion inactivo"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Nombre      string `form:"nombre"`
	CategoriaID string `form:"categoria_id" validate:"omitempty,uuid"`
	Estado      string `form:"estado"`
	Activo      string `form:"activo"` // "false" | "all" | default activos
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID             string          `json:"id"`
	CodigoBarras   string          `json:"codigo_barras"`
	Nombre         string          `json:"nombre"`
	Descripcion    *string         `json:"descripcion"`
	CategoriaID    *string         `json:"categoria_id"`
	Categoria      string          `json:"categoria,omitempty"`
	Precio         decimal.Decimal `json:"precio"`
	RequiereReceta bool            `json:"requiere_receta"`
	Estado         string          `json:"estado"`
	Activo         bool            `json:"activo"`
	// Staff only: lots and per-branch stock are hidden from customers.
	Lotes      []LoteResponse       `json:"lotes,omitempty"`
	Inventario []InventarioResponse `json:"inventario,omitempty"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ConsultaPreciosResponse is returned by the public price check endpoint.
type ConsultaPreciosResponse struct {
	Nombre          string          `json:"nombre"`
	PrecioBase      decimal.Decimal `json:"precio_base"`
	PrecioFinal     decimal.Decimal `json:"precio_final"`
	StockDisponible int             `json:"stock_disponible"`
	RequiereReceta  bool            `json:"requiere_receta"`
	Promocion       *string         `json:"promocion"`
}
