package dto

type AlertaFilter struct {
	Tipo         string `form:"tipo"        validate:"omitempty,oneof=vencimiento stock_bajo"`
	SucursalID   string `form:"sucursal_id" validate:"omitempty,uuid"`
	SoloNoLeidas bool   `form:"no_leidas"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type AlertaResponse struct {
	ID         string  `json:"id"`
	Tipo       string  `json:"tipo"`
	Mensaje    string  `json:"mensaje"`
	ProductoID string  `json:"producto_id"`
	SucursalID *string `json:"sucursal_id"`
	LoteID     *string `json:"lote_id"`
	Leida      bool    `json:"leida"`
	Fecha      string  `json:"fecha"`
}

type AlertaListResponse struct {
	Data  []AlertaResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// EscaneoResponse summarizes one run of the expiry scan.
type EscaneoResponse struct {
	AlertasCreadas       int `json:"alertas_creadas"`
	PromocionesSugeridas int `json:"promociones_sugeridas"`
}
