// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// RechazoError is returned when the sale engine rejects a cart. Codigo is the
// stable machine-readable reason; the ids point at the offending entities.
type RechazoError struct {
	Detail     string  `json:"detail"`
	Codigo     string  `json:"codigo"`
	ProductoID *string `json:"producto_id,omitempty"`
	LoteID     *string `json:"lote_id,omitempty"`
}

func NewRechazo(codigo, msg string, productoID, loteID *string) *RechazoError {
	return &RechazoError{Detail: msg, Codigo: codigo, ProductoID: productoID, LoteID: loteID}
}
