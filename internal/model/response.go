package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta describes one page of total results. An unbounded page reports a
// single page.
func NewMeta(page Page, total int) Meta {
	meta := Meta{Page: page.Number, Limit: page.Size, Total: total}
	switch {
	case total <= 0:
	case page.IsUnbounded():
		meta.Limit = total
		meta.TotalPages = 1
	default:
		meta.TotalPages = (total + page.Size - 1) / page.Size
	}
	return meta
}
