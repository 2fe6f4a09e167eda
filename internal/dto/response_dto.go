package dto

// PaginationMeta accompanies paged list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type PagedResponse[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// InsufficientCreditsData is the 402 payload.
type InsufficientCreditsData struct {
	Required  int `json:"required"`
	Available int `json:"available"`
}

// CooldownData is the 429 payload.
type CooldownData struct {
	RemainingSeconds int `json:"remaining_seconds"`
}
