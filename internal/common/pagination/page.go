package pagination

// Metadata contains pagination metadata included in API responses.
type Metadata struct {
	Total      int `json:"total"`       // Items across all pages
	Page       int `json:"page"`        // Current page number (1-based)
	Limit      int `json:"limit"`       // Items per page
	TotalPages int `json:"total_pages"` // At least 1
}

// TotalPages is ceil(total / limit), and 1 for an empty list.
func TotalPages(total, limit int) int {
	if total == 0 || limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// Slice returns the items on page p. A page past the end is empty.
func Slice[T any](items []T, p Params) ([]T, Metadata) {
	meta := Metadata{
		Total:      len(items),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(len(items), p.Limit),
	}

	start := p.Offset()
	if start >= len(items) || start < 0 {
		return []T{}, meta
	}
	end := min(start+p.Limit, len(items))
	return items[start:end], meta
}
