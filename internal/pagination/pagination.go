package pagination

// DefaultPageSize is the fixed page size of every listing endpoint.
const DefaultPageSize = 10

// Page describes one resolved page of a listing: the clamped 1-indexed page
// number, the total item and page counts, and the offset/limit to apply.
type Page struct {
	Number    int   `json:"page"`
	PageCount int   `json:"page_count"`
	Total     int64 `json:"total"`
	Offset    int   `json:"-"`
	Limit     int   `json:"-"`
}

// Resolve clamps a requested 1-indexed page number against a total item
// count. Pages below 1 clamp to the first page, pages past the end clamp to
// the last one, so a stale link never errors. An empty listing still has one
// (empty) page.
func Resolve(page, pageSize int, total int64) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pageCount := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pageCount < 1 {
		pageCount = 1
	}

	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	return Page{
		Number:    page,
		PageCount: pageCount,
		Total:     total,
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	}
}
