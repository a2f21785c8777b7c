package aggregate

// =============================================================================
// PAGINATION - Shared page/limit handling for recent-activity lists
// =============================================================================

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page is a caller-supplied page request. Zero values mean defaults.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the request to sane bounds: page >= 1, 1 <= limit <= 100.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset is the row offset for the normalized page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Paginated is one page of results with its count metadata.
type Paginated[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int
	Pages int
}

func newPaginated[T any](items []T, p Page, total int) Paginated[T] {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{Items: items, Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}
