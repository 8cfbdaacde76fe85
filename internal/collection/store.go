// Package collection maintains the client-local view of the todo list: a
// materialized page of items reconciled against full server snapshots, a
// pagination window for the unfiltered view, and the drag-reorder engine.
package collection

import (
	"github.com/mcollina/githuman-sub002/internal/client"
	"github.com/mcollina/githuman-sub002/internal/domain"
)

// DefaultPageSize is the pagination increment for the unfiltered view.
const DefaultPageSize = 20

// Store holds the locally materialized items and the server-reported total
// for the active filter. Every fetch result replaces the whole view; partial
// merges are never attempted, so deletes by other clients cannot leave stale
// entries behind.
type Store struct {
	items []domain.Todo
	total int64
}

func NewStore() *Store {
	return &Store{}
}

// ApplyList reconciles the store with one full server snapshot. Items keep
// the server order (position ascending); a duplicated id in the payload is
// dropped to preserve the uniqueness invariant.
func (s *Store) ApplyList(result *client.ListResult) {
	seen := make(map[string]struct{}, len(result.Data))
	items := make([]domain.Todo, 0, len(result.Data))
	for _, todo := range result.Data {
		if _, dup := seen[todo.ID]; dup {
			continue
		}
		seen[todo.ID] = struct{}{}
		items = append(items, todo)
	}

	s.items = items
	s.total = result.Total
}

// Items returns a copy of the materialized items in server order.
func (s *Store) Items() []domain.Todo {
	items := make([]domain.Todo, len(s.items))
	copy(items, s.items)
	return items
}

// IDs returns the materialized ids in server order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.items))
	for i, todo := range s.items {
		ids[i] = todo.ID
	}
	return ids
}

// Len is the number of materialized items.
func (s *Store) Len() int {
	return len(s.items)
}

// Total is the server-reported count for the active filter, independent of
// how many items are materialized locally.
func (s *Store) Total() int64 {
	return s.total
}

// Paginator tracks how many items the client intends to materialize under
// the unfiltered view. Filtered views always load the complete set and never
// consult it.
type Paginator struct {
	pageSize    int
	loadedCount int
}

func NewPaginator(pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{pageSize: pageSize, loadedCount: pageSize}
}

// Reset returns the window to one page. Called on every filter or review
// scope change so pagination state never carries across unrelated views.
func (p *Paginator) Reset() {
	p.loadedCount = p.pageSize
}

// LoadedCount is the current window size, always a multiple of the page size.
func (p *Paginator) LoadedCount() int {
	return p.loadedCount
}

// HasMore reports whether the server holds items beyond the window.
func (p *Paginator) HasMore(total int64) bool {
	return total > int64(p.loadedCount)
}

// LoadMore widens the window by one page. It is a no-op when the window
// already covers the total.
func (p *Paginator) LoadMore(total int64) bool {
	if !p.HasMore(total) {
		return false
	}
	p.loadedCount += p.pageSize
	return true
}
