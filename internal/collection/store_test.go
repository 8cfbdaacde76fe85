package collection

import (
	"reflect"
	"testing"

	"github.com/mcollina/githuman-sub002/internal/client"
	"github.com/mcollina/githuman-sub002/internal/domain"
)

func listResult(total int64, ids ...string) *client.ListResult {
	todos := make([]domain.Todo, len(ids))
	for i, id := range ids {
		todos[i] = domain.Todo{ID: id, Content: "todo " + id, Position: i}
	}
	return &client.ListResult{Data: todos, Total: total}
}

func TestStoreApplyListReplacesView(t *testing.T) {
	s := NewStore()

	s.ApplyList(listResult(3, "a", "b", "c"))
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("ids = %v", got)
	}
	if s.Total() != 3 {
		t.Fatalf("total = %d, want 3", s.Total())
	}

	// A later snapshot fully replaces the view; b was deleted elsewhere.
	s.ApplyList(listResult(2, "c", "a"))
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Fatalf("ids after replace = %v", got)
	}
	if s.Total() != 2 {
		t.Fatalf("total after replace = %d, want 2", s.Total())
	}
}

func TestStoreApplyListDropsDuplicateIDs(t *testing.T) {
	s := NewStore()
	s.ApplyList(listResult(3, "a", "b", "a"))

	if got := s.IDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("ids = %v, want duplicates dropped", got)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
}

func TestStoreItemsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.ApplyList(listResult(1, "a"))

	items := s.Items()
	items[0].ID = "mutated"

	if got := s.IDs()[0]; got != "a" {
		t.Fatalf("store mutated through Items copy: %q", got)
	}
}

func TestPaginatorWindow(t *testing.T) {
	const total = 45
	p := NewPaginator(20)

	if p.LoadedCount() != 20 {
		t.Fatalf("initial window = %d, want 20", p.LoadedCount())
	}
	if !p.HasMore(total) {
		t.Fatal("expected more beyond first page")
	}

	if !p.LoadMore(total) {
		t.Fatal("second page load should grow the window")
	}
	if p.LoadedCount() != 40 || !p.HasMore(total) {
		t.Fatalf("window = %d hasMore = %v, want 40 true", p.LoadedCount(), p.HasMore(total))
	}

	if !p.LoadMore(total) {
		t.Fatal("third page load should grow the window")
	}
	if p.LoadedCount() != 60 || p.HasMore(total) {
		t.Fatalf("window = %d hasMore = %v, want 60 false", p.LoadedCount(), p.HasMore(total))
	}

	// Window already covers the total; further loads are no-ops.
	if p.LoadMore(total) {
		t.Fatal("LoadMore past the total should be a no-op")
	}
	if p.LoadedCount() != 60 {
		t.Fatalf("window = %d, want unchanged 60", p.LoadedCount())
	}
}

func TestPaginatorReset(t *testing.T) {
	p := NewPaginator(10)
	p.LoadMore(100)
	p.LoadMore(100)
	if p.LoadedCount() != 30 {
		t.Fatalf("window = %d, want 30", p.LoadedCount())
	}

	p.Reset()
	if p.LoadedCount() != 10 {
		t.Fatalf("window after reset = %d, want 10", p.LoadedCount())
	}
}

func TestPaginatorDefaultsPageSize(t *testing.T) {
	p := NewPaginator(0)
	if p.LoadedCount() != DefaultPageSize {
		t.Fatalf("window = %d, want %d", p.LoadedCount(), DefaultPageSize)
	}
}
