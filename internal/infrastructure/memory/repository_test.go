package memory

import (
	"context"
	"testing"

	"github.com/mcollina/githuman-sub002/internal/domain"
)

func seedTodos(t *testing.T, repo *MemoryRepository, contents ...string) []*domain.Todo {
	t.Helper()
	ctx := context.Background()

	todos := make([]*domain.Todo, 0, len(contents))
	for _, content := range contents {
		todo, err := domain.NewTodo(content, nil)
		if err != nil {
			t.Fatalf("new todo: %v", err)
		}
		if err := repo.Create(ctx, todo); err != nil {
			t.Fatalf("create todo: %v", err)
		}
		todos = append(todos, todo)
	}
	return todos
}

func listIDs(t *testing.T, repo *MemoryRepository, filter *domain.ListFilter) []string {
	t.Helper()
	todos, _, err := repo.List(context.Background(), filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]string, len(todos))
	for i, todo := range todos {
		ids[i] = todo.ID
	}
	return ids
}

func TestCreateAssignsSequentialPositions(t *testing.T) {
	repo := NewMemoryRepository()
	todos := seedTodos(t, repo, "a", "b", "c")

	for i, todo := range todos {
		if todo.Position != i {
			t.Fatalf("todo %d position = %d, want %d", i, todo.Position, i)
		}
	}
}

func TestListOrderingAndPagination(t *testing.T) {
	repo := NewMemoryRepository()
	todos := seedTodos(t, repo, "a", "b", "c", "d", "e")

	got, total, err := repo.List(context.Background(), &domain.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(got) != 2 || got[0].ID != todos[1].ID || got[1].ID != todos[2].ID {
		t.Fatalf("unexpected page: %#v", got)
	}
}

func TestListFilters(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	review := "review-1"
	scoped, err := domain.NewTodo("scoped", &review)
	if err != nil {
		t.Fatalf("new todo: %v", err)
	}
	if err := repo.Create(ctx, scoped); err != nil {
		t.Fatalf("create: %v", err)
	}
	global := seedTodos(t, repo, "global")[0]

	if _, err := repo.Toggle(ctx, global.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	ids := listIDs(t, repo, &domain.ListFilter{ReviewID: &review})
	if len(ids) != 1 || ids[0] != scoped.ID {
		t.Fatalf("review filter returned %v", ids)
	}

	completed := true
	ids = listIDs(t, repo, &domain.ListFilter{Completed: &completed})
	if len(ids) != 1 || ids[0] != global.ID {
		t.Fatalf("completed filter returned %v", ids)
	}
}

func TestReorderRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	todos := seedTodos(t, repo, "a", "b", "c")
	a, b, c := todos[0].ID, todos[1].ID, todos[2].ID

	// Dragging A onto C yields B, C, A.
	updated, err := repo.Reorder(context.Background(), []string{b, c, a})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if updated != 3 {
		t.Fatalf("updated = %d, want 3", updated)
	}

	ids := listIDs(t, repo, &domain.ListFilter{})
	want := []string{b, c, a}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order after reorder = %v, want %v", ids, want)
		}
	}
}

func TestReorderUnknownIDAppliesNothing(t *testing.T) {
	repo := NewMemoryRepository()
	todos := seedTodos(t, repo, "a", "b")
	a, b := todos[0].ID, todos[1].ID

	before := listIDs(t, repo, &domain.ListFilter{})

	_, err := repo.Reorder(context.Background(), []string{b, "missing", a})
	if err != domain.ErrUnknownTodoID {
		t.Fatalf("expected ErrUnknownTodoID, got %v", err)
	}

	after := listIDs(t, repo, &domain.ListFilter{})
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("failed reorder must not change order: %v != %v", after, before)
		}
	}
}

func TestClearCompletedAndStats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	todos := seedTodos(t, repo, "a", "b", "c", "d", "e")

	for _, todo := range todos[:2] {
		if _, err := repo.Toggle(ctx, todo.ID); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	deleted, err := repo.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	completed := true
	ids := listIDs(t, repo, &domain.ListFilter{Completed: &completed})
	if len(ids) != 0 {
		t.Fatalf("completed todos should be gone, got %v", ids)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 0 || stats.Pending != 3 {
		t.Fatalf("stats = %+v, want total 3, completed 0, pending 3", stats)
	}
}

func TestMove(t *testing.T) {
	repo := NewMemoryRepository()
	todos := seedTodos(t, repo, "a", "b", "c")
	a, b, c := todos[0].ID, todos[1].ID, todos[2].ID

	moved, err := repo.Move(context.Background(), c, 0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Position != 0 {
		t.Fatalf("moved position = %d, want 0", moved.Position)
	}

	ids := listIDs(t, repo, &domain.ListFilter{})
	want := []string{c, a, b}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order after move = %v, want %v", ids, want)
		}
	}

	// Positions past the end clamp to the last slot.
	if _, err := repo.Move(context.Background(), c, 99); err != nil {
		t.Fatalf("move: %v", err)
	}
	ids = listIDs(t, repo, &domain.ListFilter{})
	if ids[len(ids)-1] != c {
		t.Fatalf("expected %s at the end, got %v", c, ids)
	}

	if _, err := repo.Move(context.Background(), "missing", 0); err != domain.ErrTodoNotFound {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
	if _, err := repo.Move(context.Background(), c, -1); err != domain.ErrInvalidPosition {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestCRUD(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	todo := seedTodos(t, repo, "original")[0]

	got, err := repo.GetByID(ctx, todo.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "original" {
		t.Fatalf("content = %q", got.Content)
	}

	got.Content = "patched"
	got.Completed = true
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = repo.GetByID(ctx, todo.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "patched" || !got.Completed {
		t.Fatalf("update not applied: %#v", got)
	}

	if err := repo.Delete(ctx, todo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, todo.ID); err != domain.ErrTodoNotFound {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, todo.ID); err != domain.ErrTodoNotFound {
		t.Fatalf("expected ErrTodoNotFound on double delete, got %v", err)
	}
}
