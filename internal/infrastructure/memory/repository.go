// Package memory provides an in-memory Repository with the same semantics as
// the postgres implementation. It backs tests and single-process deployments
// that do not need durable storage.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcollina/githuman-sub002/internal/domain"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	todos map[string]*domain.Todo
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		todos: make(map[string]*domain.Todo),
	}
}

func (r *MemoryRepository) Create(_ context.Context, todo *domain.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := 0
	for _, existing := range r.todos {
		if existing.Position >= next {
			next = existing.Position + 1
		}
	}

	stored := *todo
	stored.Position = next
	r.todos[stored.ID] = &stored
	todo.Position = next
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todo, ok := r.todos[id]
	if !ok {
		return nil, domain.ErrTodoNotFound
	}
	copied := *todo
	return &copied, nil
}

func (r *MemoryRepository) Update(_ context.Context, todo *domain.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.todos[todo.ID]
	if !ok {
		return domain.ErrTodoNotFound
	}
	existing.Content = todo.Content
	existing.Completed = todo.Completed
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) Toggle(_ context.Context, id string) (*domain.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	todo, ok := r.todos[id]
	if !ok {
		return nil, domain.ErrTodoNotFound
	}
	todo.Completed = !todo.Completed
	todo.UpdatedAt = time.Now().UTC()
	copied := *todo
	return &copied, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return domain.ErrTodoNotFound
	}
	delete(r.todos, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, filter *domain.ListFilter) ([]*domain.Todo, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		if filter.ReviewID != nil {
			if todo.ReviewID == nil || *todo.ReviewID != *filter.ReviewID {
				continue
			}
		}
		if filter.Completed != nil && todo.Completed != *filter.Completed {
			continue
		}
		matched = append(matched, todo)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Position < matched[j].Position
	})

	total := int64(len(matched))

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	result := make([]*domain.Todo, len(matched))
	for i, todo := range matched {
		copied := *todo
		result[i] = &copied
	}

	return result, total, nil
}

func (r *MemoryRepository) Stats(_ context.Context) (*domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.Stats{}
	for _, todo := range r.todos {
		stats.Total++
		if todo.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}

func (r *MemoryRepository) ClearCompleted(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, todo := range r.todos {
		if todo.Completed {
			delete(r.todos, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryRepository) Reorder(_ context.Context, orderedIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range orderedIDs {
		if _, ok := r.todos[id]; !ok {
			return 0, domain.ErrUnknownTodoID
		}
	}

	for i, id := range orderedIDs {
		r.todos[id].Position = i
	}
	return int64(len(orderedIDs)), nil
}

func (r *MemoryRepository) Move(_ context.Context, id string, position int) (*domain.Todo, error) {
	if position < 0 {
		return nil, domain.ErrInvalidPosition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	todo, ok := r.todos[id]
	if !ok {
		return nil, domain.ErrTodoNotFound
	}

	ids := make([]string, 0, len(r.todos))
	for other := range r.todos {
		ids = append(ids, other)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.todos[ids[i]].Position < r.todos[ids[j]].Position
	})

	remaining := make([]string, 0, len(ids))
	for _, other := range ids {
		if other != id {
			remaining = append(remaining, other)
		}
	}
	if position > len(remaining) {
		position = len(remaining)
	}

	ordered := make([]string, 0, len(ids))
	ordered = append(ordered, remaining[:position]...)
	ordered = append(ordered, id)
	ordered = append(ordered, remaining[position:]...)

	for i, other := range ordered {
		r.todos[other].Position = i
	}
	todo.UpdatedAt = time.Now().UTC()

	copied := *todo
	return &copied, nil
}
