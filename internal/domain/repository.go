package domain

import "context"

// Repository defines the contract for todo persistence. Implementations
// assign positions: Create appends at the end of the global order, Reorder
// and Move reassign positions atomically.
type Repository interface {
	// Create persists a new todo at the end of the order
	Create(ctx context.Context, todo *Todo) error

	// GetByID retrieves a todo by ID
	GetByID(ctx context.Context, id string) (*Todo, error)

	// Update persists content/completed changes of an existing todo
	Update(ctx context.Context, todo *Todo) error

	// Toggle flips the completed flag and returns the updated todo
	Toggle(ctx context.Context, id string) (*Todo, error)

	// Delete removes a todo
	Delete(ctx context.Context, id string) error

	// List retrieves todos matching the filter, ordered by position
	// ascending, plus the total count matching the filter regardless of
	// pagination
	List(ctx context.Context, filter *ListFilter) ([]*Todo, int64, error)

	// Stats returns aggregate counts over all todos
	Stats(ctx context.Context) (*Stats, error)

	// ClearCompleted deletes all completed todos and returns how many
	// were removed; either all are removed or none
	ClearCompleted(ctx context.Context) (int64, error)

	// Reorder reassigns positions so that sorting by position yields
	// exactly orderedIDs. Fails with ErrUnknownTodoID without applying
	// anything if an id does not exist. Returns the number of todos
	// updated.
	Reorder(ctx context.Context, orderedIDs []string) (int64, error)

	// Move repositions a single todo to the given index in the global
	// order and returns it
	Move(ctx context.Context, id string, position int) (*Todo, error)
}
