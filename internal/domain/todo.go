package domain

import (
	"time"

	"github.com/google/uuid"
)

const maxContentLength = 500

// Todo is one actionable review item. Position defines the total order used
// for rendering and drag-reordering; it is only reassigned through Reorder
// and Move.
type Todo struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
	ReviewID  *string   `json:"reviewId"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTodo creates a new todo with validation. A nil reviewID means the todo
// is global rather than scoped to one review.
func NewTodo(content string, reviewID *string) (*Todo, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Todo{
		ID:        uuid.New().String(),
		Content:   content,
		ReviewID:  reviewID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateContent replaces the content with validation.
func (t *Todo) UpdateContent(content string) error {
	if err := validateContent(content); err != nil {
		return err
	}
	t.Content = content
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCompleted sets the completion flag.
func (t *Todo) SetCompleted(completed bool) {
	t.Completed = completed
	t.UpdatedAt = time.Now().UTC()
}

func validateContent(content string) error {
	if content == "" {
		return ErrEmptyContent
	}
	if len(content) > maxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// Stats are aggregate counts independent of any list filter.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

// ListFilter selects and paginates todos. Limit 0 means no pagination: the
// complete filtered set is returned. Results are always ordered by position
// ascending.
type ListFilter struct {
	ReviewID  *string
	Completed *bool
	Limit     int
	Offset    int
}

// Normalize clamps nonsensical pagination values.
func (f *ListFilter) Normalize() {
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
