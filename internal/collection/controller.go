package collection

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mcollina/githuman-sub002/internal/client"
	"github.com/mcollina/githuman-sub002/internal/domain"
)

// ErrMutationInFlight is returned when a mutation is attempted while another
// one is still outstanding. At most one mutating todo operation runs at a
// time from this client, so interleaved position writes cannot race each
// other.
var ErrMutationInFlight = errors.New("another todo mutation is in flight")

// Filter selects which todos the view shows. A nil Completed is the
// unfiltered "all" view, the only one that paginates; a nil ReviewID spans
// all review scopes.
type Filter struct {
	ReviewID  *string
	Completed *bool
}

func (f Filter) paginated() bool {
	return f.Completed == nil
}

// View is the read model handed to the presentation layer.
type View struct {
	Items   []domain.Todo
	Total   int64
	Stats   domain.Stats
	HasMore bool
	Err     error
}

// Controller owns the collection read model and funnels every change through
// the same reconciliation path: repository call or push event, then a full
// refetch, then a wholesale replace of the local view.
type Controller struct {
	api    *client.Client
	logger *zap.Logger

	mu       sync.Mutex
	store    *Store
	pager    *Paginator
	drag     DragState
	filter   Filter
	stats    domain.Stats
	lastErr  error
	mutating bool
}

func NewController(api *client.Client, pageSize int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:    api,
		logger: logger,
		store:  NewStore(),
		pager:  NewPaginator(pageSize),
	}
}

// Refresh reconciles the local view with the server: one list call scoped to
// the active filter plus one stats call. A failed fetch leaves the previous
// view intact (stale but valid) and surfaces the error.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	opts := client.ListOptions{
		ReviewID:  c.filter.ReviewID,
		Completed: c.filter.Completed,
	}
	if c.filter.paginated() {
		opts.Limit = c.pager.LoadedCount()
	}
	c.mu.Unlock()

	result, listErr := c.api.List(ctx, opts)
	stats, statsErr := c.api.Stats(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if listErr != nil {
		c.lastErr = listErr
		return listErr
	}
	c.store.ApplyList(result)

	if statsErr != nil {
		c.lastErr = statsErr
		return statsErr
	}
	c.stats = *stats

	c.lastErr = nil
	return nil
}

// SetFilter switches the active view. Pagination never carries over from a
// previous filter or review scope, so the window resets before the fetch.
func (c *Controller) SetFilter(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	c.filter = filter
	c.pager.Reset()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// LoadMore widens the unfiltered view by one page and refetches. It is a
// no-op on filtered views and when everything is already materialized.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	grown := c.filter.paginated() && c.pager.LoadMore(c.store.Total())
	c.mu.Unlock()

	if !grown {
		return nil
	}
	return c.Refresh(ctx)
}

// HandleEvent treats any push event as a cache-invalidation signal: one full
// list fetch and one stats fetch, never a partial merge. Wiring it as the
// listener handler keeps the local view consistent with concurrent editors.
func (c *Controller) HandleEvent(ctx context.Context, event client.Event) {
	c.logger.Debug("resyncing on event", zap.String("type", event.Type))
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("resync failed", zap.String("type", event.Type), zap.Error(err))
	}
}

// Create adds a todo and reconciles.
func (c *Controller) Create(ctx context.Context, content string, reviewID *string) error {
	return c.mutate(ctx, func(ctx context.Context) error {
		_, err := c.api.Create(ctx, content, reviewID)
		return err
	})
}

// UpdateContent rewrites a todo's text and reconciles.
func (c *Controller) UpdateContent(ctx context.Context, id, content string) error {
	return c.mutate(ctx, func(ctx context.Context) error {
		_, err := c.api.Update(ctx, id, client.UpdateFields{Content: &content})
		return err
	})
}

// Toggle flips completion and reconciles.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	return c.mutate(ctx, func(ctx context.Context) error {
		_, err := c.api.Toggle(ctx, id)
		return err
	})
}

// Delete removes a todo and reconciles.
func (c *Controller) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, func(ctx context.Context) error {
		return c.api.Delete(ctx, id)
	})
}

// ClearCompleted removes all completed todos and reconciles.
func (c *Controller) ClearCompleted(ctx context.Context) error {
	return c.mutate(ctx, func(ctx context.Context) error {
		_, err := c.api.ClearCompleted(ctx)
		return err
	})
}

// DragStart begins a pointer or touch gesture for the given item.
func (c *Controller) DragStart(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.Begin(id)
}

// DragEnter records the item currently hovered as the insertion anchor.
func (c *Controller) DragEnter(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.Over(id)
}

// DragCancel abandons the gesture without submitting anything.
func (c *Controller) DragCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.Clear()
}

// Drop completes a pointer gesture onto targetID. No-op drops (self-drop,
// unknown ids, fewer than two items) make no network call. A real drop
// submits the full computed ordering and then refetches: the locally
// computed order is never trusted as final because server positions are
// authoritative and other clients mutate concurrently.
func (c *Controller) Drop(ctx context.Context, targetID string) error {
	c.mu.Lock()
	draggedID := c.drag.DraggingID
	c.drag.Clear()
	ordered, ok := PlanReorder(c.store.IDs(), draggedID, targetID)
	c.mu.Unlock()

	if !ok {
		return nil
	}

	return c.mutate(ctx, func(ctx context.Context) error {
		_, err := c.api.Reorder(ctx, ordered)
		return err
	})
}

// TouchMove updates the insertion anchor from the current touch coordinate
// against the rendered item boxes. No hit clears the anchor.
func (c *Controller) TouchMove(y float64, boxes []ItemBox) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.drag.Active() {
		return
	}
	if id, ok := HitTest(y, boxes, c.drag.DraggingID); ok {
		c.drag.Over(id)
	} else {
		c.drag.DragOverID = ""
	}
}

// TouchEnd completes a touch gesture using the last anchor recorded by
// TouchMove.
func (c *Controller) TouchEnd(ctx context.Context) error {
	c.mu.Lock()
	targetID := c.drag.DragOverID
	c.mu.Unlock()

	if targetID == "" {
		c.DragCancel()
		return nil
	}
	return c.Drop(ctx, targetID)
}

// Dragging exposes the gesture state for rendering (e.g. highlighting the
// drop anchor).
func (c *Controller) Dragging() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag
}

// Snapshot returns the current read model.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		Items:   c.store.Items(),
		Total:   c.store.Total(),
		Stats:   c.stats,
		HasMore: c.filter.paginated() && c.pager.HasMore(c.store.Total()),
		Err:     c.lastErr,
	}
}

// mutate runs one mutating repository call under the single-in-flight guard
// and reconciles afterwards. The guard is cooperative: the server is still
// the final arbiter against other writers.
func (c *Controller) mutate(ctx context.Context, op func(context.Context) error) error {
	c.mu.Lock()
	if c.mutating {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	c.mutating = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.mutating = false
		c.mu.Unlock()
	}()

	if err := op(ctx); err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	return c.Refresh(ctx)
}
