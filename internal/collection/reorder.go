package collection

// DragState is the explicit state of one in-progress reorder gesture. It is
// owned by the Controller and passed to the pure planning functions, so the
// gesture logic is testable without a rendering surface.
type DragState struct {
	DraggingID string
	DragOverID string
}

// Begin starts a gesture for the given item.
func (d *DragState) Begin(id string) {
	d.DraggingID = id
	d.DragOverID = ""
}

// Over records the current insertion anchor. An item is never its own
// drag-over target; hovering the dragged item clears the anchor.
func (d *DragState) Over(id string) {
	if id == d.DraggingID {
		d.DragOverID = ""
		return
	}
	d.DragOverID = id
}

// Clear abandons the gesture.
func (d *DragState) Clear() {
	d.DraggingID = ""
	d.DragOverID = ""
}

// Active reports whether a gesture is in progress.
func (d DragState) Active() bool {
	return d.DraggingID != ""
}

// PlanReorder computes the full ordering that results from dropping
// draggedID onto targetID: the dragged id is removed and reinserted at the
// target's index in the original sequence. Removal happens first, so dragging
// downward lands the item immediately after the target and dragging upward
// lands it immediately before. It returns false (no submission, no change)
// when the drop is a no-op: fewer than two known items, dragged equals
// target, or either id unknown.
func PlanReorder(ids []string, draggedID, targetID string) ([]string, bool) {
	if len(ids) < 2 || draggedID == targetID {
		return nil, false
	}

	draggedIndex := indexOf(ids, draggedID)
	targetIndex := indexOf(ids, targetID)
	if draggedIndex < 0 || targetIndex < 0 {
		return nil, false
	}

	remaining := make([]string, 0, len(ids)-1)
	remaining = append(remaining, ids[:draggedIndex]...)
	remaining = append(remaining, ids[draggedIndex+1:]...)

	ordered := make([]string, 0, len(ids))
	ordered = append(ordered, remaining[:targetIndex]...)
	ordered = append(ordered, draggedID)
	ordered = append(ordered, remaining[targetIndex:]...)
	return ordered, true
}

// ItemBox is the vertical extent of one rendered item, keyed by todo id.
type ItemBox struct {
	ID     string
	Top    float64
	Bottom float64
}

// HitTest resolves a touch coordinate to a drag-over target: the first box
// whose vertical extent contains y and which is not the dragged item itself.
// No match means the anchor should be cleared.
func HitTest(y float64, boxes []ItemBox, draggedID string) (string, bool) {
	for _, box := range boxes {
		if box.ID == draggedID {
			continue
		}
		if y >= box.Top && y <= box.Bottom {
			return box.ID, true
		}
	}
	return "", false
}

func indexOf(ids []string, id string) int {
	for i, current := range ids {
		if current == id {
			return i
		}
	}
	return -1
}
