package collection

import (
	"reflect"
	"testing"
)

func TestPlanReorder(t *testing.T) {
	ids := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		ids     []string
		dragged string
		target  string
		want    []string
		wantOK  bool
	}{
		{
			// Dragging the first item onto the last shifts everything up.
			name: "drag a onto c", ids: ids, dragged: "a", target: "c",
			want: []string{"b", "c", "a"}, wantOK: true,
		},
		{
			name: "drag c onto a", ids: ids, dragged: "c", target: "a",
			want: []string{"c", "a", "b"}, wantOK: true,
		},
		{
			name: "drag b onto a", ids: ids, dragged: "b", target: "a",
			want: []string{"b", "a", "c"}, wantOK: true,
		},
		{name: "drop onto itself", ids: ids, dragged: "b", target: "b"},
		{name: "dragged id unknown", ids: ids, dragged: "x", target: "b"},
		{name: "target id unknown", ids: ids, dragged: "a", target: "x"},
		{name: "single item", ids: []string{"a"}, dragged: "a", target: "a"},
		{name: "empty list", ids: nil, dragged: "a", target: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PlanReorder(tt.ids, tt.dragged, tt.target)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				if got != nil {
					t.Fatalf("no-op must not produce an ordering, got %v", got)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanReorderDoesNotMutateInput(t *testing.T) {
	ids := []string{"a", "b", "c"}
	if _, ok := PlanReorder(ids, "a", "c"); !ok {
		t.Fatal("expected a plan")
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Fatalf("input mutated: %v", ids)
	}
}

func TestDragState(t *testing.T) {
	var drag DragState

	drag.Begin("a")
	if !drag.Active() {
		t.Fatal("gesture should be active")
	}

	drag.Over("b")
	if drag.DragOverID != "b" {
		t.Fatalf("drag-over = %q, want b", drag.DragOverID)
	}

	// An item is never its own drag-over target.
	drag.Over("a")
	if drag.DragOverID != "" {
		t.Fatalf("hovering the dragged item must clear the anchor, got %q", drag.DragOverID)
	}

	drag.Clear()
	if drag.Active() || drag.DragOverID != "" {
		t.Fatalf("clear left state behind: %+v", drag)
	}
}

func TestHitTest(t *testing.T) {
	boxes := []ItemBox{
		{ID: "a", Top: 0, Bottom: 40},
		{ID: "b", Top: 40, Bottom: 80},
		{ID: "c", Top: 80, Bottom: 120},
	}

	tests := []struct {
		name    string
		y       float64
		dragged string
		want    string
		wantOK  bool
	}{
		{name: "inside first box", y: 10, dragged: "c", want: "a", wantOK: true},
		{name: "inside middle box", y: 60, dragged: "a", want: "b", wantOK: true},
		// y=10 only falls inside a's box; with a dragged there is no hit.
		{name: "skips the dragged item", y: 10, dragged: "a"},
		{name: "below all boxes", y: 500, dragged: "a"},
		{name: "above all boxes", y: -1, dragged: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HitTest(tt.y, boxes, tt.dragged)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Fatalf("HitTest(%v) = %q, %v; want %q, %v", tt.y, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHitTestBoundary(t *testing.T) {
	boxes := []ItemBox{{ID: "a", Top: 0, Bottom: 40}, {ID: "b", Top: 40, Bottom: 80}}

	// A coordinate on a shared edge resolves to the first containing box.
	got, ok := HitTest(40, boxes, "")
	if !ok || got != "a" {
		t.Fatalf("HitTest(40) = %q, %v; want a, true", got, ok)
	}
}
