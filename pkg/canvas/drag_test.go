package canvas_test

import (
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/canvas"
	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/testutil"
)

func vec(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }

func pos(x, y float64) model.Position { return model.Position{X: x, Y: y} }

func TestDragSingleNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if !f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n2", Position: pos(420, 0)}) {
		t.Fatal("drag did not start")
	}
	if !f.c.Drag.Dragging() {
		t.Fatal("no session after start")
	}
	if err := f.c.Drag.HandleDragEnd(ctx, canvas.DragEvent{NodeID: "n2", Position: pos(400, 30)}); err != nil {
		t.Fatalf("HandleDragEnd: %v", err)
	}

	nodes := f.c.Nodes.Nodes()
	testutil.AssertPosition(t, nodes, "n2", pos(400, 30))
	testutil.AssertPosition(t, nodes, "n0", pos(0, 0))
	if f.store.Calls(testutil.OpUpdate) != 1 || f.store.Calls(testutil.OpUpdateMany) != 0 {
		t.Errorf("calls: update=%d batch=%d", f.store.Calls(testutil.OpUpdate), f.store.Calls(testutil.OpUpdateMany))
	}
	if f.c.Drag.Dragging() || f.c.Drag.IsLoading() {
		t.Error("session outlived the gesture")
	}
}

func TestDragSelectedNodeMovesCohortInOneCall(t *testing.T) {
	f := newFixture(t)
	f.c.Selection.SelectNode("n0", false)
	f.c.Selection.SelectNode("n1", true)

	f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n0", Position: pos(0, 0)})
	preview := f.c.Drag.Preview(pos(30, 40))
	if preview["n1"] != pos(240, 40) || len(preview) != 2 {
		t.Errorf("preview = %v", preview)
	}
	if err := f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n0", Position: pos(30, 40)}); err != nil {
		t.Fatalf("HandleDragEnd: %v", err)
	}

	nodes := f.c.Nodes.Nodes()
	testutil.AssertPosition(t, nodes, "n0", pos(30, 40))
	testutil.AssertPosition(t, nodes, "n1", pos(240, 40))
	testutil.AssertPosition(t, nodes, "n2", pos(420, 0))

	if f.store.Calls(testutil.OpUpdateMany) != 1 || f.store.Calls(testutil.OpUpdate) != 0 {
		t.Errorf("calls: update=%d batch=%d", f.store.Calls(testutil.OpUpdate), f.store.Calls(testutil.OpUpdateMany))
	}
	if stored, _ := f.store.Get("n1"); stored.Position != pos(240, 40) {
		t.Errorf("stored n1 at %+v", stored.Position)
	}
}

func TestDragUnselectedNodeIgnoresSelection(t *testing.T) {
	f := newFixture(t)
	f.c.Selection.SelectMultiple([]string{"n0", "n1"})

	f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n2", Position: pos(420, 0)})
	if err := f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n2", Position: pos(430, 10)}); err != nil {
		t.Fatal(err)
	}
	nodes := f.c.Nodes.Nodes()
	testutil.AssertPosition(t, nodes, "n0", pos(0, 0))
	testutil.AssertPosition(t, nodes, "n1", pos(210, 0))
	testutil.AssertPosition(t, nodes, "n2", pos(430, 10))
}

func TestDragCohortRollsBackEveryMember(t *testing.T) {
	f := newFixture(t)
	f.store.Fail(testutil.OpUpdateMany, errBoom)
	f.c.Selection.SelectMultiple([]string{"n0", "n1"})

	f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n1", Position: pos(210, 0)})
	err := f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n1", Position: pos(300, 100)})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want %v", err, errBoom)
	}

	nodes := f.c.Nodes.Nodes()
	testutil.AssertPosition(t, nodes, "n0", pos(0, 0))
	testutil.AssertPosition(t, nodes, "n1", pos(210, 0))
	if f.errorLogs() != 1 {
		t.Errorf("error logs = %d, want 1", f.errorLogs())
	}
	if n := f.lastNotification(t); n.Level != canvas.LevelError {
		t.Errorf("notification = %+v", n)
	}
	if f.c.Drag.IsLoading() || f.c.Drag.Dragging() {
		t.Error("controller not idle after failure")
	}
}

func TestDragStartRejects(t *testing.T) {
	f := newFixture(t)
	locked := true
	if _, err := f.store.UpdateNode(context.Background(), "n1", model.NodeUpdate{IsLocked: &locked}); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   string
	}{
		{"no id", ""},
		{"unknown", "ghost"},
		{"locked", "n1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: tt.id}) {
				t.Error("drag started")
			}
			if f.c.Drag.Dragging() {
				t.Error("session opened")
			}
		})
	}
}

func TestLockedNodesStayOutOfCohort(t *testing.T) {
	f := newFixture(t)
	locked := true
	f.store.UpdateNode(context.Background(), "n1", model.NodeUpdate{IsLocked: &locked})
	f.c.Load(context.Background())
	f.c.Selection.SelectMultiple([]string{"n0", "n1"})

	f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n0", Position: pos(0, 0)})
	f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n0", Position: pos(5, 5)})

	nodes := f.c.Nodes.Nodes()
	testutil.AssertPosition(t, nodes, "n0", pos(5, 5))
	testutil.AssertPosition(t, nodes, "n1", pos(210, 0))
	if f.store.Calls(testutil.OpUpdate) != 1 {
		t.Errorf("single-member cohort should use UpdateNode")
	}
}

func TestDragEndWithoutSessionIsNoop(t *testing.T) {
	f := newFixture(t)
	if err := f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n0", Position: pos(9, 9)}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertPosition(t, f.c.Nodes.Nodes(), "n0", pos(0, 0))
	if f.store.Calls(testutil.OpUpdate)+f.store.Calls(testutil.OpUpdateMany) != 0 {
		t.Error("store called without a drag")
	}
}

func TestDragWithoutMovementSkipsStore(t *testing.T) {
	f := newFixture(t)
	f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n0", Position: pos(0, 0)})
	if err := f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n0", Position: pos(0, 0)}); err != nil {
		t.Fatal(err)
	}
	if f.store.Calls(testutil.OpUpdate) != 0 {
		t.Error("a click wrote a position")
	}
}

func TestDragDropsMembersRemovedMidGesture(t *testing.T) {
	f := newFixture(t)
	f.c.Selection.SelectMultiple([]string{"n0", "n1", "n2"})
	f.c.Drag.HandleDragStart(canvas.DragEvent{NodeID: "n0", Position: pos(0, 0)})

	f.c.Nodes.Remove("n2")
	if err := f.c.Drag.HandleDragEnd(context.Background(), canvas.DragEvent{NodeID: "n0", Position: pos(1, 1)}); err != nil {
		t.Fatalf("HandleDragEnd: %v", err)
	}
	if f.store.Calls(testutil.OpUpdateMany) != 1 {
		t.Fatal("expected one batched update")
	}
	if stored, _ := f.store.Get("n2"); stored.Position != pos(420, 0) {
		t.Errorf("removed member was written: %+v", stored.Position)
	}
}
