package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

func TestGrid(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name  string
		n     int
		cols  int
		lastX float64
		lastY float64
	}{
		{"single", 1, 3, 0, 0},
		{"one_row", 3, 3, 2 * (model.DefaultNodeSize.Width + 10), 0},
		{"wraps", 4, 3, 0, model.DefaultNodeSize.Height + 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := gen.Grid(tt.n, tt.cols, 10)
			AssertNodeCount(t, nodes, tt.n)
			AssertNoDuplicateIDs(t, nodes)
			last := nodes[len(nodes)-1]
			if last.Position.X != tt.lastX || last.Position.Y != tt.lastY {
				t.Errorf("last node at %+v, want (%v,%v)", last.Position, tt.lastX, tt.lastY)
			}
		})
	}
}

func TestScatterDeterministic(t *testing.T) {
	a := NewDefault().Scatter(5, 1000)
	b := NewDefault().Scatter(5, 1000)
	for i := range a {
		if a[i].Position != b[i].Position {
			t.Fatalf("node %d differs: %+v vs %+v", i, a[i].Position, b[i].Position)
		}
	}
}

func TestNodeStoreFailCall(t *testing.T) {
	s := NewNodeStore()
	boom := errors.New("boom")
	s.FailCall(OpCreate, 2, boom)
	ctx := context.Background()

	if _, err := s.CreateNode(ctx, "s", model.NodeData{FileName: "a"}, model.Position{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateNode(ctx, "s", model.NodeData{FileName: "b"}, model.Position{}); !errors.Is(err, boom) {
		t.Fatalf("second create err = %v", err)
	}
	if s.Calls(OpCreate) != 2 || s.Len() != 1 {
		t.Errorf("calls=%d len=%d", s.Calls(OpCreate), s.Len())
	}
}
