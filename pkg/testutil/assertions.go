package testutil

import (
	"testing"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, nodes []model.Node, expected int) {
	t.Helper()
	if len(nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(nodes))
	}
}

// AssertNoDuplicateIDs verifies all node IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, nodes []model.Node) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
}

// AssertPosition verifies that node id sits at want.
func AssertPosition(t *testing.T, nodes []model.Node, id string, want model.Position) {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			if n.Position != want {
				t.Errorf("node %s at %+v, want %+v", id, n.Position, want)
			}
			return
		}
	}
	t.Errorf("node %s not found", id)
}

// AssertAbsent verifies that none of ids is in nodes.
func AssertAbsent(t *testing.T, nodes []model.Node, ids ...string) {
	t.Helper()
	for _, n := range nodes {
		for _, id := range ids {
			if n.ID == id {
				t.Errorf("node %s still present", id)
			}
		}
	}
}

// FindNode returns the node with id.
func FindNode(nodes []model.Node, id string) (model.Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Node{}, false
}
