package canvas

import (
	"sync"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// NodeList is the local cache of the session's nodes, in paint order
// (lowest z first). The remote store owns the nodes; this copy is advanced
// optimistically and reconciled after remote calls.
type NodeList struct {
	mu    sync.RWMutex
	nodes []model.Node
}

// NewNodeList returns a list seeded with nodes.
func NewNodeList(nodes ...model.Node) *NodeList {
	return &NodeList{nodes: append([]model.Node(nil), nodes...)}
}

// Nodes returns a copy of the list.
func (l *NodeList) Nodes() []model.Node {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Node(nil), l.nodes...)
}

// Len returns the number of nodes.
func (l *NodeList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.nodes)
}

func (l *NodeList) index(id string) int {
	for i := range l.nodes {
		if l.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the node with id.
func (l *NodeList) Get(id string) (model.Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.index(id); i >= 0 {
		return l.nodes[i], true
	}
	return model.Node{}, false
}

// Has reports whether id is in the list.
func (l *NodeList) Has(id string) bool {
	_, ok := l.Get(id)
	return ok
}

// Add appends n, or replaces the node with the same ID.
func (l *NodeList) Add(n model.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(n.ID); i >= 0 {
		l.nodes[i] = n
		return
	}
	l.nodes = append(l.nodes, n)
}

// Replace overwrites nodes that are already present with the given copies.
// Unknown IDs are ignored.
func (l *NodeList) Replace(nodes ...model.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range nodes {
		if i := l.index(n.ID); i >= 0 {
			l.nodes[i] = n
		}
	}
}

// SetPositions moves each listed node. Unknown IDs are ignored.
func (l *NodeList) SetPositions(pos map[string]model.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.nodes {
		if p, ok := pos[l.nodes[i].ID]; ok {
			l.nodes[i].Position = p
		}
	}
}

// SetLocked sets the lock flag on each listed node.
func (l *NodeList) SetLocked(locked map[string]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.nodes {
		if v, ok := locked[l.nodes[i].ID]; ok {
			l.nodes[i].IsLocked = v
		}
	}
}

// Remove deletes the listed nodes and returns how many were present.
func (l *NodeList) Remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.nodes[:0]
	removed := 0
	for _, n := range l.nodes {
		if _, ok := drop[n.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	clear(l.nodes[len(kept):])
	l.nodes = kept
	return removed
}

// Reconcile replaces the whole list with the store's view.
func (l *NodeList) Reconcile(nodes []model.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = append([]model.Node(nil), nodes...)
}

// HitTest returns the topmost node containing the stage point p.
func (l *NodeList) HitTest(p model.Position) (model.Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.nodes) - 1; i >= 0; i-- {
		if l.nodes[i].Contains(p) {
			return l.nodes[i], true
		}
	}
	return model.Node{}, false
}

// Filter returns the subset of ids present in the list, in the given order.
func (l *NodeList) Filter(ids []string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if l.index(id) >= 0 {
			out = append(out, id)
		}
	}
	return out
}
