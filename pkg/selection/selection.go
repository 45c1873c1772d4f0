// Package selection tracks which canvas nodes are selected.
//
// The selection holds node IDs only; it never owns nodes. IDs that are not
// present in the NodeSource are ignored on the way in and dropped by Prune.
package selection

import (
	"sync"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// NodeSource provides the current node list in display order.
type NodeSource interface {
	Nodes() []model.Node
}

// Manager is a set of selected node IDs. It is safe for concurrent use.
type Manager struct {
	src NodeSource

	mu       sync.RWMutex
	selected map[string]struct{}
	// anchor is the last node selected by a plain or toggle click; range
	// selection extends from it.
	anchor string
}

// New returns an empty selection over src.
func New(src NodeSource) *Manager {
	return &Manager{src: src, selected: make(map[string]struct{})}
}

func (m *Manager) known() map[string]struct{} {
	nodes := m.src.Nodes()
	ids := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// IsSelected reports whether id is selected.
func (m *Manager) IsSelected(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.selected[id]
	return ok
}

// Len returns the number of selected IDs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.selected)
}

// SelectNode replaces the selection with {id}, or toggles id when multi is
// set.
func (m *Manager) SelectNode(id string, multi bool) {
	if _, ok := m.known()[id]; !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.anchor = id
	if !multi {
		m.selected = map[string]struct{}{id: {}}
		return
	}
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
		return
	}
	m.selected[id] = struct{}{}
}

// SelectMultiple replaces the selection with exactly ids.
func (m *Manager) SelectMultiple(ids []string) {
	known := m.known()
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			next[id] = struct{}{}
		}
	}
	m.mu.Lock()
	m.selected = next
	m.mu.Unlock()
}

// SelectRange selects every node between the range anchor and id, inclusive,
// in node-list order. Without an anchor it behaves like SelectNode(id, false).
func (m *Manager) SelectRange(id string) {
	m.mu.RLock()
	anchor := m.anchor
	m.mu.RUnlock()

	nodes := m.src.Nodes()
	from, to := -1, -1
	for i, n := range nodes {
		if n.ID == anchor {
			from = i
		}
		if n.ID == id {
			to = i
		}
	}
	if to < 0 {
		return
	}
	if from < 0 {
		m.SelectNode(id, false)
		return
	}
	if from > to {
		from, to = to, from
	}
	ids := make([]string, 0, to-from+1)
	for _, n := range nodes[from : to+1] {
		ids = append(ids, n.ID)
	}
	m.SelectMultiple(ids)
}

// SelectAll selects every known node.
func (m *Manager) SelectAll() {
	nodes := m.src.Nodes()
	next := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		next[n.ID] = struct{}{}
	}
	m.mu.Lock()
	m.selected = next
	m.mu.Unlock()
}

// ClearSelection empties the selection.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.selected = make(map[string]struct{})
	m.anchor = ""
	m.mu.Unlock()
}

// Deselect removes the given IDs.
func (m *Manager) Deselect(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.selected, id)
		if id == m.anchor {
			m.anchor = ""
		}
	}
}

// Prune drops IDs that no longer exist in the node source.
func (m *Manager) Prune() {
	known := m.known()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.selected {
		if _, ok := known[id]; !ok {
			delete(m.selected, id)
		}
	}
	if _, ok := known[m.anchor]; !ok {
		m.anchor = ""
	}
}

// SelectedNodes returns the selected nodes in node-list order. Stale IDs are
// skipped.
func (m *Manager) SelectedNodes() []model.Node {
	nodes := m.src.Nodes()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Node, 0, len(m.selected))
	for _, n := range nodes {
		if _, ok := m.selected[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// SelectedIDs returns the selected IDs in node-list order.
func (m *Manager) SelectedIDs() []string {
	nodes := m.SelectedNodes()
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
