package canvas

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/metrics"
	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// DragEvent reports the dragged node and its current stage position.
type DragEvent struct {
	NodeID   string
	Position model.Position
}

type cohortMember struct {
	id    string
	start model.Position
}

type dragSession struct {
	anchorID string
	start    model.Position
	cohort   []cohortMember
}

// DragController moves a node, or the whole selection when the dragged node is
// selected, and persists the result with a single store call.
type DragController struct {
	deps Deps

	mu      sync.Mutex
	session *dragSession
	loading bool
}

// NewDragController returns an idle controller.
func NewDragController(deps Deps) *DragController {
	return &DragController{deps: deps.withDefaults()}
}

// Dragging reports whether a drag session is open.
func (c *DragController) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// IsLoading reports whether a drag result is being persisted.
func (c *DragController) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// HandleDragStart opens a session for ev.NodeID. It returns false, leaving the
// controller idle, when the ID is empty or unknown, the node is locked, or a
// previous drag is still being persisted.
func (c *DragController) HandleDragStart(ev DragEvent) bool {
	if ev.NodeID == "" {
		return false
	}
	target, ok := c.deps.Nodes.Get(ev.NodeID)
	if !ok || target.IsLocked {
		return false
	}

	s := &dragSession{anchorID: ev.NodeID, start: ev.Position}
	if c.deps.Selection.IsSelected(ev.NodeID) {
		for _, n := range c.deps.Selection.SelectedNodes() {
			if n.IsLocked {
				continue
			}
			start := n.Position
			if n.ID == ev.NodeID {
				start = ev.Position
			}
			s.cohort = append(s.cohort, cohortMember{id: n.ID, start: start})
		}
	} else {
		s.cohort = []cohortMember{{id: ev.NodeID, start: ev.Position}}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return false
	}
	c.session = s
	return true
}

// Preview returns where every cohort member would land if the drag ended with
// the anchor at pos. Hosts use it to draw the cohort mid-drag.
func (c *DragController) Preview(pos model.Position) map[string]model.Position {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.finalPositions(r2.Sub(pos.Vec(), s.start.Vec()))
}

// Cancel drops the open session without persisting anything.
func (c *DragController) Cancel() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (s *dragSession) finalPositions(delta r2.Vec) map[string]model.Position {
	out := make(map[string]model.Position, len(s.cohort))
	for _, m := range s.cohort {
		out[m.id] = m.start.Add(delta)
	}
	return out
}

func (s *dragSession) startPositions() map[string]model.Position {
	out := make(map[string]model.Position, len(s.cohort))
	for _, m := range s.cohort {
		out[m.id] = m.start
	}
	return out
}

// HandleDragEnd moves every cohort member by the anchor's displacement and
// persists the new positions: one UpdateNode for a single node, one
// UpdateMultipleNodes for a cohort. If the store rejects the write every member
// returns to its start position. It is a no-op without an open session.
func (c *DragController) HandleDragEnd(ctx context.Context, ev DragEvent) error {
	c.mu.Lock()
	s := c.session
	if s == nil || (ev.NodeID != "" && ev.NodeID != s.anchorID) {
		c.mu.Unlock()
		return nil
	}
	c.session = nil
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	// Members removed while the gesture was in progress are dropped.
	live := s.cohort[:0:0]
	for _, m := range s.cohort {
		if c.deps.Nodes.Has(m.id) {
			live = append(live, m)
		}
	}
	s.cohort = live
	if len(s.cohort) == 0 {
		return nil
	}

	delta := r2.Sub(ev.Position.Vec(), s.start.Vec())
	if delta == (r2.Vec{}) {
		return nil
	}
	final := s.finalPositions(delta)

	log := c.deps.Logger.With(zap.String("op", "drag"), zap.String("anchor", s.anchorID), zap.Int("cohort", len(s.cohort)))
	done := metrics.Timer(metrics.DragPersist)
	err := Optimistic(ctx, Change{
		Apply:  func() { c.deps.Nodes.SetPositions(final) },
		Revert: func() { c.deps.Nodes.SetPositions(s.startPositions()) },
	}, func(ctx context.Context) error {
		return c.persist(ctx, s, final)
	})
	done()

	if err != nil {
		metrics.DragRollbacks.Inc()
		log.Error("persist node positions", zap.Strings("ids", s.ids()), zap.Error(err))
		notifyf(c.deps.Notifier, LevelError, "Could not move %s: %v", plural(len(s.cohort), "node"), err)
		return fmt.Errorf("move nodes: %w", err)
	}
	log.Debug("moved nodes", zap.Float64("dx", delta.X), zap.Float64("dy", delta.Y))
	return nil
}

func (c *DragController) persist(ctx context.Context, s *dragSession, final map[string]model.Position) error {
	if len(s.cohort) == 1 {
		id := s.cohort[0].id
		pos := final[id]
		_, err := c.deps.Store.UpdateNode(ctx, id, model.NodeUpdate{Position: &pos})
		return err
	}
	reqs := make([]model.NodeUpdateRequest, 0, len(s.cohort))
	for _, m := range s.cohort {
		pos := final[m.id]
		reqs = append(reqs, model.NodeUpdateRequest{ID: m.id, Data: model.NodeUpdate{Position: &pos}})
	}
	_, err := c.deps.Store.UpdateMultipleNodes(ctx, reqs)
	return err
}

func (s *dragSession) ids() []string {
	ids := make([]string, len(s.cohort))
	for i, m := range s.cohort {
		ids[i] = m.id
	}
	return ids
}
