package canvas

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/metrics"
	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/selection"
	"github.com/vanderheijden86/filecanvas/pkg/store"
	"github.com/vanderheijden86/filecanvas/pkg/viewport"
)

// Config configures a Canvas.
type Config struct {
	SessionID string
	Upload    UploadConfig
	// Width and Height are the initial viewport size in screen pixels.
	Width, Height float64
}

// Canvas wires the viewport, node cache, selection and controllers of one
// session together.
type Canvas struct {
	Viewport  *viewport.Viewport
	Nodes     *NodeList
	Selection *selection.Manager
	Drag      *DragController
	Delete    *DeletionController
	Upload    *UploadController

	sessionID string
	deps      Deps
}

// New builds a canvas for cfg.SessionID. blobs may be nil when the canvas is
// only viewed.
func New(cfg Config, st store.NodeService, blobs *blob.Service, n Notifier, log *zap.Logger) *Canvas {
	nodes := NewNodeList()
	deps := Deps{
		Nodes:     nodes,
		Selection: selection.New(nodes),
		Store:     st,
		Blobs:     blobs,
		Notifier:  n,
		Logger:    log,
	}.withDefaults()
	if cfg.Upload.SessionID == "" {
		cfg.Upload.SessionID = cfg.SessionID
	}
	return &Canvas{
		Viewport:  viewport.New(cfg.Width, cfg.Height),
		Nodes:     nodes,
		Selection: deps.Selection,
		Drag:      NewDragController(deps),
		Delete:    NewDeletionController(deps),
		Upload:    NewUploadController(deps, cfg.Upload),
		sessionID: cfg.SessionID,
		deps:      deps,
	}
}

// SessionID returns the session this canvas shows.
func (c *Canvas) SessionID() string { return c.sessionID }

// Load replaces the node cache with the store's nodes for the session.
func (c *Canvas) Load(ctx context.Context) error {
	defer metrics.Timer(metrics.NodeReload)()
	nodes, err := c.deps.Store.ListNodesBySession(ctx, c.sessionID)
	if err != nil {
		c.deps.Logger.Error("list nodes", zap.String("session", c.sessionID), zap.Error(err))
		return fmt.Errorf("load session %s: %w", c.sessionID, err)
	}
	c.Reconcile(nodes)
	c.deps.Logger.Debug("loaded nodes", zap.String("session", c.sessionID), zap.Int("count", len(nodes)))
	return nil
}

// Reconcile installs nodes as the current list and drops selected IDs that
// no longer exist.
func (c *Canvas) Reconcile(nodes []model.Node) {
	c.Nodes.Reconcile(nodes)
	c.Selection.Prune()
}

// NodeAt returns the topmost node under a screen point.
func (c *Canvas) NodeAt(screen r2.Vec) (model.Node, bool) {
	return c.Nodes.HitTest(model.PositionOf(c.Viewport.ScreenToStage(screen)))
}

// FitToContent zooms and pans so every node is visible. It reports false
// when there are no nodes.
func (c *Canvas) FitToContent(padding float64) bool {
	r, ok := model.Bounds(c.Nodes.Nodes())
	if !ok {
		return false
	}
	c.Viewport.FitRect(r, padding)
	return true
}

// ToggleLock locks every selected node, or unlocks them all when they are
// already locked, with one batched store call. The flags are flipped locally
// first and restored if the store rejects the write.
func (c *Canvas) ToggleLock(ctx context.Context) error {
	sel := c.Selection.SelectedNodes()
	if len(sel) == 0 {
		return nil
	}
	lock := false
	for _, n := range sel {
		if !n.IsLocked {
			lock = true
			break
		}
	}

	next := make(map[string]bool, len(sel))
	prev := make(map[string]bool, len(sel))
	reqs := make([]model.NodeUpdateRequest, 0, len(sel))
	for _, n := range sel {
		next[n.ID] = lock
		prev[n.ID] = n.IsLocked
		reqs = append(reqs, model.NodeUpdateRequest{ID: n.ID, Data: model.NodeUpdate{IsLocked: &lock}})
	}

	err := Optimistic(ctx, Change{
		Apply:  func() { c.Nodes.SetLocked(next) },
		Revert: func() { c.Nodes.SetLocked(prev) },
	}, func(ctx context.Context) error {
		_, err := c.deps.Store.UpdateMultipleNodes(ctx, reqs)
		return err
	})
	verb := "unlock"
	if lock {
		verb = "lock"
	}
	if err != nil {
		c.deps.Logger.Error(verb+" nodes", zap.Strings("ids", c.Selection.SelectedIDs()), zap.Error(err))
		notifyf(c.deps.Notifier, LevelError, "Could not %s %s: %v", verb, plural(len(sel), "node"), err)
		return fmt.Errorf("%s nodes: %w", verb, err)
	}
	notifyf(c.deps.Notifier, LevelInfo, "%sed %s", strings.ToUpper(verb[:1])+verb[1:], plural(len(sel), "node"))
	return nil
}

// CopySelection renders the selected nodes as "fileName<TAB>fileURL" lines.
// It returns "" when nothing is selected.
func (c *Canvas) CopySelection() string {
	var b strings.Builder
	for _, n := range c.Selection.SelectedNodes() {
		b.WriteString(n.FileName)
		b.WriteByte('\t')
		b.WriteString(n.FileURL)
		b.WriteByte('\n')
	}
	return b.String()
}
