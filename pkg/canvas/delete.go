package canvas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vanderheijden86/filecanvas/pkg/metrics"
	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// ErrNoPendingDeletion is returned by ConfirmDelete when nothing awaits
// confirmation.
var ErrNoPendingDeletion = errors.New("no deletion pending")

// batchPrefix marks an ID argument that carries several node IDs.
const batchPrefix = "batch:"

// EncodeBatch packs ids into a single argument for DeleteNode.
func EncodeBatch(ids []string) string {
	return batchPrefix + strings.Join(ids, ",")
}

func decodeBatch(id string) ([]string, bool) {
	rest, ok := strings.CutPrefix(id, batchPrefix)
	if !ok {
		return nil, false
	}
	var ids []string
	for _, p := range strings.Split(rest, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids, true
}

// DeletionKind tells single from batch deletions.
type DeletionKind int

const (
	SingleDeletion DeletionKind = iota
	MultipleDeletion
)

// PendingDeletion awaits confirmation.
type PendingDeletion struct {
	Kind    DeletionKind
	NodeIDs []string
}

// DeleteState is the controller's phase.
type DeleteState int

const (
	DeleteIdle DeleteState = iota
	DeleteConfirming
	DeleteDeleting
)

func (s DeleteState) String() string {
	switch s {
	case DeleteConfirming:
		return "confirming"
	case DeleteDeleting:
		return "deleting"
	default:
		return "idle"
	}
}

// DeletionController gates node removal behind a confirmation step and only
// removes nodes locally once the store has deleted them.
type DeletionController struct {
	deps Deps

	mu      sync.Mutex
	state   DeleteState
	pending *PendingDeletion
}

// NewDeletionController returns an idle controller.
func NewDeletionController(deps Deps) *DeletionController {
	return &DeletionController{deps: deps.withDefaults()}
}

// State returns the current phase.
func (c *DeletionController) State() DeleteState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns a copy of the deletion awaiting confirmation.
func (c *DeletionController) Pending() (PendingDeletion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return PendingDeletion{}, false
	}
	p := *c.pending
	p.NodeIDs = append([]string(nil), p.NodeIDs...)
	return p, true
}

func (c *DeletionController) request(p PendingDeletion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == DeleteDeleting {
		return false
	}
	c.pending = &p
	c.state = DeleteConfirming
	return true
}

// DeleteNode asks for confirmation to delete id, or every ID in a batch
// produced by EncodeBatch.
func (c *DeletionController) DeleteNode(id string) bool {
	if ids, ok := decodeBatch(id); ok {
		if len(ids) == 0 {
			return false
		}
		return c.request(PendingDeletion{Kind: MultipleDeletion, NodeIDs: ids})
	}
	if id == "" {
		return false
	}
	return c.request(PendingDeletion{Kind: SingleDeletion, NodeIDs: []string{id}})
}

// DeleteSelectedNodes asks for confirmation to delete the selection. With
// nothing selected it does nothing and returns false.
func (c *DeletionController) DeleteSelectedNodes() bool {
	ids := c.deps.Selection.SelectedIDs()
	if len(ids) == 0 {
		return false
	}
	return c.request(PendingDeletion{Kind: MultipleDeletion, NodeIDs: ids})
}

// CancelDelete discards the pending deletion without touching the store.
func (c *DeletionController) CancelDelete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DeleteConfirming {
		return false
	}
	c.pending = nil
	c.state = DeleteIdle
	return true
}

// ConfirmDelete deletes the pending nodes from the store, then from the local
// list. On failure nothing is removed locally. Either way the pending deletion
// is discarded; there is no retry.
func (c *DeletionController) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil || c.state != DeleteConfirming {
		c.mu.Unlock()
		return ErrNoPendingDeletion
	}
	p := *c.pending
	c.state = DeleteDeleting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = nil
		c.state = DeleteIdle
		c.mu.Unlock()
	}()

	ids := c.deps.Nodes.Filter(p.NodeIDs)
	if len(ids) == 0 {
		c.deps.Selection.Prune()
		return nil
	}
	// Capture URLs before the nodes leave the list so blobs can be cleaned up.
	var victims []model.Node
	for _, id := range ids {
		if n, ok := c.deps.Nodes.Get(id); ok {
			victims = append(victims, n)
		}
	}

	log := c.deps.Logger.With(zap.String("op", "delete"), zap.Strings("ids", ids))
	done := metrics.Timer(metrics.DeleteRemote)
	err := Confirmed(ctx, func(ctx context.Context) error {
		if len(ids) == 1 {
			return c.deps.Store.DeleteNode(ctx, ids[0])
		}
		return c.deps.Store.DeleteMultipleNodes(ctx, ids)
	}, func() {
		c.deps.Nodes.Remove(ids...)
		if p.Kind == MultipleDeletion {
			c.deps.Selection.ClearSelection()
		} else {
			c.deps.Selection.Deselect(ids...)
		}
	})
	done()

	if err != nil {
		log.Error("delete nodes", zap.Error(err))
		notifyf(c.deps.Notifier, LevelError, "Could not delete %s: %v", plural(len(ids), "node"), err)
		return fmt.Errorf("delete nodes: %w", err)
	}

	c.removeBlobs(ctx, victims)
	log.Info("deleted nodes")
	notifyf(c.deps.Notifier, LevelSuccess, "Deleted %s", plural(len(ids), "node"))
	return nil
}

// removeBlobs drops the stored files behind deleted nodes. Failures leave an
// orphaned object and are only logged.
func (c *DeletionController) removeBlobs(ctx context.Context, nodes []model.Node) {
	if c.deps.Blobs == nil {
		return
	}
	for _, n := range nodes {
		key, ok := c.deps.Blobs.KeyFromURL(n.FileURL)
		if !ok {
			continue
		}
		if err := c.deps.Blobs.Delete(ctx, key); err != nil {
			c.deps.Logger.Warn("remove blob of deleted node", zap.String("node", n.ID), zap.String("key", key), zap.Error(err))
		}
	}
}
