// Package canvas holds the node cache and the controllers that turn drag,
// delete and upload gestures into store calls.
//
// Controllers are safe to call from a goroutine other than the one handling
// input: every remote call runs without holding a lock, and local state is
// only touched under the owning mutex. Failures are logged, reported through
// the Notifier, undone locally and then returned to the caller, so a host
// needs no recovery logic of its own.
package canvas

import (
	"go.uber.org/zap"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/selection"
	"github.com/vanderheijden86/filecanvas/pkg/store"
)

// Deps are the collaborators shared by the controllers.
type Deps struct {
	Nodes     *NodeList
	Selection *selection.Manager
	Store     store.NodeService
	// Blobs is needed by uploads and by blob cleanup after deletes; it may be
	// nil for a canvas that never uploads.
	Blobs    *blob.Service
	Notifier Notifier
	Logger   *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Nodes == nil {
		d.Nodes = NewNodeList()
	}
	if d.Selection == nil {
		d.Selection = selection.New(d.Nodes)
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}
