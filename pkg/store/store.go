// Package store defines the contract of the remote node persistence service.
//
// The canvas treats the store as last-writer-wins: every call is a direct
// write with no versioning. Implementations live elsewhere (see
// internal/datasource for the sqlite one).
package store

import (
	"context"
	"errors"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// ErrNotFound is returned when an update or delete names a node that does not
// exist.
var ErrNotFound = errors.New("node not found")

// NodeService persists canvas nodes.
type NodeService interface {
	CreateNode(ctx context.Context, sessionID string, data model.NodeData, pos model.Position) (model.Node, error)
	UpdateNode(ctx context.Context, id string, update model.NodeUpdate) (model.Node, error)
	// UpdateMultipleNodes applies every update or none of them.
	UpdateMultipleNodes(ctx context.Context, updates []model.NodeUpdateRequest) ([]model.Node, error)
	DeleteNode(ctx context.Context, id string) error
	// DeleteMultipleNodes deletes every node or none of them.
	DeleteMultipleNodes(ctx context.Context, ids []string) error
	ListNodesBySession(ctx context.Context, sessionID string) ([]model.Node, error)
}
