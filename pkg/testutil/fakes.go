package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/store"
)

// Store operation names, used for call counting and failure injection.
const (
	OpCreate     = "CreateNode"
	OpUpdate     = "UpdateNode"
	OpUpdateMany = "UpdateMultipleNodes"
	OpDelete     = "DeleteNode"
	OpDeleteMany = "DeleteMultipleNodes"
	OpList       = "ListNodesBySession"
)

// NodeStore is an in-memory store.NodeService.
type NodeStore struct {
	mu    sync.Mutex
	nodes map[string]model.Node
	calls map[string]int
	fail  map[string]error
	// FailAt makes the nth call (1-based) of an operation fail with the
	// mapped error.
	failAt map[string]map[int]error
}

var _ store.NodeService = (*NodeStore)(nil)

// NewNodeStore returns a store seeded with nodes.
func NewNodeStore(nodes ...model.Node) *NodeStore {
	s := &NodeStore{
		nodes:  make(map[string]model.Node),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
		failAt: make(map[string]map[int]error),
	}
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	return s
}

// Fail makes every future call of op return err. A nil err clears it.
func (s *NodeStore) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// FailCall makes the nth call of op return err.
func (s *NodeStore) FailCall(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt[op] == nil {
		s.failAt[op] = make(map[int]error)
	}
	s.failAt[op][n] = err
}

// Calls returns how often op was invoked.
func (s *NodeStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Get returns the stored node.
func (s *NodeStore) Get(id string) (model.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Len returns the number of stored nodes.
func (s *NodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *NodeStore) enter(op string) error {
	s.calls[op]++
	if err := s.failAt[op][s.calls[op]]; err != nil {
		return err
	}
	return s.fail[op]
}

func (s *NodeStore) CreateNode(_ context.Context, sessionID string, data model.NodeData, pos model.Position) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreate); err != nil {
		return model.Node{}, err
	}
	size := data.Size
	if size == (model.Size{}) {
		size = model.DefaultNodeSize
	}
	z := 0
	for _, n := range s.nodes {
		z = max(z, n.ZIndex)
	}
	now := time.Now().UTC()
	n := model.Node{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Position:  pos,
		Size:      size,
		ZIndex:    z + 1,
		FileName:  data.FileName,
		FileURL:   data.FileURL,
		FileSize:  data.FileSize,
		MimeType:  data.MimeType,
		Checksum:  data.Checksum,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nodes[n.ID] = n
	return n, nil
}

func (s *NodeStore) UpdateNode(_ context.Context, id string, u model.NodeUpdate) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdate); err != nil {
		return model.Node{}, err
	}
	n, ok := s.nodes[id]
	if !ok {
		return model.Node{}, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	n = u.Apply(n)
	s.nodes[id] = n
	return n, nil
}

func (s *NodeStore) UpdateMultipleNodes(_ context.Context, reqs []model.NodeUpdateRequest) ([]model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdateMany); err != nil {
		return nil, err
	}
	for _, r := range reqs {
		if _, ok := s.nodes[r.ID]; !ok {
			return nil, fmt.Errorf("update %s: %w", r.ID, store.ErrNotFound)
		}
	}
	out := make([]model.Node, 0, len(reqs))
	for _, r := range reqs {
		n := r.Data.Apply(s.nodes[r.ID])
		s.nodes[r.ID] = n
		out = append(out, n)
	}
	return out, nil
}

func (s *NodeStore) DeleteNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDelete); err != nil {
		return err
	}
	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	delete(s.nodes, id)
	return nil
}

func (s *NodeStore) DeleteMultipleNodes(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteMany); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
		}
	}
	for _, id := range ids {
		delete(s.nodes, id)
	}
	return nil
}

func (s *NodeStore) ListNodesBySession(_ context.Context, sessionID string) ([]model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpList); err != nil {
		return nil, err
	}
	var out []model.Node
	for _, n := range s.nodes {
		if n.SessionID == sessionID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZIndex != out[j].ZIndex {
			return out[i].ZIndex < out[j].ZIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MemBackend is an in-memory blob.Backend.
type MemBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	// BeforePut runs before an object is read and stored. Returning an error
	// fails the put. It may block on ctx to simulate a slow transfer.
	BeforePut func(ctx context.Context, key string) error
	// Corrupt flips stored bytes so integrity checks fail.
	Corrupt bool
}

// NewMemBackend returns an empty backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{objects: make(map[string][]byte)}
}

func (b *MemBackend) Put(ctx context.Context, key string, body io.Reader, _ int64) error {
	if b.BeforePut != nil {
		if err := b.BeforePut(ctx, key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Corrupt && len(data) > 0 {
		data = append([]byte(nil), data...)
		data[0] ^= 0xff
	}
	b.objects[key] = data
	return nil
}

func (b *MemBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *MemBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *MemBackend) URL(key string) string { return "mem://" + key }

func (b *MemBackend) Type() string { return "memory" }

// Has reports whether key is stored.
func (b *MemBackend) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (b *MemBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// Deleted returns the keys passed to Delete, in order.
func (b *MemBackend) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}
