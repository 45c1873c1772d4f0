// Package testutil provides node fixtures and in-memory fakes of the node
// store and blob backend. All generators produce deterministic output for
// reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// GeneratorConfig controls node generation.
type GeneratorConfig struct {
	Seed      int64  // Random seed for determinism (0 = use current time)
	IDPrefix  string // Prefix for node IDs (default: "n")
	SessionID string // Session for every node (default: "test")
	BaseTime  time.Time
}

// DefaultConfig returns a fixed-seed configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		IDPrefix:  "n",
		SessionID: "test",
		BaseTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Generator creates node fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = "test"
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) node(i int, pos model.Position) model.Node {
	ts := g.cfg.BaseTime.Add(time.Duration(i) * time.Minute)
	name := fmt.Sprintf("file-%d.txt", i)
	return model.Node{
		ID:        fmt.Sprintf("%s%d", g.cfg.IDPrefix, i),
		SessionID: g.cfg.SessionID,
		Position:  pos,
		Size:      model.DefaultNodeSize,
		ZIndex:    i + 1,
		FileName:  name,
		FileURL:   "mem://uploads/" + name,
		FileSize:  int64(100 + i),
		MimeType:  "text/plain",
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Grid lays out n nodes in rows of cols, spaced by gap stage units.
func (g *Generator) Grid(n, cols int, gap float64) []model.Node {
	if cols <= 0 {
		cols = 1
	}
	nodes := make([]model.Node, n)
	w, h := model.DefaultNodeSize.Width+gap, model.DefaultNodeSize.Height+gap
	for i := range nodes {
		pos := model.Position{X: float64(i%cols) * w, Y: float64(i/cols) * h}
		nodes[i] = g.node(i, pos)
	}
	return nodes
}

// Scatter places n nodes at random positions within extent.
func (g *Generator) Scatter(n int, extent float64) []model.Node {
	nodes := make([]model.Node, n)
	for i := range nodes {
		pos := model.Position{X: g.rng.Float64() * extent, Y: g.rng.Float64() * extent}
		nodes[i] = g.node(i, pos)
	}
	return nodes
}
