// Package model holds the canvas data types shared by the interaction core,
// the persistence layer and the terminal host.
package model

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultNodeSize is the stage-space size given to nodes created from uploads.
var DefaultNodeSize = Size{Width: 200, Height: 96}

// Position is a point in stage space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec converts the position to a gonum vector for arithmetic.
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// PositionOf converts a vector back to a Position.
func PositionOf(v r2.Vec) Position {
	return Position{X: v.X, Y: v.Y}
}

// Add returns p translated by d.
func (p Position) Add(d r2.Vec) Position {
	return PositionOf(r2.Add(p.Vec(), d))
}

// Size is a width/height pair in stage units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a rectangular file item placed on the canvas.
type Node struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Position  Position  `json:"position"`
	Size      Size      `json:"size"`
	ZIndex    int       `json:"z_index"`
	IsLocked  bool      `json:"is_locked"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether the stage point p lies inside the node's rectangle.
func (n Node) Contains(p Position) bool {
	return p.X >= n.Position.X && p.X < n.Position.X+n.Size.Width &&
		p.Y >= n.Position.Y && p.Y < n.Position.Y+n.Size.Height
}

// NodeData is the payload for creating a node from an uploaded blob.
type NodeData struct {
	FileName string
	FileURL  string
	FileSize int64
	MimeType string
	Checksum string
	Size     Size
}

// NodeUpdate is a partial update; nil fields are left untouched.
type NodeUpdate struct {
	Position *Position
	Size     *Size
	ZIndex   *int
	IsLocked *bool
}

// Apply returns a copy of n with the non-nil fields of u applied.
func (u NodeUpdate) Apply(n Node) Node {
	if u.Position != nil {
		n.Position = *u.Position
	}
	if u.Size != nil {
		n.Size = *u.Size
	}
	if u.ZIndex != nil {
		n.ZIndex = *u.ZIndex
	}
	if u.IsLocked != nil {
		n.IsLocked = *u.IsLocked
	}
	return n
}

// NodeUpdateRequest pairs a node ID with its partial update for batch calls.
type NodeUpdateRequest struct {
	ID   string
	Data NodeUpdate
}

// Rect is an axis-aligned rectangle in stage space.
type Rect struct {
	Min Position `json:"min"`
	Max Position `json:"max"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y
}

// Bounds returns the bounding rectangle of the given nodes. ok is false when
// nodes is empty.
func Bounds(nodes []Node) (r Rect, ok bool) {
	for i, n := range nodes {
		maxX := n.Position.X + n.Size.Width
		maxY := n.Position.Y + n.Size.Height
		if i == 0 {
			r = Rect{Min: n.Position, Max: Position{X: maxX, Y: maxY}}
			continue
		}
		r.Min.X = min(r.Min.X, n.Position.X)
		r.Min.Y = min(r.Min.Y, n.Position.Y)
		r.Max.X = max(r.Max.X, maxX)
		r.Max.Y = max(r.Max.Y, maxY)
	}
	return r, len(nodes) > 0
}
