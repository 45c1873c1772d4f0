// Package viewport holds the pan/zoom state of a canvas and the transform
// between screen space (pixels inside the viewport container) and stage space
// (node coordinates).
//
//	stage  = (screen - offset) / scale
//	screen = stage*scale + offset
//
// A Viewport is owned by the goroutine that handles input events and is not
// safe for concurrent mutation.
package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Zoom limits. Scale is hard-clamped to [MinZoom, MaxZoom].
const (
	MinZoom = 0.1
	MaxZoom = 5.0

	// ZoomStep is the relative change applied by one wheel notch or one
	// keyboard zoom command.
	ZoomStep = 0.1
)

// Viewport is the visible window onto the stage.
type Viewport struct {
	X      float64
	Y      float64
	Scale  float64
	Width  float64
	Height float64
}

// Partial carries optional fields for Set. Nil fields are left unchanged.
type Partial struct {
	X      *float64
	Y      *float64
	Scale  *float64
	Width  *float64
	Height *float64
}

// New returns a viewport at the origin with scale 1 and the given size.
func New(width, height float64) *Viewport {
	return &Viewport{Scale: 1, Width: width, Height: height}
}

// Clamp limits scale to [MinZoom, MaxZoom].
func Clamp(scale float64) float64 {
	if math.IsNaN(scale) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, scale))
}

// Set shallow-merges the non-nil fields of p. It performs no validation.
func (v *Viewport) Set(p Partial) {
	if p.X != nil {
		v.X = *p.X
	}
	if p.Y != nil {
		v.Y = *p.Y
	}
	if p.Scale != nil {
		v.Scale = *p.Scale
	}
	if p.Width != nil {
		v.Width = *p.Width
	}
	if p.Height != nil {
		v.Height = *p.Height
	}
}

// UpdatePosition sets the pan offset.
func (v *Viewport) UpdatePosition(x, y float64) {
	v.X = x
	v.Y = y
}

// UpdateScale clamps and applies scale. It reports whether the scale changed;
// callers doing zoom-at-point math skip the position recompute when it did not.
func (v *Viewport) UpdateScale(scale float64) bool {
	clamped := Clamp(scale)
	if clamped == v.Scale {
		return false
	}
	v.Scale = clamped
	return true
}

// SetDimensions records the visible size. Node positions are stage space and
// are not affected.
func (v *Viewport) SetDimensions(width, height float64) {
	v.Width = width
	v.Height = height
}

// Reset restores the origin and scale 1, keeping the dimensions.
func (v *Viewport) Reset() {
	v.X = 0
	v.Y = 0
	v.Scale = 1
}

// Offset returns the pan offset as a vector.
func (v *Viewport) Offset() r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// Center returns the centre of the viewport in screen space.
func (v *Viewport) Center() r2.Vec {
	return r2.Vec{X: v.Width / 2, Y: v.Height / 2}
}

// ScreenToStage maps a screen point to stage space.
func (v *Viewport) ScreenToStage(screen r2.Vec) r2.Vec {
	return r2.Scale(1/v.Scale, r2.Sub(screen, v.Offset()))
}

// StageToScreen maps a stage point to screen space.
func (v *Viewport) StageToScreen(stage r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(v.Scale, stage), v.Offset())
}
