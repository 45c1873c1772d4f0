// Package gesture turns raw pointer, touch and wheel input into viewport
// mutations: single-pointer pan, two-touch pinch zoom and stateless wheel zoom.
//
// Recognizers never return errors; malformed input is ignored. They mutate the
// viewport they were built with and must be driven from the goroutine that
// owns that viewport.
package gesture

import "gonum.org/v1/gonum/spatial/r2"

// Target classifies what a pointer went down on.
type Target int

const (
	// TargetStage is the empty canvas surface itself.
	TargetStage Target = iota
	// TargetNode is a node or anything inside one.
	TargetNode
	// TargetOther is any other interactive element (panels, buttons).
	TargetOther
)

func (t Target) String() string {
	switch t {
	case TargetStage:
		return "stage"
	case TargetNode:
		return "node"
	default:
		return "other"
	}
}

// PointerEvent is a mouse event in screen space.
type PointerEvent struct {
	Target Target
	Point  r2.Vec
}

// TouchEvent lists the touches currently down, in page coordinates.
type TouchEvent struct {
	Target  Target
	Touches []r2.Vec
}

// WheelEvent is a scroll-wheel notch at Point (screen space). Positive DeltaY
// scrolls down, which zooms out.
type WheelEvent struct {
	Point  r2.Vec
	DeltaY float64
}

func distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

func midpoint(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}
