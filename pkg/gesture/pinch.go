package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/viewport"
)

// Pinch zooms with two touches: idle -> pinching -> idle.
//
// Each move zooms by newDistance/lastDistance around the current midpoint,
// then records the current distance and midpoint as the new baseline.
type Pinch struct {
	vp *viewport.Viewport
	// Origin is the page position of the stage container; touch midpoints are
	// translated by it before zooming.
	Origin r2.Vec

	active   bool
	lastDist float64
	lastMid  r2.Vec
}

// NewPinch returns an idle pinch recognizer driving vp.
func NewPinch(vp *viewport.Viewport, origin r2.Vec) *Pinch {
	return &Pinch{vp: vp, Origin: origin}
}

// Active reports whether a pinch session is in progress.
func (p *Pinch) Active() bool { return p.active }

// TouchStart enters pinching when at least two touches are down.
func (p *Pinch) TouchStart(ev TouchEvent) bool {
	if len(ev.Touches) < 2 {
		return false
	}
	a, b := ev.Touches[0], ev.Touches[1]
	p.active = true
	p.lastDist = distance(a, b)
	p.lastMid = midpoint(a, b)
	return true
}

// TouchMove zooms by the change in finger distance around the midpoint.
func (p *Pinch) TouchMove(ev TouchEvent) bool {
	if !p.active || len(ev.Touches) < 2 {
		return false
	}
	a, b := ev.Touches[0], ev.Touches[1]
	dist := distance(a, b)
	mid := midpoint(a, b)

	changed := false
	if p.lastDist > 0 && dist > 0 {
		changed = p.vp.ZoomAtPoint(r2.Sub(mid, p.Origin), dist/p.lastDist)
	}
	p.lastDist = dist
	p.lastMid = mid
	return changed
}

// TouchEnd leaves pinching once fewer than two touches remain.
func (p *Pinch) TouchEnd(ev TouchEvent) {
	if len(ev.Touches) >= 2 {
		return
	}
	p.active = false
	p.lastDist = 0
	p.lastMid = r2.Vec{}
}

// WheelZoom applies one ZoomStep at the pointer. Wheel events are always
// consumed (the caller should suppress default scrolling); the return value
// reports whether the viewport changed.
func WheelZoom(vp *viewport.Viewport, ev WheelEvent) bool {
	switch {
	case ev.DeltaY > 0:
		return vp.ZoomAtPoint(ev.Point, 1-viewport.ZoomStep)
	case ev.DeltaY < 0:
		return vp.ZoomAtPoint(ev.Point, 1+viewport.ZoomStep)
	default:
		return false
	}
}
