package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/viewport"
)

// Pan drags the viewport with a single pointer: idle -> panning -> idle.
//
// Moves are applied incrementally against the last pointer position rather
// than the press anchor.
type Pan struct {
	vp     *viewport.Viewport
	active bool
	last   r2.Vec
}

// NewPan returns an idle pan recognizer driving vp.
func NewPan(vp *viewport.Viewport) *Pan {
	return &Pan{vp: vp}
}

// Active reports whether a pan session is in progress.
func (p *Pan) Active() bool { return p.active }

// PointerDown starts panning when the press landed on the stage surface.
// Presses on nodes or other elements are left alone so they can drag or click.
func (p *Pan) PointerDown(ev PointerEvent) bool {
	if ev.Target != TargetStage {
		return false
	}
	p.active = true
	p.last = ev.Point
	return true
}

// PointerMove pans by the distance moved since the previous event.
func (p *Pan) PointerMove(ev PointerEvent) bool {
	if !p.active {
		return false
	}
	d := r2.Sub(ev.Point, p.last)
	p.vp.UpdatePosition(p.vp.X+d.X, p.vp.Y+d.Y)
	p.last = ev.Point
	return true
}

// PointerUp ends the session.
func (p *Pan) PointerUp() {
	p.Cancel()
}

// Cancel discards the session without further movement.
func (p *Pan) Cancel() {
	p.active = false
	p.last = r2.Vec{}
}

// TouchStart starts panning for a single touch on the stage. Multi-touch
// input belongs to Pinch.
func (p *Pan) TouchStart(ev TouchEvent) bool {
	if len(ev.Touches) != 1 {
		return false
	}
	return p.PointerDown(PointerEvent{Target: ev.Target, Point: ev.Touches[0]})
}

// TouchMove pans while exactly one touch is down.
func (p *Pan) TouchMove(ev TouchEvent) bool {
	if len(ev.Touches) != 1 {
		return false
	}
	return p.PointerMove(PointerEvent{Target: ev.Target, Point: ev.Touches[0]})
}

// TouchEnd ends the session.
func (p *Pan) TouchEnd() {
	p.Cancel()
}
