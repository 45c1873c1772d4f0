package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/viewport"
)

// Recognizer routes input to Pan or Pinch by touch count so that at most one
// of them holds a session at a time.
type Recognizer struct {
	vp    *viewport.Viewport
	Pan   *Pan
	Pinch *Pinch
}

// NewRecognizer builds both recognizers over vp.
func NewRecognizer(vp *viewport.Viewport, origin r2.Vec) *Recognizer {
	return &Recognizer{
		vp:    vp,
		Pan:   NewPan(vp),
		Pinch: NewPinch(vp, origin),
	}
}

// Busy reports whether either session is active.
func (r *Recognizer) Busy() bool {
	return r.Pan.Active() || r.Pinch.Active()
}

// PointerDown forwards a mouse press to Pan.
func (r *Recognizer) PointerDown(ev PointerEvent) bool {
	if r.Pinch.Active() {
		return false
	}
	return r.Pan.PointerDown(ev)
}

// PointerMove forwards a mouse move to Pan.
func (r *Recognizer) PointerMove(ev PointerEvent) bool {
	return r.Pan.PointerMove(ev)
}

// PointerUp ends any pan session.
func (r *Recognizer) PointerUp() {
	r.Pan.PointerUp()
}

// Wheel applies wheel zoom.
func (r *Recognizer) Wheel(ev WheelEvent) bool {
	return WheelZoom(r.vp, ev)
}

// TouchStart starts a pan for one touch or a pinch for two or more. A second
// finger landing during a pan ends the pan and hands over to the pinch.
func (r *Recognizer) TouchStart(ev TouchEvent) bool {
	switch n := len(ev.Touches); {
	case n == 1 && !r.Pinch.Active():
		return r.Pan.TouchStart(ev)
	case n >= 2:
		r.Pan.Cancel()
		return r.Pinch.TouchStart(ev)
	}
	return false
}

// TouchMove feeds whichever session is active.
func (r *Recognizer) TouchMove(ev TouchEvent) bool {
	if r.Pinch.Active() {
		return r.Pinch.TouchMove(ev)
	}
	return r.Pan.TouchMove(ev)
}

// TouchEnd is called with the touches that remain down.
func (r *Recognizer) TouchEnd(ev TouchEvent) {
	r.Pinch.TouchEnd(ev)
	if len(ev.Touches) == 0 {
		r.Pan.TouchEnd()
	}
}
