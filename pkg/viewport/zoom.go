package viewport

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// ZoomAtPoint multiplies the scale by scaleBy while keeping the stage point
// under pointer (screen space) fixed on screen. It reports whether anything
// changed; at the zoom limits it returns false without touching the offset.
func (v *Viewport) ZoomAtPoint(pointer r2.Vec, scaleBy float64) bool {
	oldScale := v.Scale
	newScale := Clamp(oldScale * scaleBy)
	if newScale == oldScale {
		return false
	}

	anchor := r2.Scale(1/oldScale, r2.Sub(pointer, v.Offset()))
	pos := r2.Sub(pointer, r2.Scale(newScale, anchor))

	v.UpdateScale(newScale)
	v.UpdatePosition(pos.X, pos.Y)
	return true
}

// ZoomAtCenter zooms around the centre of the viewport.
func (v *Viewport) ZoomAtCenter(scaleBy float64) bool {
	return v.ZoomAtPoint(v.Center(), scaleBy)
}

// ZoomIn applies one ZoomStep in at the centre.
func (v *Viewport) ZoomIn() bool { return v.ZoomAtCenter(1 + ZoomStep) }

// ZoomOut applies one ZoomStep out at the centre.
func (v *Viewport) ZoomOut() bool { return v.ZoomAtCenter(1 - ZoomStep) }

// ResetZoom returns to 100% around the centre.
func (v *Viewport) ResetZoom() bool {
	return v.ZoomAtCenter(1 / v.Scale)
}

// FitRect scales and pans so r fills the viewport with padding pixels on
// every side. The scale is clamped, so very large or very small content may
// not fit exactly. Empty rectangles are centred at the current scale.
func (v *Viewport) FitRect(r model.Rect, padding float64) {
	w := r.Max.X - r.Min.X
	h := r.Max.Y - r.Min.Y
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	availW := v.Width - 2*padding
	availH := v.Height - 2*padding
	scale := v.Scale
	if availW > 0 && availH > 0 {
		scale = Clamp(min(availW/w, availH/h))
	}
	v.Scale = scale

	center := r2.Vec{X: r.Min.X + w/2, Y: r.Min.Y + h/2}
	pos := r2.Sub(v.Center(), r2.Scale(scale, center))
	v.UpdatePosition(pos.X, pos.Y)
}
