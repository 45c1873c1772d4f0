package viewport_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/viewport"
)

const eps = 1e-6

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func nearVec(a, b r2.Vec) bool {
	return near(a.X, b.X) && near(a.Y, b.Y)
}

func TestUpdateScaleClamps(t *testing.T) {
	tests := []struct {
		name  string
		in    float64
		want  float64
		moved bool
	}{
		{"inside", 2, 2, true},
		{"below", 0.01, viewport.MinZoom, true},
		{"above", 42, viewport.MaxZoom, true},
		{"same", 1, 1, false},
		{"nan", math.NaN(), viewport.MinZoom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viewport.New(800, 600)
			changed := v.UpdateScale(tt.in)
			if v.Scale != tt.want {
				t.Errorf("scale = %v, want %v", v.Scale, tt.want)
			}
			if changed != tt.moved {
				t.Errorf("changed = %v, want %v", changed, tt.moved)
			}
		})
	}
}

func TestRepeatedZoomOutConvergesToMin(t *testing.T) {
	v := viewport.New(800, 600)
	for i := 0; i < 200; i++ {
		v.ZoomAtPoint(r2.Vec{X: 10, Y: 20}, 1-viewport.ZoomStep)
	}
	if v.Scale != viewport.MinZoom {
		t.Fatalf("scale = %v, want exactly %v", v.Scale, viewport.MinZoom)
	}

	x, y := v.X, v.Y
	if v.ZoomAtPoint(r2.Vec{X: 300, Y: 300}, 0.5) {
		t.Fatal("zoom past the limit reported a change")
	}
	if v.X != x || v.Y != y {
		t.Fatalf("offset moved at the zoom limit: (%v,%v) -> (%v,%v)", x, y, v.X, v.Y)
	}
}

func TestZoomAtPointKeepsAnchor(t *testing.T) {
	v := viewport.New(800, 600)
	pointer := r2.Vec{X: 100, Y: 100}
	before := v.ScreenToStage(pointer)

	if !v.ZoomAtPoint(pointer, 2) {
		t.Fatal("expected a change")
	}
	if v.Scale != 2 {
		t.Fatalf("scale = %v, want 2", v.Scale)
	}
	if got := v.StageToScreen(before); !nearVec(got, pointer) {
		t.Fatalf("anchor drifted to %v", got)
	}
	if !near(v.X, -100) || !near(v.Y, -100) {
		t.Fatalf("offset = (%v,%v), want (-100,-100)", v.X, v.Y)
	}
}

func TestZoomAtViewportCentreScenario(t *testing.T) {
	v := &viewport.Viewport{Scale: 1, Width: 800, Height: 600}
	pointer := r2.Vec{X: 400, Y: 300}

	v.ZoomAtPoint(pointer, 1.1)

	if !near(v.Scale, 1.1) {
		t.Fatalf("scale = %v, want 1.1", v.Scale)
	}
	if got := v.StageToScreen(r2.Vec{X: 400, Y: 300}); !nearVec(got, pointer) {
		t.Fatalf("stage (400,300) renders at %v", got)
	}
	if !near(v.X, -40) || !near(v.Y, -30) {
		t.Fatalf("offset = (%v,%v), want (-40,-30)", v.X, v.Y)
	}
}

func TestResetZoomReturnsToHundredPercent(t *testing.T) {
	v := viewport.New(800, 600)
	v.ZoomIn()
	v.ZoomIn()
	center := v.ScreenToStage(v.Center())

	v.ResetZoom()

	if !near(v.Scale, 1) {
		t.Fatalf("scale = %v, want 1", v.Scale)
	}
	if got := v.StageToScreen(center); !nearVec(got, v.Center()) {
		t.Fatalf("centre drifted to %v", got)
	}
}

func TestResetKeepsDimensions(t *testing.T) {
	v := viewport.New(640, 480)
	v.UpdatePosition(12, -7)
	v.UpdateScale(3)

	v.Reset()

	if v.X != 0 || v.Y != 0 || v.Scale != 1 {
		t.Fatalf("reset left %+v", *v)
	}
	if v.Width != 640 || v.Height != 480 {
		t.Fatalf("dimensions lost: %vx%v", v.Width, v.Height)
	}
}

func TestSetMergesOnlyGivenFields(t *testing.T) {
	v := viewport.New(100, 100)
	x := 5.0
	w := 300.0
	v.Set(viewport.Partial{X: &x, Width: &w})

	if v.X != 5 || v.Width != 300 {
		t.Fatalf("fields not applied: %+v", *v)
	}
	if v.Y != 0 || v.Scale != 1 || v.Height != 100 {
		t.Fatalf("untouched fields changed: %+v", *v)
	}
}

func TestFitRectShowsEverything(t *testing.T) {
	v := viewport.New(800, 600)
	r := model.Rect{Min: model.Position{X: 1000, Y: 1000}, Max: model.Position{X: 1400, Y: 1300}}

	v.FitRect(r, 20)

	for _, corner := range []r2.Vec{r.Min.Vec(), r.Max.Vec()} {
		s := v.StageToScreen(corner)
		if s.X < 19 || s.X > 781 || s.Y < 19 || s.Y > 581 {
			t.Errorf("corner %v lands at %v, outside the padded viewport", corner, s)
		}
	}
}

func TestScaleAlwaysWithinLimits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := viewport.New(800, 600)
		steps := rapid.SliceOfN(rapid.Float64Range(0.01, 20), 1, 50).Draw(t, "scaleBy")
		for _, s := range steps {
			v.ZoomAtPoint(r2.Vec{X: 400, Y: 300}, s)
			if v.Scale < viewport.MinZoom || v.Scale > viewport.MaxZoom {
				t.Fatalf("scale %v escaped [%v, %v]", v.Scale, viewport.MinZoom, viewport.MaxZoom)
			}
		}
	})
}

func TestZoomAnchorInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := &viewport.Viewport{
			X:      rapid.Float64Range(-2000, 2000).Draw(t, "x"),
			Y:      rapid.Float64Range(-2000, 2000).Draw(t, "y"),
			Scale:  rapid.Float64Range(viewport.MinZoom, viewport.MaxZoom).Draw(t, "scale"),
			Width:  800,
			Height: 600,
		}
		pointer := r2.Vec{
			X: rapid.Float64Range(0, 800).Draw(t, "px"),
			Y: rapid.Float64Range(0, 600).Draw(t, "py"),
		}
		scaleBy := rapid.Float64Range(0.05, 8).Draw(t, "scaleBy")

		anchor := v.ScreenToStage(pointer)
		v.ZoomAtPoint(pointer, scaleBy)

		if got := v.StageToScreen(anchor); !nearVec(got, pointer) {
			t.Fatalf("anchor %v moved from %v to %v", anchor, pointer, got)
		}
	})
}

func TestTransformRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := &viewport.Viewport{
			X:     rapid.Float64Range(-500, 500).Draw(t, "x"),
			Y:     rapid.Float64Range(-500, 500).Draw(t, "y"),
			Scale: rapid.Float64Range(viewport.MinZoom, viewport.MaxZoom).Draw(t, "scale"),
		}
		p := r2.Vec{
			X: rapid.Float64Range(-5000, 5000).Draw(t, "sx"),
			Y: rapid.Float64Range(-5000, 5000).Draw(t, "sy"),
		}
		if got := v.StageToScreen(v.ScreenToStage(p)); !nearVec(got, p) {
			t.Fatalf("round trip %v -> %v", p, got)
		}
	})
}
