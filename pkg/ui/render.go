package ui

import (
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/viewport"
)

// A terminal cell stands for CellWidth x CellHeight screen pixels.
const (
	CellWidth  = 8
	CellHeight = 16
)

// CellToScreen returns the screen point at the centre of cell (col, row) of
// the canvas area.
func CellToScreen(col, row int) r2.Vec {
	return r2.Vec{
		X: float64(col)*CellWidth + CellWidth/2,
		Y: float64(row)*CellHeight + CellHeight/2,
	}
}

// ScreenToCell returns the cell containing screen point p.
func ScreenToCell(p r2.Vec) (col, row int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

type cell struct {
	r     rune
	style int
	// wide marks the trailing half of a double-width rune.
	wide bool
}

// grid is a clipped character buffer with a style slot per cell.
type grid struct {
	w, h  int
	cells []cell
}

func newGrid(w, h int) *grid {
	w, h = max(w, 0), max(h, 0)
	g := &grid{w: w, h: h, cells: make([]cell, w*h)}
	for i := range g.cells {
		g.cells[i] = cell{r: ' ', style: styleStage}
	}
	return g
}

func (g *grid) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

func (g *grid) set(x, y int, r rune, style int) {
	if !g.inside(x, y) {
		return
	}
	g.cells[y*g.w+x] = cell{r: r, style: style}
}

// text writes s from (x, y), clipped to maxW cells and the grid edge.
func (g *grid) text(x, y int, s string, maxW, style int) {
	s = runewidth.Truncate(s, maxW, "…")
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if rw == 2 && !g.inside(x+1, y) {
			return
		}
		g.set(x, y, r, style)
		if rw == 2 {
			if g.inside(x+1, y) {
				g.cells[y*g.w+x+1] = cell{style: style, wide: true}
			}
		}
		x += rw
	}
}

type border struct {
	h, v, tl, tr, bl, br rune
}

var (
	borderNormal   = border{'─', '│', '╭', '╮', '╰', '╯'}
	borderSelected = border{'═', '║', '╔', '╗', '╚', '╝'}
	borderLocked   = border{'┄', '┆', '┌', '┐', '└', '┘'}
)

// box draws the outline of [x0,x1]x[y0,y1] and blanks its interior.
func (g *grid) box(x0, y0, x1, y1 int, b border, style int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			var r rune
			switch {
			case y == y0 && x == x0:
				r = b.tl
			case y == y0 && x == x1:
				r = b.tr
			case y == y1 && x == x0:
				r = b.bl
			case y == y1 && x == x1:
				r = b.br
			case y == y0 || y == y1:
				r = b.h
			case x == x0 || x == x1:
				r = b.v
			default:
				g.set(x, y, ' ', styleStage)
				continue
			}
			g.set(x, y, r, style)
		}
	}
}

// render joins the grid into lines, styling each run of equal slots once.
func (g *grid) render(t Theme) string {
	var out strings.Builder
	var run strings.Builder
	for y := 0; y < g.h; y++ {
		if y > 0 {
			out.WriteByte('\n')
		}
		cur := -1
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur == styleStage {
				out.WriteString(run.String())
			} else {
				out.WriteString(t.cells[cur].Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < g.w; x++ {
			c := g.cells[y*g.w+x]
			if c.wide {
				continue
			}
			if c.style != cur {
				flush()
				cur = c.style
			}
			run.WriteRune(c.r)
		}
		flush()
	}
	return out.String()
}

// canvasView is everything drawCanvas needs for one frame.
type canvasView struct {
	vp       *viewport.Viewport
	nodes    []model.Node
	selected map[string]bool
	// moved overrides positions of nodes being dragged.
	moved   map[string]model.Position
	minimap bool
}

// drawCanvas renders the stage into a cols x rows grid.
func drawCanvas(cols, rows int, v canvasView) *grid {
	g := newGrid(cols, rows)
	drawOrigin(g, v.vp)

	nodes := append([]model.Node(nil), v.nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ZIndex < nodes[j].ZIndex })
	for _, n := range nodes {
		if p, ok := v.moved[n.ID]; ok {
			n.Position = p
		}
		drawNode(g, v.vp, n, v.selected[n.ID])
	}
	if v.minimap {
		drawMinimap(g, v)
	}
	return g
}

// drawOrigin marks the stage origin so an empty canvas still shows where
// it is.
func drawOrigin(g *grid, vp *viewport.Viewport) {
	col, row := ScreenToCell(vp.StageToScreen(r2.Vec{}))
	g.set(col, row, '+', styleGrid)
}

// nodeCells maps a node's stage rectangle to an inclusive cell rectangle.
func nodeCells(vp *viewport.Viewport, n model.Node) (x0, y0, x1, y1 int) {
	tl := vp.StageToScreen(n.Position.Vec())
	br := vp.StageToScreen(r2.Vec{X: n.Position.X + n.Size.Width, Y: n.Position.Y + n.Size.Height})
	x0, y0 = ScreenToCell(tl)
	x1, y1 = ScreenToCell(r2.Vec{X: br.X - 1, Y: br.Y - 1})
	return x0, y0, max(x1, x0), max(y1, y0)
}

func drawNode(g *grid, vp *viewport.Viewport, n model.Node, selected bool) {
	x0, y0, x1, y1 := nodeCells(vp, n)
	if x1 < 0 || y1 < 0 || x0 >= g.w || y0 >= g.h {
		return
	}

	style, b := nodeStyle(n.MimeType), borderNormal
	switch {
	case selected:
		style, b = styleSelected, borderSelected
	case n.IsLocked:
		style, b = styleLocked, borderLocked
	}

	// Too small for a frame: a single marker cell.
	if x1-x0 < 2 || y1-y0 < 1 {
		mark := '▪'
		if selected {
			mark = '◆'
		}
		g.set(x0, y0, mark, style)
		return
	}

	g.box(x0, y0, x1, y1, b, style)
	inner := x1 - x0 - 1
	label := n.FileName
	if n.IsLocked {
		label = "⚿ " + label
	}
	g.text(x0+1, y0+1, label, inner, styleLabel)
	if y1-y0 >= 3 {
		g.text(x0+1, y0+2, n.MimeType, inner, styleGrid)
	}
}

const (
	minimapCols = 24
	minimapRows = 6
)

// drawMinimap draws the whole node extent in the bottom-right corner with the
// visible area outlined.
func drawMinimap(g *grid, v canvasView) {
	if g.w < minimapCols+2 || g.h < minimapRows+2 || len(v.nodes) == 0 {
		return
	}
	bounds, _ := model.Bounds(v.nodes)
	visTL := v.vp.ScreenToStage(r2.Vec{})
	visBR := v.vp.ScreenToStage(r2.Vec{X: v.vp.Width, Y: v.vp.Height})
	bounds.Min.X = min(bounds.Min.X, visTL.X)
	bounds.Min.Y = min(bounds.Min.Y, visTL.Y)
	bounds.Max.X = max(bounds.Max.X, visBR.X)
	bounds.Max.Y = max(bounds.Max.Y, visBR.Y)
	w := max(bounds.Max.X-bounds.Min.X, 1)
	h := max(bounds.Max.Y-bounds.Min.Y, 1)

	ox, oy := g.w-minimapCols-1, g.h-minimapRows-1
	g.box(ox-1, oy-1, ox+minimapCols, oy+minimapRows, borderNormal, styleMinimap)

	project := func(p r2.Vec) (int, int) {
		x := int((p.X - bounds.Min.X) / w * float64(minimapCols-1))
		y := int((p.Y - bounds.Min.Y) / h * float64(minimapRows-1))
		return ox + x, oy + y
	}
	ax, ay := project(visTL)
	bx, by := project(visBR)
	for x := ax; x <= bx; x++ {
		g.set(x, ay, '·', styleMinimap)
		g.set(x, by, '·', styleMinimap)
	}
	for _, n := range v.nodes {
		x, y := project(r2.Vec{X: n.Position.X + n.Size.Width/2, Y: n.Position.Y + n.Size.Height/2})
		mark, style := '■', nodeStyle(n.MimeType)
		if v.selected[n.ID] {
			style = styleSelected
		}
		g.set(x, y, mark, style)
	}
}

// truncateWidth truncates s to maxWidth cells, adding suffix when cut.
func truncateWidth(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if runewidth.StringWidth(suffix) > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, suffix)
}
