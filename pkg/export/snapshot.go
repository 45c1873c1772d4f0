// Package export writes a canvas session to a file: an SVG or PNG picture of
// the nodes in stage space, or a JSON document.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"github.com/dustin/go-humanize"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// Formats understood by Save.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ErrNoNodes is returned when there is nothing to draw.
var ErrNoNodes = errors.New("no nodes to export")

// Options controls snapshot export.
type Options struct {
	Path      string // Output path; format inferred from extension when Format is empty
	Format    string // svg, png or json (case-insensitive)
	Title     string // Rendered in the header block
	SessionID string
	Nodes     []model.Node
	Now       func() time.Time
}

// ResolveFormat returns the export format for opts, inferring it from the
// path extension and defaulting to svg.
func ResolveFormat(opts Options) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(opts.Path), "."))
		if format == "" {
			format = FormatSVG
		}
	}
	switch format {
	case FormatSVG, FormatPNG, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want svg, png or json)", format)
	}
}

// Save writes the snapshot described by opts and returns the format used.
func Save(opts Options) (string, error) {
	if opts.Path == "" {
		return "", fmt.Errorf("output path is required")
	}
	format, err := ResolveFormat(opts)
	if err != nil {
		return "", err
	}
	if len(opts.Nodes) == 0 {
		return format, ErrNoNodes
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return format, fmt.Errorf("create parent dir: %w", err)
	}

	switch format {
	case FormatPNG:
		return format, renderPNG(opts.Path, buildLayout(opts))
	case FormatJSON:
		f, err := os.Create(opts.Path)
		if err != nil {
			return format, err
		}
		defer f.Close()
		return format, WriteJSON(f, opts)
	default:
		f, err := os.Create(opts.Path)
		if err != nil {
			return format, err
		}
		defer f.Close()
		return format, RenderSVG(f, opts)
	}
}

// --- layout ------------------------------------------------------------------

const (
	padding      = 36.0
	headerHeight = 96.0
	minWidth     = 640
	minHeight    = 360
)

type layoutNode struct {
	Node  model.Node
	X, Y  float64
	Label string
	Meta  string
}

type layoutResult struct {
	Nodes  []layoutNode
	Width  int
	Height int
	Title  string
	Info   string
}

// buildLayout keeps each node's stage position, translated so the bounding
// box starts below the header. Nodes are drawn in z order.
func buildLayout(opts Options) layoutResult {
	nodes := append([]model.Node(nil), opts.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].ZIndex != nodes[j].ZIndex {
			return nodes[i].ZIndex < nodes[j].ZIndex
		}
		return nodes[i].ID < nodes[j].ID
	})

	bounds, _ := model.Bounds(nodes)
	dx := padding - bounds.Min.X
	dy := padding + headerHeight - bounds.Min.Y

	out := make([]layoutNode, 0, len(nodes))
	for _, n := range nodes {
		meta := humanize.Bytes(uint64(max(n.FileSize, 0)))
		if n.MimeType != "" {
			meta = n.MimeType + "  " + meta
		}
		if n.IsLocked {
			meta += "  locked"
		}
		out = append(out, layoutNode{
			Node:  n,
			X:     n.Position.X + dx,
			Y:     n.Position.Y + dy,
			Label: truncate(n.FileName, labelChars(n.Size.Width)),
			Meta:  truncate(meta, labelChars(n.Size.Width)),
		})
	}

	width := int(bounds.Max.X - bounds.Min.X + 2*padding)
	height := int(bounds.Max.Y - bounds.Min.Y + 2*padding + headerHeight)

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Canvas Snapshot"
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	info := fmt.Sprintf("session: %s  nodes: %d  exported: %s",
		opts.SessionID, len(nodes), now().UTC().Format(time.RFC3339))

	return layoutResult{
		Nodes:  out,
		Width:  max(width, minWidth),
		Height: max(height, minHeight),
		Title:  title,
		Info:   info,
	}
}

// labelChars is how many 7px glyphs fit in a node of width w.
func labelChars(w float64) int {
	return max(int((w-20)/7), 4)
}

// --- rendering -----------------------------------------------------------------

var (
	colorImage    = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorDocument = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorText     = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorArchive  = color.RGBA{0xe1, 0xbe, 0xe7, 0xff}
	colorOther    = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorInk      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func fillFor(mimeType string) color.RGBA {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return colorImage
	case strings.HasPrefix(mimeType, "text/"):
		return colorText
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "tar"), strings.Contains(mimeType, "compressed"):
		return colorArchive
	case strings.HasPrefix(mimeType, "application/"):
		return colorDocument
	default:
		return colorOther
	}
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorInk)
	dc.DrawStringAnchored(layout.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(layout.Info, 32, 60, 0, 0.5)

	for _, n := range layout.Nodes {
		drawNode(dc, n)
	}

	return dc.SavePNG(path)
}

func drawNode(dc *gg.Context, n layoutNode) {
	w, h := n.Node.Size.Width, n.Node.Size.Height
	dc.SetColor(fillFor(n.Node.MimeType))
	dc.DrawRoundedRectangle(n.X, n.Y, w, h, 8)
	dc.Fill()

	dc.SetColor(colorStroke)
	dc.SetLineWidth(1.2)
	if n.Node.IsLocked {
		dc.SetDash(4, 3)
	}
	dc.DrawRoundedRectangle(n.X, n.Y, w, h, 8)
	dc.Stroke()
	dc.SetDash()

	dc.SetColor(colorInk)
	dc.DrawStringAnchored(n.Label, n.X+10, n.Y+18, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(n.Meta, n.X+10, n.Y+36, 0, 0.5)
}

// RenderSVG writes an SVG snapshot of opts.Nodes to w.
func RenderSVG(w io.Writer, opts Options) error {
	if len(opts.Nodes) == 0 {
		return ErrNoNodes
	}
	layout := buildLayout(opts)

	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 44, layout.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorInk)))
	canvas.Text(32, 64, layout.Info, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(fillFor(n.Node.MimeType)), css(colorStroke))
		if n.Node.IsLocked {
			style += ";stroke-dasharray:4,3"
		}
		canvas.Group(fmt.Sprintf(`id="%s"`, svgID(n.Node.ID)))
		canvas.Roundrect(x, y, int(n.Node.Size.Width), int(n.Node.Size.Height), 8, 8, style)
		canvas.Text(x+10, y+22, n.Label, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorInk)))
		canvas.Text(x+10, y+40, n.Meta, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Gend()
	}

	canvas.End()
	return nil
}

// --- helpers -------------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func svgID(id string) string {
	return "node-" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
