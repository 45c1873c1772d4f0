package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/filecanvas/pkg/hooks"
	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/testutil"
)

var fixedNow = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

func sampleNodes() []model.Node {
	nodes := testutil.NewDefault().Grid(3, 3, 10)
	nodes[0].MimeType = "image/png"
	nodes[1].FileName = "R&D <notes>.txt"
	nodes[2].IsLocked = true
	return nodes
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		opts    Options
		want    string
		wantErr bool
	}{
		{Options{Path: "out.svg"}, FormatSVG, false},
		{Options{Path: "out.PNG"}, FormatPNG, false},
		{Options{Path: "out.json"}, FormatJSON, false},
		{Options{Path: "out"}, FormatSVG, false},
		{Options{Path: "out.svg", Format: ".png"}, FormatPNG, false},
		{Options{Path: "out.pdf"}, "", true},
	}
	for _, tt := range tests {
		got, err := ResolveFormat(tt.opts)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ResolveFormat(%+v) = %q, %v; want %q, err=%v", tt.opts, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestSVGIsValidXMLWithEveryNode(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{SessionID: "s1", Nodes: sampleNodes(), Now: fixedNow}
	if err := RenderSVG(&buf, opts); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(buf.Bytes()))
	for {
		if _, err := dec.Token(); err != nil {
			if err.Error() == "EOF" {
				break
			}
			t.Fatalf("invalid XML: %v", err)
		}
	}

	out := buf.String()
	for _, n := range opts.Nodes {
		if !strings.Contains(out, `id="node-`+n.ID+`"`) {
			t.Errorf("node %s missing from SVG", n.ID)
		}
	}
	if !strings.Contains(out, "R&amp;D &lt;notes&gt;.txt") {
		t.Error("file name not escaped")
	}
	if !strings.Contains(out, "stroke-dasharray") {
		t.Error("locked node not dashed")
	}
	if !strings.Contains(out, "session: s1  nodes: 3  exported: 2026-05-01T12:00:00Z") {
		t.Error("header info missing")
	}
}

func TestLayoutKeepsRelativePositions(t *testing.T) {
	nodes := sampleNodes()
	nodes[0].Position = model.Position{X: -500, Y: -40}
	layout := buildLayout(Options{Nodes: nodes, Now: fixedNow})

	byID := map[string]layoutNode{}
	for _, n := range layout.Nodes {
		byID[n.Node.ID] = n
	}
	a, b := byID[nodes[0].ID], byID[nodes[1].ID]
	if a.X != padding || a.Y != padding+headerHeight {
		t.Errorf("leftmost node at (%v,%v)", a.X, a.Y)
	}
	if b.X-a.X != nodes[1].Position.X-nodes[0].Position.X {
		t.Errorf("relative x not preserved: %v", b.X-a.X)
	}
	if layout.Width < minWidth || layout.Height < minHeight {
		t.Errorf("size = %dx%d", layout.Width, layout.Height)
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "canvas.png")
	format, err := Save(Options{Path: path, Nodes: sampleNodes(), Now: fixedNow})
	if err != nil || format != FormatPNG {
		t.Fatalf("Save = %q, %v", format, err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() < minWidth {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")
	nodes := sampleNodes()
	if _, err := Save(Options{Path: path, SessionID: "s1", Nodes: nodes, Now: fixedNow}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	doc, err := ReadJSON(f)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if doc.SessionID != "s1" || doc.NodeCount != 3 || len(doc.Nodes) != 3 || doc.Bounds == nil {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Nodes[1].FileName != nodes[1].FileName || !doc.Nodes[2].IsLocked {
		t.Errorf("nodes = %+v", doc.Nodes)
	}
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONLines(&buf, sampleNodes()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.Contains(lines[0], `"file_name":"file-0.txt"`) {
		t.Errorf("lines = %q", lines)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	_, err := Save(Options{Path: filepath.Join(t.TempDir(), "x.svg")})
	if !errors.Is(err, ErrNoNodes) {
		t.Errorf("err = %v", err)
	}
	if _, err := Save(Options{Nodes: sampleNodes()}); err == nil {
		t.Error("missing path accepted")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 8); got != "héllo..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate = %q", got)
	}
}

func TestSaveWithHooks(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, hooks.ConfigDir), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := "hooks:\n  pre-export:\n    - command: 'test \"$FC_NODE_COUNT\" = 3'\n  post-export:\n    - command: 'cp \"$FC_EXPORT_PATH\" \"$FC_EXPORT_PATH.bak\"'\n"
	if err := os.WriteFile(filepath.Join(dir, hooks.ConfigDir, "hooks.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	r := hooks.Runner{Dir: dir}

	path := filepath.Join(t.TempDir(), "c.svg")
	if _, err := SaveWithHooks(Options{Path: path, Nodes: sampleNodes(), Now: fixedNow}, r); err != nil {
		t.Fatalf("SaveWithHooks: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("post-export hook did not run: %v", err)
	}

	// Two nodes fail the pre-export check, so nothing is written.
	blocked := filepath.Join(t.TempDir(), "blocked.svg")
	if _, err := SaveWithHooks(Options{Path: blocked, Nodes: sampleNodes()[:2], Now: fixedNow}, r); err == nil {
		t.Fatal("pre-export failure did not cancel")
	}
	if _, err := os.Stat(blocked); !os.IsNotExist(err) {
		t.Errorf("blocked export wrote a file: %v", err)
	}
}
