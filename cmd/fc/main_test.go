package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/filecanvas/internal/datasource"
	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/canvas"
	"github.com/vanderheijden86/filecanvas/pkg/config"
	"github.com/vanderheijden86/filecanvas/pkg/hooks"
	"github.com/vanderheijden86/filecanvas/pkg/model"
)

func TestParseArgsCollectsImportFiles(t *testing.T) {
	tests := []struct {
		args    []string
		imports []string
		at      string
	}{
		{[]string{"--import", "a.pdf", "b.png", "--at", "100,100"}, []string{"a.pdf", "b.png"}, "100,100"},
		{[]string{"--at=1,2", "a.pdf"}, []string{"a.pdf"}, "1,2"},
		{[]string{"--import", "a.pdf", "--import", "b.png"}, []string{"a.pdf", "b.png"}, ""},
		{[]string{"--session", "s"}, nil, ""},
	}
	for _, tt := range tests {
		var o options
		if err := parseArgs(newFlagSet(&o), &o, tt.args); err != nil {
			t.Fatalf("parseArgs(%q): %v", tt.args, err)
		}
		if strings.Join(o.imports, "|") != strings.Join(tt.imports, "|") || o.at != tt.at {
			t.Errorf("parseArgs(%q) = imports %q at %q", tt.args, o.imports, o.at)
		}
	}
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	var o options
	fs := newFlagSet(&o)
	fs.SetOutput(&strings.Builder{})
	if err := parseArgs(fs, &o, []string{"a.pdf", "--bogus"}); err == nil {
		t.Error("unknown flag after a file was accepted")
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Position
		wantErr bool
	}{
		{"", model.Position{}, false},
		{"100,100", model.Position{X: 100, Y: 100}, false},
		{" -5.5 , 7 ", model.Position{X: -5.5, Y: 7}, false},
		{"12", model.Position{}, true},
		{"a,1", model.Position{}, true},
		{"1,b", model.Position{}, true},
	}
	for _, tt := range tests {
		got, err := parsePoint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePoint(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parsePoint(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("session: from-file\nupload:\n  offset: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(options{configPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session != "from-file" || cfg.Upload.Offset != 5 {
		t.Errorf("file values not applied: %+v", cfg)
	}

	db := filepath.Join(dir, "other.db")
	cfg, err = loadConfig(options{configPath: path, session: "flag", db: db})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session != "flag" || cfg.Database != db {
		t.Errorf("flags not applied: session %q db %q", cfg.Session, cfg.Database)
	}
}

func newTestCanvas(t *testing.T) (*canvas.Canvas, *datasource.SQLiteStore) {
	t.Helper()
	dir := t.TempDir()
	st, err := datasource.Open(filepath.Join(dir, "canvas.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.Blob.Root = filepath.Join(dir, "blobs")
	blobs, err := openBlobs(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := canvas.New(canvas.Config{
		SessionID: "cli",
		Upload:    canvas.UploadConfig{Dir: "uploads", Offset: canvas.DefaultUploadOffset},
	}, st, blobs, &canvas.Queue{}, nil)
	return c, st
}

func TestImportThenExport(t *testing.T) {
	c, st := newTestCanvas(t)
	ctx := context.Background()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	if err := os.WriteFile(a, []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("# beta"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := hooks.Runner{Disabled: true}
	err := runImport(ctx, c, runner, options{imports: stringList{a, b, filepath.Join(dir, "missing.txt")}, at: "100,100"})
	if err != nil {
		t.Fatalf("runImport: %v", err)
	}

	nodes, err := st.ListNodesBySession(ctx, "cli")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("stored %d nodes, want 2", len(nodes))
	}
	positions := map[model.Position]bool{}
	for _, n := range nodes {
		positions[n.Position] = true
	}
	if !positions[model.Position{X: 100, Y: 100}] || !positions[model.Position{X: 120, Y: 120}] {
		t.Errorf("positions = %v", positions)
	}

	out := filepath.Join(dir, "snap.json")
	if err := runExport(ctx, c, runner, out); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "a.txt") || !strings.Contains(string(data), "b.md") {
		t.Errorf("export misses nodes: %s", data)
	}
}

func TestImportNothingReadable(t *testing.T) {
	c, _ := newTestCanvas(t)
	err := runImport(context.Background(), c, hooks.Runner{Disabled: true}, options{imports: stringList{"/does/not/exist"}})
	if err == nil {
		t.Error("import of missing files succeeded")
	}
}

func TestExportEmptySession(t *testing.T) {
	c, _ := newTestCanvas(t)
	err := runExport(context.Background(), c, hooks.Runner{Disabled: true}, filepath.Join(t.TempDir(), "x.svg"))
	if err == nil || !strings.Contains(err.Error(), "no nodes") {
		t.Errorf("err = %v", err)
	}
}

func TestOpenBlobsLocal(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Blob.Root = t.TempDir()
	s, err := openBlobs(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s.Backend().Type() != "local" {
		t.Errorf("backend = %s", s.Backend().Type())
	}
	if _, ok := s.Backend().(*blob.LocalBackend); !ok {
		t.Error("not a local backend")
	}
}
