package ui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// previewLimit caps how much of a file is read for the preview pane.
const previewLimit = 64 << 10

// preview is the rendered content of one node.
type preview struct {
	nodeID string
	title  string
	body   string
}

// renderPreview builds the preview of n. Markdown goes through glamour,
// other text is shown as is, and everything else gets a metadata card.
func renderPreview(ctx context.Context, blobs *blob.Service, n model.Node, width int) preview {
	p := preview{nodeID: n.ID, title: n.FileName}
	meta := metadata(n)

	if blobs == nil || !isText(n) {
		p.body = meta
		return p
	}
	key, ok := blobs.KeyFromURL(n.FileURL)
	if !ok {
		p.body = meta
		return p
	}
	rc, err := blobs.Open(ctx, key)
	if err != nil {
		p.body = meta + "\n\n" + fmt.Sprintf("cannot read file: %v", err)
		return p
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, previewLimit))
	if err != nil || !utf8.Valid(data) {
		p.body = meta
		return p
	}

	text := string(data)
	if isMarkdown(n.FileName) {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(width-4, 20)),
		)
		if err == nil {
			if out, err := r.Render(text); err == nil {
				text = out
			}
		}
	}
	p.body = meta + "\n\n" + strings.TrimRight(text, "\n")
	return p
}

func metadata(n model.Node) string {
	lines := []string{
		"type:    " + orDash(n.MimeType),
		"size:    " + humanize.Bytes(uint64(max(n.FileSize, 0))),
		"added:   " + humanize.Time(n.CreatedAt),
		"url:     " + orDash(n.FileURL),
	}
	if n.Checksum != "" {
		lines = append(lines, "sha256:  "+n.Checksum)
	}
	if n.IsLocked {
		lines = append(lines, "locked")
	}
	return strings.Join(lines, "\n")
}

func isText(n model.Node) bool {
	return strings.HasPrefix(n.MimeType, "text/") || isMarkdown(n.FileName) ||
		n.MimeType == "application/json"
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// clipLines keeps the first n lines of s.
func clipLines(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
