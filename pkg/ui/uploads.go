package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"

	"github.com/vanderheijden86/filecanvas/pkg/canvas"
)

const (
	uploadPanelWidth = 44
	uploadNameWidth  = 22
	// uploadPanelMax caps how many entries the panel lists.
	uploadPanelMax = 6
)

// UploadPanel shows one progress bar per tracked upload.
type UploadPanel struct {
	bar   progress.Model
	theme Theme
}

// NewUploadPanel returns a panel drawn with theme.
func NewUploadPanel(theme Theme) UploadPanel {
	return UploadPanel{
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(uploadPanelWidth-4),
			progress.WithoutPercentage(),
		),
		theme: theme,
	}
}

// View renders entries newest last. It returns "" when there is nothing to
// show.
func (p UploadPanel) View(entries []canvas.UploadProgress) string {
	if len(entries) == 0 {
		return ""
	}
	skipped := 0
	if len(entries) > uploadPanelMax {
		skipped = len(entries) - uploadPanelMax
		entries = entries[skipped:]
	}

	active := 0
	for _, e := range entries {
		if e.Status == canvas.UploadUploading {
			active++
		}
	}

	var b strings.Builder
	title := fmt.Sprintf("Uploads (%d active)", active)
	if skipped > 0 {
		title += fmt.Sprintf(" +%d more", skipped)
	}
	b.WriteString(p.theme.Header.Render(title))
	for _, e := range entries {
		b.WriteByte('\n')
		b.WriteString(p.entryLine(e))
		b.WriteByte('\n')
		b.WriteString(p.bar.ViewAs(float64(e.Progress) / 100))
	}
	return p.theme.Panel.Render(b.String())
}

func (p UploadPanel) entryLine(e canvas.UploadProgress) string {
	name := truncateWidth(e.FileName, uploadNameWidth, "…")
	switch e.Status {
	case canvas.UploadCompleted:
		return p.theme.Success.Render("✓ " + name + "  " + humanize.Bytes(uint64(max(e.Total, 0))))
	case canvas.UploadError:
		msg := e.Error
		if msg == "" {
			msg = "failed"
		}
		return p.theme.Error.Render("✗ " + name + "  " + truncateWidth(msg, uploadPanelWidth-uploadNameWidth-6, "…"))
	case canvas.UploadCancelled:
		return p.theme.Cancelled.Render("⊘ " + name + "  cancelled")
	default:
		sizes := fmt.Sprintf("%s / %s", humanize.Bytes(uint64(max(e.Loaded, 0))), humanize.Bytes(uint64(max(e.Total, 0))))
		return p.theme.Status.Render(fmt.Sprintf("↑ %s  %s  %3d%%", name, sizes, e.Progress))
	}
}
