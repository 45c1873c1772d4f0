package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/filecanvas/pkg/canvas"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns hex on TrueColor terminals and the terminal's own
// background otherwise.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns hex on ANSI256+ terminals and ANSI white below that.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}
)

// style slots used by the cell grid.
const (
	styleStage = iota
	styleGrid
	styleImage
	styleDocument
	styleTextFile
	styleArchive
	styleOther
	styleSelected
	styleLocked
	styleLabel
	styleMinimap
	styleCount
)

// Theme is the set of styles the terminal host renders with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Header    lipgloss.Style
	Status    lipgloss.Style
	Muted     lipgloss.Style
	Panel     lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Info      lipgloss.Style
	Cancelled lipgloss.Style

	// cells are indexed by the style slots above.
	cells [styleCount]lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{Renderer: r}

	t.Header = r.NewStyle().
		Background(ColorPrimary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Status = r.NewStyle().Foreground(ColorText)
	t.Muted = r.NewStyle().Foreground(ColorMuted)
	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	t.Help = r.NewStyle().Foreground(ColorText).Padding(1, 2).
		Border(lipgloss.DoubleBorder()).BorderForeground(ColorPrimary)
	t.Error = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.Success = r.NewStyle().Foreground(ColorSuccess)
	t.Info = r.NewStyle().Foreground(ColorInfo)
	t.Cancelled = r.NewStyle().Foreground(ColorWarning)

	t.cells[styleStage] = r.NewStyle()
	t.cells[styleGrid] = r.NewStyle().Foreground(ColorBorder)
	t.cells[styleImage] = r.NewStyle().Foreground(ThemeFg("#50FA7B"))
	t.cells[styleDocument] = r.NewStyle().Foreground(ThemeFg("#8BE9FD"))
	t.cells[styleTextFile] = r.NewStyle().Foreground(ThemeFg("#F1FA8C"))
	t.cells[styleArchive] = r.NewStyle().Foreground(ThemeFg("#FF79C6"))
	t.cells[styleOther] = r.NewStyle().Foreground(ColorMuted)
	t.cells[styleSelected] = r.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.cells[styleLocked] = r.NewStyle().Foreground(ColorWarning)
	t.cells[styleLabel] = r.NewStyle().Foreground(ColorText)
	t.cells[styleMinimap] = r.NewStyle().Foreground(ColorInfo)

	return t
}

// Notification styles a controller message by level.
func (t Theme) Notification(n canvas.Notification) string {
	switch n.Level {
	case canvas.LevelError:
		return t.Error.Render(n.Message)
	case canvas.LevelSuccess:
		return t.Success.Render(n.Message)
	default:
		return t.Info.Render(n.Message)
	}
}

// nodeStyle picks the border slot for a MIME type.
func nodeStyle(mimeType string) int {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return styleImage
	case strings.HasPrefix(mimeType, "text/"):
		return styleTextFile
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "tar"), strings.Contains(mimeType, "compressed"):
		return styleArchive
	case strings.HasPrefix(mimeType, "application/"):
		return styleDocument
	default:
		return styleOther
	}
}

// TestTheme returns a theme for tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
