package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/canvas"
)

type dialogKind int

const (
	dialogDelete dialogKind = iota
	dialogUpload
)

// dialog is a modal huh form. The form receives every message while the
// dialog is open; esc is handled here so it always cancels.
type dialog struct {
	kind dialogKind
	form *huh.Form

	confirmed bool
	paths     string

	done    bool
	aborted bool
}

func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithTheme(huh.ThemeDracula()).
		WithShowHelp(false).
		WithWidth(uploadPanelWidth + 16)
}

// newDeleteDialog asks to confirm p.
func newDeleteDialog(p canvas.PendingDeletion) *dialog {
	d := &dialog{kind: dialogDelete}
	title := "Delete this node?"
	if p.Kind == canvas.MultipleDeletion {
		title = fmt.Sprintf("Delete %d nodes?", len(p.NodeIDs))
	}
	d.form = newForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description("Files are removed from storage as well.").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&d.confirmed),
	))
	return d
}

// newUploadDialog asks for the files to upload.
func newUploadDialog() *dialog {
	d := &dialog{kind: dialogUpload}
	d.form = newForm(huh.NewGroup(
		huh.NewInput().
			Title("Upload files").
			Description("Paths separated by spaces. Files land at the canvas centre.").
			Placeholder("~/Pictures/a.png notes.md").
			Value(&d.paths).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("enter at least one path")
				}
				return nil
			}),
	))
	return d
}

func (d *dialog) Init() tea.Cmd {
	return d.form.Init()
}

// Update feeds msg to the form and records whether it finished.
func (d *dialog) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		d.done, d.aborted = true, true
		return nil
	}
	m, cmd := d.form.Update(msg)
	if f, ok := m.(*huh.Form); ok {
		d.form = f
	}
	switch d.form.State {
	case huh.StateCompleted:
		d.done = true
	case huh.StateAborted:
		d.done, d.aborted = true, true
	}
	return cmd
}

func (d *dialog) View() string {
	return d.form.View()
}

// accepted reports whether the user finished the dialog affirmatively.
func (d *dialog) accepted() bool {
	if !d.done || d.aborted {
		return false
	}
	if d.kind == dialogDelete {
		return d.confirmed
	}
	return true
}

// openFiles opens every path in the upload dialog. Paths that cannot be
// opened are returned as errors; the rest still upload.
func (d *dialog) openFiles() ([]blob.File, []error) {
	return openPaths(splitPaths(d.paths))
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Fields(s) {
		out = append(out, expandHome(p))
	}
	return out
}

func openPaths(paths []string) ([]blob.File, []error) {
	var files []blob.File
	var errs []error
	for _, p := range paths {
		f, err := blob.OpenLocal(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	return files, errs
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
