package export

import (
	"fmt"
	"time"

	"github.com/vanderheijden86/filecanvas/pkg/hooks"
)

// SaveWithHooks runs the pre-export hooks, writes the snapshot and then runs
// the post-export hooks. A failing pre-export hook cancels the export before
// anything is written.
func SaveWithHooks(opts Options, r hooks.Runner) (string, error) {
	format, err := ResolveFormat(opts)
	if err != nil {
		return "", err
	}
	if len(opts.Nodes) == 0 {
		return format, ErrNoNodes
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	ec := hooks.ExportContext{
		ExportPath:   opts.Path,
		ExportFormat: format,
		NodeCount:    len(opts.Nodes),
		Timestamp:    now(),
	}
	if err := r.BeforeExport(ec); err != nil {
		return format, fmt.Errorf("pre-export hook: %w", err)
	}
	if _, err := Save(opts); err != nil {
		return format, err
	}
	r.AfterExport(ec)
	return format, nil
}
