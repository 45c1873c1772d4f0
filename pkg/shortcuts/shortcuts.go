// Package shortcuts maps key events to canvas commands.
//
// The primary modifier is Meta on Mac-class platforms and Ctrl elsewhere,
// decided once from the platform string. Handled events must not be passed on
// to the host's default handling; unmatched events are left untouched.
package shortcuts

import (
	"runtime"
	"strings"
)

// Command is an action bound to a key.
type Command int

const (
	None Command = iota
	SelectAll
	ClearSelection
	DeleteSelected
	Copy
	ZoomIn
	ZoomOut
	ZoomReset
)

var commandNames = map[Command]string{
	None:           "none",
	SelectAll:      "select-all",
	ClearSelection: "clear-selection",
	DeleteSelected: "delete-selected",
	Copy:           "copy",
	ZoomIn:         "zoom-in",
	ZoomOut:        "zoom-out",
	ZoomReset:      "zoom-reset",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "unknown"
}

// Focus describes the element holding keyboard focus.
type Focus int

const (
	FocusCanvas Focus = iota
	// FocusTextInput covers inputs, text areas and editable regions.
	FocusTextInput
	FocusOther
)

// KeyEvent is a key press with its modifiers and the editing context.
type KeyEvent struct {
	// Key is the key name: a single character, or "Escape", "Delete",
	// "Backspace" and so on.
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
	Alt   bool
	Focus Focus
	// HasTextSelection is true when the host has a non-empty text selection.
	HasTextSelection bool
}

// Platform identifies the modifier convention.
type Platform struct {
	Name string
	Mac  bool
}

// DetectPlatform classifies a platform string such as "MacIntel", "darwin",
// "iPhone" or "linux". An empty string means the running OS.
func DetectPlatform(s string) Platform {
	if s == "" {
		s = runtime.GOOS
	}
	l := strings.ToLower(s)
	mac := false
	for _, p := range []string{"mac", "darwin", "iphone", "ipad", "ipod"} {
		if strings.Contains(l, p) {
			mac = true
			break
		}
	}
	return Platform{Name: s, Mac: mac}
}

// PrimaryLabel is the name of the primary modifier for help text.
func (p Platform) PrimaryLabel() string {
	if p.Mac {
		return "cmd"
	}
	return "ctrl"
}

// Handler receives dispatched commands.
type Handler interface {
	SelectAll()
	ClearSelection()
	DeleteSelected()
	Copy()
	ZoomIn()
	ZoomOut()
	ZoomReset()
}

// Dispatcher resolves key events for one platform.
type Dispatcher struct {
	platform Platform
}

// NewDispatcher returns a dispatcher for platform.
func NewDispatcher(platform Platform) *Dispatcher {
	return &Dispatcher{platform: platform}
}

// Platform returns the platform the dispatcher was built for.
func (d *Dispatcher) Platform() Platform { return d.platform }

func (d *Dispatcher) primary(ev KeyEvent) bool {
	if d.platform.Mac {
		return ev.Meta
	}
	return ev.Ctrl
}

// Resolve returns the command bound to ev, or None.
func (d *Dispatcher) Resolve(ev KeyEvent) Command {
	key := ev.Key
	if len(key) == 1 {
		key = strings.ToLower(key)
	}

	if d.primary(ev) {
		switch key {
		case "a":
			return SelectAll
		case "c":
			if ev.HasTextSelection {
				return None
			}
			return Copy
		case "=", "+":
			return ZoomIn
		case "-":
			return ZoomOut
		case "0":
			return ZoomReset
		}
		return None
	}

	switch key {
	case "Escape":
		return ClearSelection
	case "Delete", "Backspace":
		if ev.Focus == FocusTextInput {
			return None
		}
		return DeleteSelected
	}
	return None
}

// Dispatch resolves ev and runs the matching handler method. It reports
// whether the event was handled, in which case the host must suppress its
// default behaviour.
func (d *Dispatcher) Dispatch(ev KeyEvent, h Handler) bool {
	cmd := d.Resolve(ev)
	switch cmd {
	case SelectAll:
		h.SelectAll()
	case ClearSelection:
		h.ClearSelection()
	case DeleteSelected:
		h.DeleteSelected()
	case Copy:
		h.Copy()
	case ZoomIn:
		h.ZoomIn()
	case ZoomOut:
		h.ZoomOut()
	case ZoomReset:
		h.ZoomReset()
	default:
		return false
	}
	return true
}
