package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/filecanvas/pkg/shortcuts"
)

// Terminals have no Meta key. On mac platforms alt stands in for cmd so the
// cmd-style bindings stay reachable.
func keyEvent(msg tea.KeyMsg, p shortcuts.Platform) shortcuts.KeyEvent {
	s := msg.String()
	ev := shortcuts.KeyEvent{Focus: shortcuts.FocusCanvas}
	for {
		mod, rest, ok := strings.Cut(s, "+")
		if !ok || rest == "" {
			break
		}
		switch mod {
		case "ctrl":
			ev.Ctrl = true
		case "alt":
			if p.Mac {
				ev.Meta = true
			} else {
				ev.Alt = true
			}
		case "shift":
			ev.Shift = true
		default:
			ev.Key = s
			return ev
		}
		s = rest
	}
	switch s {
	case "esc":
		s = "Escape"
	case "delete":
		s = "Delete"
	case "backspace":
		s = "Backspace"
	case "enter":
		s = "Enter"
	case "tab":
		s = "Tab"
	}
	ev.Key = s
	return ev
}

// keyHint is one entry of the help overlay.
type keyHint struct {
	keys string
	desc string
}

func keyHints(p shortcuts.Platform) []keyHint {
	mod := p.PrimaryLabel()
	if p.Mac {
		mod = "alt"
	}
	return []keyHint{
		{"click", "select node (ctrl/alt toggles, shift extends)"},
		{"drag", "move node or selection; drag empty space to pan"},
		{"wheel", "zoom at pointer"},
		{"+ - 0", "zoom in, out, reset"},
		{"arrows hjkl", "pan"},
		{"f", "fit all nodes"},
		{mod + "+a", "select all"},
		{mod + "+c", "copy selection"},
		{"esc", "clear selection"},
		{"del backspace", "delete selection"},
		{"L", "lock / unlock selection"},
		{"u", "upload files"},
		{"x", "cancel newest upload"},
		{"c", "clear finished uploads"},
		{"p enter", "preview selected node"},
		{"e", "export SVG snapshot"},
		{"m", "toggle minimap"},
		{"r", "reload"},
		{"?", "toggle help"},
		{"q ctrl+q", "quit"},
	}
}
