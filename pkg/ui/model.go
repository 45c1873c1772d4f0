// Package ui is fc's terminal host: a bubbletea program that draws the
// canvas as character cells and feeds mouse and key input to the canvas
// controllers.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/filecanvas/internal/datasource"
	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/canvas"
	"github.com/vanderheijden86/filecanvas/pkg/debug"
	"github.com/vanderheijden86/filecanvas/pkg/export"
	"github.com/vanderheijden86/filecanvas/pkg/gesture"
	"github.com/vanderheijden86/filecanvas/pkg/hooks"
	"github.com/vanderheijden86/filecanvas/pkg/metrics"
	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/shortcuts"
	"github.com/vanderheijden86/filecanvas/pkg/watcher"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

const (
	uploadTick  = 100 * time.Millisecond
	fitPadding  = 40
	panStep     = 4 // cells per arrow press
	previewCols = 48
)

// Options configures a Model.
type Options struct {
	Canvas   *canvas.Canvas
	Queue    *canvas.Queue
	Blobs    *blob.Service
	Hooks    hooks.Runner
	Watcher  *watcher.Watcher // optional
	Platform shortcuts.Platform
	Minimap  bool
	// ExportDir is where "e" writes snapshots.
	ExportDir string
	Theme     *Theme
	Logger    *zap.Logger
}

type (
	nodesLoadedMsg struct {
		err  error
		diff datasource.SnapshotDiff
		// external marks reloads triggered by another process writing the
		// database.
		external bool
	}
	dbChangedMsg  struct{}
	dragDoneMsg   struct{ err error }
	deleteDoneMsg struct{ err error }
	uploadDoneMsg struct{ result canvas.BatchResult }
	uploadTickMsg struct{}
	lockDoneMsg   struct{ err error }
	previewMsg    struct{ p preview }
	exportDoneMsg struct {
		path string
		err  error
	}
)

// dragState is the pointer side of an open drag: the node under the pointer,
// where on the node it was grabbed, and where the node would be now.
type dragState struct {
	nodeID string
	grab   r2.Vec
	pos    model.Position
	// final holds the drop positions while the store write is in flight.
	final map[string]model.Position
}

// Model is the bubbletea model of one canvas session.
type Model struct {
	ctx    context.Context
	canvas *canvas.Canvas
	queue  *canvas.Queue
	blobs  *blob.Service
	hooks  hooks.Runner
	watch  *watcher.Watcher
	keys   *shortcuts.Dispatcher
	input  *gesture.Recognizer
	theme  Theme
	panel  UploadPanel
	log    *zap.Logger

	exportDir string

	width, height int
	minimap       bool
	showHelp      bool
	ready         bool

	drag    *dragState
	dialog  *dialog
	preview *preview
	// reloadPending defers a database reload until a drag settles.
	reloadPending bool

	status      canvas.Notification
	statusIsSet bool
}

// New builds the model. ctx bounds every store and blob call it issues.
func New(ctx context.Context, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Queue == nil {
		opts.Queue = &canvas.Queue{}
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	return Model{
		ctx:       ctx,
		canvas:    opts.Canvas,
		queue:     opts.Queue,
		blobs:     opts.Blobs,
		hooks:     opts.Hooks,
		watch:     opts.Watcher,
		keys:      shortcuts.NewDispatcher(opts.Platform),
		input:     gesture.NewRecognizer(opts.Canvas.Viewport, r2.Vec{}),
		theme:     theme,
		panel:     NewUploadPanel(theme),
		log:       opts.Logger,
		exportDir: opts.ExportDir,
		minimap:   opts.Minimap,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(false), m.watchCmd())
}

func (m Model) loadCmd(external bool) tea.Cmd {
	c, ctx := m.canvas, m.ctx
	return func() tea.Msg {
		before := c.Nodes.Nodes()
		if err := c.Load(ctx); err != nil {
			return nodesLoadedMsg{err: err, external: external}
		}
		diff := datasource.DiffSnapshots(before, c.Nodes.Nodes())
		debug.Log("reload external=%v: %s", external, diff.Summary())
		return nodesLoadedMsg{diff: diff, external: external}
	}
}

// watchCmd waits for the next database change.
func (m Model) watchCmd() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	ch := m.watch.Changed()
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return dbChangedMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(uploadTick, func(time.Time) tea.Msg { return uploadTickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.dialog != nil {
		if !isResult(msg) {
			cmds = append(cmds, m.dialog.Update(msg))
			if m.dialog.done {
				cmds = append(cmds, m.closeDialog())
			}
			m.drainNotifications()
			return m, tea.Batch(cmds...)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case nodesLoadedMsg:
		switch {
		case msg.err != nil:
			m.setStatus(canvas.LevelError, "Could not load nodes: "+msg.err.Error())
		case msg.external && msg.diff.HasChanges():
			m.setStatus(canvas.LevelInfo, "Canvas updated: "+msg.diff.Summary())
		}
		if m.preview != nil && !m.canvas.Nodes.Has(m.preview.nodeID) {
			m.preview = nil
		}

	case dbChangedMsg:
		if m.drag != nil {
			m.reloadPending = true
		} else {
			cmds = append(cmds, m.loadCmd(true))
		}
		cmds = append(cmds, m.watchCmd())

	case dragDoneMsg:
		m.drag = nil
		if m.reloadPending {
			m.reloadPending = false
			cmds = append(cmds, m.loadCmd(true))
		}

	case deleteDoneMsg:
		if m.preview != nil && !m.canvas.Nodes.Has(m.preview.nodeID) {
			m.preview = nil
		}

	case uploadDoneMsg:
		m.log.Debug("upload batch finished", zap.String("summary", msg.result.Summary()))

	case uploadTickMsg:
		if _, active := m.canvas.Upload.NewestActive(); active {
			cmds = append(cmds, tickCmd())
		}

	case lockDoneMsg:

	case previewMsg:
		p := msg.p
		m.preview = &p

	case exportDoneMsg:
		switch {
		case errors.Is(msg.err, export.ErrNoNodes):
			m.setStatus(canvas.LevelInfo, "Nothing to export")
		case msg.err != nil:
			m.setStatus(canvas.LevelError, "Export failed: "+msg.err.Error())
		default:
			m.setStatus(canvas.LevelSuccess, "Exported "+msg.path)
		}
	}

	m.layout()
	m.drainNotifications()
	return m, tea.Batch(cmds...)
}

// isResult reports whether msg is one of the model's own async results, which
// must be handled even while a dialog is open.
func isResult(msg tea.Msg) bool {
	switch msg.(type) {
	case nodesLoadedMsg, dbChangedMsg, dragDoneMsg, deleteDoneMsg, uploadDoneMsg,
		uploadTickMsg, lockDoneMsg, previewMsg, exportDoneMsg, tea.WindowSizeMsg:
		return true
	}
	return false
}

func (m *Model) closeDialog() tea.Cmd {
	d := m.dialog
	m.dialog = nil
	switch d.kind {
	case dialogDelete:
		if !d.accepted() {
			m.canvas.Delete.CancelDelete()
			return nil
		}
		c, ctx := m.canvas, m.ctx
		return func() tea.Msg {
			return deleteDoneMsg{err: c.Delete.ConfirmDelete(ctx)}
		}
	case dialogUpload:
		if !d.accepted() {
			return nil
		}
		files, errs := d.openFiles()
		for _, err := range errs {
			m.queue.Notify(canvas.Notification{Level: canvas.LevelError, Message: err.Error()})
		}
		return m.uploadCmd(files)
	}
	return nil
}

func (m *Model) uploadCmd(files []blob.File) tea.Cmd {
	if len(files) == 0 {
		return nil
	}
	vp := m.canvas.Viewport
	base := model.PositionOf(vp.ScreenToStage(vp.Center()))
	c, ctx, runner := m.canvas, m.ctx, m.hooks
	upload := func() tea.Msg {
		res := c.Upload.UploadMultipleFiles(ctx, files, base)
		runner.AfterUpload(c.SessionID(), res.Nodes)
		return uploadDoneMsg{result: res}
	}
	return tea.Batch(upload, tickCmd())
}

// layout sizes the viewport to the canvas area left over by side panels.
func (m *Model) layout() {
	cols, rows := m.canvasSize()
	m.canvas.Viewport.SetDimensions(float64(cols*CellWidth), float64(rows*CellHeight))
}

// canvasSize is the canvas area in cells: everything but the header, the
// status line and any side panel.
func (m Model) canvasSize() (cols, rows int) {
	cols, rows = m.width, m.height-2
	if m.sidePanel() != "" {
		cols -= lipgloss.Width(m.sidePanel())
	}
	return max(cols, 0), max(rows, 0)
}

func (m Model) sidePanel() string {
	var parts []string
	if m.preview != nil {
		body := clipLines(m.preview.body, max(m.height-6, 1))
		parts = append(parts, m.theme.Panel.Width(previewCols).Render(
			m.theme.Header.Render(truncateWidth(m.preview.title, previewCols-4, "…"))+"\n"+body))
	}
	if up := m.panel.View(m.canvas.Upload.Progress()); up != "" {
		parts = append(parts, up)
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) setStatus(level canvas.Level, msg string) {
	m.status = canvas.Notification{Level: level, Message: msg}
	m.statusIsSet = true
}

func (m *Model) drainNotifications() {
	for _, n := range m.queue.Drain() {
		m.status = n
		m.statusIsSet = true
	}
}

// --- keys ----------------------------------------------------------------------

// keyHandler adapts the model to shortcuts.Handler, collecting commands.
type keyHandler struct {
	m    *Model
	cmds []tea.Cmd
}

func (h *keyHandler) SelectAll()      { h.m.canvas.Selection.SelectAll() }
func (h *keyHandler) ClearSelection() { h.m.canvas.Selection.ClearSelection() }
func (h *keyHandler) ZoomIn()         { h.m.canvas.Viewport.ZoomIn() }
func (h *keyHandler) ZoomOut()        { h.m.canvas.Viewport.ZoomOut() }
func (h *keyHandler) ZoomReset()      { h.m.canvas.Viewport.ResetZoom() }

func (h *keyHandler) DeleteSelected() {
	if !h.m.canvas.Delete.DeleteSelectedNodes() {
		return
	}
	p, _ := h.m.canvas.Delete.Pending()
	h.m.dialog = newDeleteDialog(p)
	h.cmds = append(h.cmds, h.m.dialog.Init())
}

func (h *keyHandler) Copy() {
	text := h.m.canvas.CopySelection()
	if text == "" {
		return
	}
	if err := writeClipboard(text); err != nil {
		h.m.setStatus(canvas.LevelError, "Clipboard unavailable: "+err.Error())
		return
	}
	n := h.m.canvas.Selection.Len()
	h.m.setStatus(canvas.LevelInfo, fmt.Sprintf("Copied %d %s", n, pluralWord(n, "node")))
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.showHelp {
		m.showHelp = false
		return nil
	}
	if m.preview != nil {
		switch msg.String() {
		case "esc", "p", "enter":
			m.preview = nil
			return nil
		}
	}

	h := &keyHandler{m: m}
	if m.keys.Dispatch(keyEvent(msg, m.keys.Platform()), h) {
		return tea.Batch(h.cmds...)
	}

	vp := m.canvas.Viewport
	switch msg.String() {
	case "q", "ctrl+q":
		return tea.Quit
	case "+", "=":
		vp.ZoomIn()
	case "-":
		vp.ZoomOut()
	case "0":
		vp.ResetZoom()
	case "left", "h":
		vp.UpdatePosition(vp.X+panStep*CellWidth, vp.Y)
	case "right", "l":
		vp.UpdatePosition(vp.X-panStep*CellWidth, vp.Y)
	case "up", "k":
		vp.UpdatePosition(vp.X, vp.Y+panStep*CellHeight)
	case "down", "j":
		vp.UpdatePosition(vp.X, vp.Y-panStep*CellHeight)
	case "f":
		m.canvas.FitToContent(fitPadding)
	case "L":
		return m.lockCmd()
	case "u":
		m.dialog = newUploadDialog()
		return m.dialog.Init()
	case "x":
		if id, ok := m.canvas.Upload.NewestActive(); ok {
			m.canvas.Upload.CancelUpload(id)
		}
	case "c":
		m.canvas.Upload.ClearFinished()
	case "p", "enter":
		return m.previewCmd()
	case "e":
		return m.exportCmd()
	case "m":
		m.minimap = !m.minimap
	case "r":
		return m.loadCmd(false)
	case "?":
		m.showHelp = true
	}
	return nil
}

func (m *Model) lockCmd() tea.Cmd {
	if m.canvas.Selection.Len() == 0 {
		return nil
	}
	c, ctx := m.canvas, m.ctx
	return func() tea.Msg {
		return lockDoneMsg{err: c.ToggleLock(ctx)}
	}
}

func (m *Model) previewCmd() tea.Cmd {
	sel := m.canvas.Selection.SelectedNodes()
	if len(sel) != 1 {
		m.setStatus(canvas.LevelInfo, "Select one node to preview")
		return nil
	}
	n, blobs, ctx := sel[0], m.blobs, m.ctx
	return func() tea.Msg {
		return previewMsg{p: renderPreview(ctx, blobs, n, previewCols)}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	opts := export.Options{
		Path:      filepath.Join(m.exportDir, "canvas-"+safeName(m.canvas.SessionID())+".svg"),
		Title:     "filecanvas: " + m.canvas.SessionID(),
		SessionID: m.canvas.SessionID(),
		Nodes:     m.canvas.Nodes.Nodes(),
	}
	runner := m.hooks
	return func() tea.Msg {
		_, err := export.SaveWithHooks(opts, runner)
		return exportDoneMsg{path: opts.Path, err: err}
	}
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, s)
}

// --- mouse ---------------------------------------------------------------------

// screenPoint maps a mouse cell to the canvas pixel at its centre. ok is
// false outside the canvas area.
func (m Model) screenPoint(msg tea.MouseMsg) (r2.Vec, bool) {
	cols, rows := m.canvasSize()
	col, row := msg.X, msg.Y-1
	if col < 0 || row < 0 || col >= cols || row >= rows {
		return r2.Vec{}, false
	}
	return CellToScreen(col, row), true
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	pt, inside := m.screenPoint(msg)

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if !inside {
			return nil
		}
		dy := 1.0
		if msg.Button == tea.MouseButtonWheelUp {
			dy = -1
		}
		m.input.Wheel(gesture.WheelEvent{Point: pt, DeltaY: dy})

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside || m.drag != nil {
			return nil
		}
		m.pointerDown(msg, pt)

	case msg.Action == tea.MouseActionMotion:
		if m.drag != nil && m.drag.final == nil {
			if inside {
				stage := m.canvas.Viewport.ScreenToStage(pt)
				m.drag.pos = model.PositionOf(r2.Sub(stage, m.drag.grab))
			}
			return nil
		}
		m.input.PointerMove(gesture.PointerEvent{Target: gesture.TargetStage, Point: pt})

	case msg.Action == tea.MouseActionRelease:
		if m.drag != nil && m.drag.final == nil {
			return m.endDrag()
		}
		m.input.PointerUp()
	}
	return nil
}

func (m *Model) pointerDown(msg tea.MouseMsg, pt r2.Vec) {
	sel := m.canvas.Selection
	n, onNode := m.canvas.NodeAt(pt)
	if !onNode {
		if !msg.Ctrl && !msg.Alt && !msg.Shift {
			sel.ClearSelection()
		}
		m.input.PointerDown(gesture.PointerEvent{Target: gesture.TargetStage, Point: pt})
		return
	}

	switch {
	case msg.Ctrl || msg.Alt:
		sel.SelectNode(n.ID, true)
	case msg.Shift:
		sel.SelectRange(n.ID)
	case !sel.IsSelected(n.ID):
		sel.SelectNode(n.ID, false)
	}

	if !m.canvas.Drag.HandleDragStart(canvas.DragEvent{NodeID: n.ID, Position: n.Position}) {
		return
	}
	stage := m.canvas.Viewport.ScreenToStage(pt)
	m.drag = &dragState{
		nodeID: n.ID,
		grab:   r2.Sub(stage, n.Position.Vec()),
		pos:    n.Position,
	}
}

func (m *Model) endDrag() tea.Cmd {
	d := m.drag
	d.final = m.canvas.Drag.Preview(d.pos)
	if d.final == nil {
		d.final = map[string]model.Position{}
	}
	c, ctx := m.canvas, m.ctx
	ev := canvas.DragEvent{NodeID: d.nodeID, Position: d.pos}
	debug.Dump("drag end", ev)
	return func() tea.Msg {
		return dragDoneMsg{err: c.Drag.HandleDragEnd(ctx, ev)}
	}
}

// --- view ----------------------------------------------------------------------

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}
	defer metrics.Timer(metrics.UIRender)()

	cols, rows := m.canvasSize()
	body := m.canvasView(cols, rows)
	if side := m.sidePanel(); side != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, side)
	}
	switch {
	case m.dialog != nil:
		body = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.dialog.View())
	case m.showHelp:
		body = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.helpView())
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.statusView())
}

func (m Model) canvasView(cols, rows int) string {
	selected := make(map[string]bool)
	for _, id := range m.canvas.Selection.SelectedIDs() {
		selected[id] = true
	}
	var moved map[string]model.Position
	if m.drag != nil {
		moved = m.drag.final
		if moved == nil {
			moved = m.canvas.Drag.Preview(m.drag.pos)
		}
	}
	g := drawCanvas(cols, rows, canvasView{
		vp:       m.canvas.Viewport,
		nodes:    m.canvas.Nodes.Nodes(),
		selected: selected,
		moved:    moved,
		minimap:  m.minimap,
	})
	return g.render(m.theme)
}

func (m Model) headerView() string {
	n := m.canvas.Nodes.Len()
	info := fmt.Sprintf("filecanvas  %s  %d %s", m.canvas.SessionID(), n, pluralWord(n, "node"))
	if s := m.canvas.Selection.Len(); s > 0 {
		info += fmt.Sprintf("  %d selected", s)
	}
	info += fmt.Sprintf("  %d%%", int(m.canvas.Viewport.Scale*100+0.5))
	return m.theme.Header.Width(m.width).Render(truncateWidth(info, max(m.width-2, 1), "…"))
}

func (m Model) statusView() string {
	hint := m.theme.Muted.Render("? help  q quit")
	if !m.statusIsSet {
		return hint
	}
	msg := truncateWidth(m.status.Message, max(m.width-lipgloss.Width(hint)-2, 1), "…")
	return m.theme.Notification(canvas.Notification{Level: m.status.Level, Message: msg}) + "  " + hint
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("Keys"))
	for _, h := range keyHints(m.keys.Platform()) {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-14s %s", h.keys, h.desc))
	}
	return m.theme.Help.Render(b.String())
}

func pluralWord(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
