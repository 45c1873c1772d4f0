package canvas_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/canvas"
	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/testutil"
)

var errBoom = errors.New("backend unavailable")

type fixture struct {
	c     *canvas.Canvas
	store *testutil.NodeStore
	blobs *testutil.MemBackend
	queue *canvas.Queue
	logs  *observer.ObservedLogs
}

// newFixture loads a canvas over a 3x1 grid of nodes n0, n1, n2 at x = 0, 210,
// 420.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewNodeStore(testutil.NewDefault().Grid(3, 3, 10)...)
	be := testutil.NewMemBackend()
	core, logs := observer.New(zapcore.DebugLevel)
	q := &canvas.Queue{}
	c := canvas.New(canvas.Config{SessionID: "test", Width: 800, Height: 600},
		st, blob.NewService(be, blob.DefaultPolicy()), q, zap.New(core))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return &fixture{c: c, store: st, blobs: be, queue: q, logs: logs}
}

func (f *fixture) errorLogs() int {
	return f.logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}

func (f *fixture) lastNotification(t *testing.T) canvas.Notification {
	t.Helper()
	all := f.queue.Drain()
	if len(all) == 0 {
		t.Fatal("no notification raised")
	}
	return all[len(all)-1]
}

func TestLoadOrdersAndPrunesSelection(t *testing.T) {
	f := newFixture(t)
	testutil.AssertNodeCount(t, f.c.Nodes.Nodes(), 3)

	f.c.Selection.SelectMultiple([]string{"n0", "n2"})
	if err := f.store.DeleteNode(context.Background(), "n2"); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.c.Selection.IsSelected("n2") || !f.c.Selection.IsSelected("n0") {
		t.Errorf("selection after reload = %v", f.c.Selection.SelectedIDs())
	}
}

func TestLoadFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.store.Fail(testutil.OpList, errBoom)
	if err := f.c.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if f.errorLogs() != 1 {
		t.Errorf("error logs = %d, want 1", f.errorLogs())
	}
	testutil.AssertNodeCount(t, f.c.Nodes.Nodes(), 3)
}

func TestNodeAtUsesViewportTransform(t *testing.T) {
	f := newFixture(t)
	f.c.Viewport.UpdatePosition(100, 50)
	f.c.Viewport.UpdateScale(2)

	// Stage (215, 5) is inside n1 and renders at 215*2+100, 5*2+50.
	n, ok := f.c.NodeAt(vec(530, 60))
	if !ok || n.ID != "n1" {
		t.Fatalf("NodeAt = %v, %v; want n1", n.ID, ok)
	}
	if _, ok := f.c.NodeAt(vec(0, 0)); ok {
		t.Error("hit a node left of the canvas origin")
	}
}

func TestFitToContent(t *testing.T) {
	f := newFixture(t)
	if !f.c.FitToContent(10) {
		t.Fatal("FitToContent reported no nodes")
	}
	for _, n := range f.c.Nodes.Nodes() {
		tl := f.c.Viewport.StageToScreen(n.Position.Vec())
		if tl.X < 0 || tl.Y < 0 || tl.X > 800 || tl.Y > 600 {
			t.Errorf("%s renders off screen at %+v", n.ID, tl)
		}
	}
}

func TestToggleLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.c.Selection.SelectMultiple([]string{"n0", "n1"})

	if err := f.c.ToggleLock(ctx); err != nil {
		t.Fatalf("lock: %v", err)
	}
	for _, id := range []string{"n0", "n1"} {
		n, _ := f.c.Nodes.Get(id)
		stored, _ := f.store.Get(id)
		if !n.IsLocked || !stored.IsLocked {
			t.Errorf("%s not locked (local %v, stored %v)", id, n.IsLocked, stored.IsLocked)
		}
	}
	if f.store.Calls(testutil.OpUpdateMany) != 1 {
		t.Errorf("UpdateMultipleNodes calls = %d", f.store.Calls(testutil.OpUpdateMany))
	}

	f.store.Fail(testutil.OpUpdateMany, errBoom)
	if err := f.c.ToggleLock(ctx); !errors.Is(err, errBoom) {
		t.Fatalf("unlock err = %v", err)
	}
	for _, id := range []string{"n0", "n1"} {
		if n, _ := f.c.Nodes.Get(id); !n.IsLocked {
			t.Errorf("%s unlocked locally after failed write", id)
		}
	}
}

func TestCopySelection(t *testing.T) {
	f := newFixture(t)
	if got := f.c.CopySelection(); got != "" {
		t.Errorf("empty selection copied %q", got)
	}
	f.c.Selection.SelectMultiple([]string{"n1", "n0"})
	want := "file-0.txt\tmem://uploads/file-0.txt\nfile-1.txt\tmem://uploads/file-1.txt\n"
	if got := f.c.CopySelection(); got != want {
		t.Errorf("CopySelection = %q, want %q", got, want)
	}
}

func TestOptimisticRevertsOnFailure(t *testing.T) {
	state := "old"
	err := canvas.Optimistic(context.Background(), canvas.Change{
		Apply:  func() { state = "new" },
		Revert: func() { state = "old" },
	}, func(context.Context) error {
		if state != "new" {
			t.Error("remote ran before the change was applied")
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) || state != "old" {
		t.Errorf("err = %v, state = %s", err, state)
	}
}

func TestConfirmedAppliesOnlyAfterSuccess(t *testing.T) {
	applied := false
	err := canvas.Confirmed(context.Background(), func(context.Context) error { return errBoom }, func() { applied = true })
	if err == nil || applied {
		t.Fatalf("err = %v, applied = %v", err, applied)
	}
	if err := canvas.Confirmed(context.Background(), func(context.Context) error { return nil }, func() { applied = true }); err != nil || !applied {
		t.Fatalf("err = %v, applied = %v", err, applied)
	}
}

func TestQueueDrain(t *testing.T) {
	var q canvas.Queue
	q.Notify(canvas.Notification{Level: canvas.LevelInfo, Message: "a"})
	q.Notify(canvas.Notification{Level: canvas.LevelError, Message: "b"})
	got := q.Drain()
	if len(got) != 2 || got[1].Level.String() != "error" {
		t.Fatalf("Drain = %+v", got)
	}
	if len(q.Drain()) != 0 {
		t.Error("queue not emptied")
	}
}

func TestNodeListRemoveAndFilter(t *testing.T) {
	l := canvas.NewNodeList(testutil.NewDefault().Grid(4, 4, 0)...)
	if got := l.Remove("n1", "missing", "n3"); got != 2 {
		t.Fatalf("Remove = %d, want 2", got)
	}
	ids := l.Filter([]string{"n3", "n2", "n0"})
	if strings.Join(ids, ",") != "n2,n0" {
		t.Errorf("Filter = %v", ids)
	}
	top, ok := l.HitTest(model.Position{X: 1, Y: 1})
	if !ok || top.ID != "n0" {
		t.Errorf("HitTest = %v, %v", top.ID, ok)
	}
}
