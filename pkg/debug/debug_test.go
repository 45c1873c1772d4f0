package debug_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/filecanvas/pkg/debug"
	"github.com/vanderheijden86/filecanvas/pkg/logging"
)

func TestLogFollowsEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fc.log")
	if err := logging.Init(logging.Config{Level: "info", Format: "json", OutputPath: path}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { debug.SetEnabled(false) })

	debug.SetEnabled(false)
	debug.Log("quiet %d", 1)

	debug.SetEnabled(true)
	if !debug.Enabled() {
		t.Fatal("not enabled")
	}
	debug.Log("loud %d", 2)
	debug.Dump("point", struct{ X, Y int }{3, 4})
	debug.LogEnterExit("step")()
	_ = logging.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "quiet 1") {
		t.Error("disabled message was logged")
	}
	for _, want := range []string{"loud 2", "{X:3 Y:4}", "-> step", "<- step"} {
		if !strings.Contains(out, want) {
			t.Errorf("log misses %q:\n%s", want, out)
		}
	}
}
