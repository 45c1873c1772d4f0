package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/filecanvas/pkg/logging"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fc.log")
	log, err := logging.New(logging.Config{Level: "warn", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("dropped")
	log.Warn("kept")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), `"msg":"kept"`) {
		t.Errorf("log = %s", data)
	}
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	if logging.L() == nil || logging.S() == nil {
		t.Fatal("nil global logger")
	}
	if logging.Or(nil) != logging.L() {
		t.Error("Or(nil) did not fall back to the global logger")
	}
}
