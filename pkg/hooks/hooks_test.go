package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

func writeHooks(t *testing.T, yml string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ConfigDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigDir, "hooks.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, e := range env {
		k, v, _ := strings.Cut(e, "=")
		m[k] = v
	}
	return m
}

func TestContextsToEnv(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	exp := envMap(ExportContext{ExportPath: "/tmp/c.svg", ExportFormat: "svg", NodeCount: 7, Timestamp: ts}.ToEnv())
	if exp["FC_EXPORT_PATH"] != "/tmp/c.svg" || exp["FC_EXPORT_FORMAT"] != "svg" || exp["FC_NODE_COUNT"] != "7" {
		t.Errorf("export env = %v", exp)
	}
	if exp["FC_TIMESTAMP"] != "2026-03-01T09:30:00Z" {
		t.Errorf("FC_TIMESTAMP = %q", exp["FC_TIMESTAMP"])
	}

	up := envMap(UploadContext{NodeID: "n1", FileName: "a.png", FileURL: "file:///b/a.png", SessionID: "s", Timestamp: ts}.ToEnv())
	if up["FC_NODE_ID"] != "n1" || up["FC_FILE_NAME"] != "a.png" || up["FC_FILE_URL"] != "file:///b/a.png" || up["FC_SESSION"] != "s" {
		t.Errorf("upload env = %v", up)
	}
}

func TestLoaderNoConfig(t *testing.T) {
	loader := NewLoader(WithProjectDir(t.TempDir()))
	if err := loader.Load(); err != nil {
		t.Fatalf("missing config: %v", err)
	}
	if loader.HasHooks() {
		t.Error("expected no hooks")
	}
}

func TestLoaderDefaults(t *testing.T) {
	dir := writeHooks(t, `
hooks:
  pre-export:
    - command: "true"
  post-upload:
    - name: thumb
      command: "echo $FC_FILE_NAME"
      timeout: 5s
    - command: "  "
  post-export:
    - command: "true"
      timeout: 2
`)
	loader := NewLoader(WithProjectDir(dir))
	if err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	pre := loader.GetHooks(PreExport)
	if len(pre) != 1 || pre[0].OnError != "fail" || pre[0].Timeout != DefaultTimeout || pre[0].Name != "pre-export-1" {
		t.Errorf("pre-export = %+v", pre)
	}
	up := loader.GetHooks(PostUpload)
	if len(up) != 1 || up[0].Name != "thumb" || up[0].OnError != "continue" || up[0].Timeout != 5*time.Second {
		t.Errorf("post-upload = %+v", up)
	}
	if post := loader.GetHooks(PostExport); len(post) != 1 || post[0].Timeout != 2*time.Second {
		t.Errorf("post-export = %+v", post)
	}
	if len(loader.Warnings()) != 1 {
		t.Errorf("warnings = %v", loader.Warnings())
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := writeHooks(t, "hooks: [")
	if err := NewLoader(WithProjectDir(dir)).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestHookInvalidTimeout(t *testing.T) {
	var h Hook
	if err := yaml.Unmarshal([]byte("command: x\ntimeout: soon\n"), &h); err == nil {
		t.Error("expected timeout error")
	}
}

func TestExecutorPostUploadSeesEnv(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	cfg := &Config{Hooks: HooksByPhase{PostUpload: []Hook{{
		Name:    "record",
		Command: `printf "%s %s" "$FC_NODE_ID" "$TARGET" > "$OUT"`,
		Env:     map[string]string{"OUT": out, "TARGET": "${FC_TEST_TARGET}"},
		Timeout: 5 * time.Second,
	}}}}
	t.Setenv("FC_TEST_TARGET", "thumbs")

	e := NewExecutor(cfg, UploadContext{NodeID: "n42", Timestamp: time.Now()})
	if err := e.RunPostUpload(); err != nil {
		t.Fatalf("RunPostUpload: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "n42 thumbs" {
		t.Errorf("hook output = %q", data)
	}
	if r := e.Results(); len(r) != 1 || !r[0].Success {
		t.Errorf("results = %+v", r)
	}
}

func TestExecutorPreExportFailureStops(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PreExport: []Hook{
		{Name: "check", Command: "echo nope >&2; exit 3", OnError: "fail", Timeout: 5 * time.Second},
		{Name: "never", Command: "true", OnError: "fail", Timeout: 5 * time.Second},
	}}}
	e := NewExecutor(cfg, ExportContext{})
	if err := e.RunPreExport(); err == nil {
		t.Fatal("expected error")
	}
	results := e.Results()
	if len(results) != 1 || results[0].Stderr != "nope" {
		t.Errorf("results = %+v", results)
	}
	if s := e.Summary(); !strings.HasPrefix(s, "hooks: 0 succeeded, 1 failed") {
		t.Errorf("Summary = %q", s)
	}
}

func TestExecutorContinueOnError(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PostExport: []Hook{
		{Name: "bad", Command: "exit 1", OnError: "continue", Timeout: 5 * time.Second},
		{Name: "good", Command: "echo ok", OnError: "continue", Timeout: 5 * time.Second},
	}}}
	e := NewExecutor(cfg, nil)
	if err := e.RunPostExport(); err != nil {
		t.Fatalf("RunPostExport: %v", err)
	}
	r := e.Results()
	if len(r) != 2 || r[1].Stdout != "ok" {
		t.Errorf("results = %+v", r)
	}
}

func TestExecutorTimeout(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PostUpload: []Hook{
		{Name: "slow", Command: "sleep 5", OnError: "fail", Timeout: 50 * time.Millisecond},
	}}}
	e := NewExecutor(cfg, nil)
	err := e.RunPostUpload()
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v", err)
	}
}

func TestRunHooks(t *testing.T) {
	if e, err := RunHooks(t.TempDir(), nil, false); err != nil || e != nil {
		t.Errorf("no config: e=%v err=%v", e, err)
	}
	dir := writeHooks(t, "hooks:\n  post-upload:\n    - command: \"true\"\n")
	if e, err := RunHooks(dir, nil, true); err != nil || e != nil {
		t.Errorf("noHooks: e=%v err=%v", e, err)
	}
	e, err := RunHooks(dir, UploadContext{}, false)
	if err != nil || e == nil {
		t.Fatalf("e=%v err=%v", e, err)
	}
	if len(e.config.Hooks.PostUpload) != 1 {
		t.Errorf("hooks = %+v", e.config.Hooks)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRunnerAfterUploadRunsPerNode(t *testing.T) {
	dir := writeHooks(t, `
hooks:
  post-upload:
    - command: 'echo "$FC_NODE_ID $FC_SESSION" >> "$FC_LOG"'
      env:
        FC_LOG: ${FC_TEST_LOG}
`)
	logPath := filepath.Join(t.TempDir(), "hooks.log")
	t.Setenv("FC_TEST_LOG", logPath)

	Runner{Dir: dir}.AfterUpload("s1", []model.Node{{ID: "a"}, {ID: "b"}})

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a s1\nb s1\n" {
		t.Errorf("log = %q", data)
	}
}

func TestRunnerBeforeExportCancels(t *testing.T) {
	dir := writeHooks(t, "hooks:\n  pre-export:\n    - command: \"test $FC_EXPORT_FORMAT = png\"\n")
	r := Runner{Dir: dir}
	if err := r.BeforeExport(ExportContext{ExportFormat: "svg"}); err == nil {
		t.Error("failing pre-export hook did not cancel")
	}
	if err := r.BeforeExport(ExportContext{ExportFormat: "png"}); err != nil {
		t.Errorf("passing pre-export hook: %v", err)
	}
	if err := (Runner{Dir: dir, Disabled: true}).BeforeExport(ExportContext{ExportFormat: "svg"}); err != nil {
		t.Errorf("disabled runner ran hooks: %v", err)
	}
}
