package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vanderheijden86/filecanvas/pkg/logging"
	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// Result is the outcome of one hook run.
type Result struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs the configured hooks for one pipeline event.
type Executor struct {
	config *Config
	env    Env

	mu      sync.Mutex
	results []Result
}

// NewExecutor prepares hooks from config with env exposed to each command.
func NewExecutor(config *Config, env Env) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, env: env}
}

// RunPreExport runs pre-export hooks, stopping at the first failing hook whose
// on_error is "fail".
func (e *Executor) RunPreExport() error {
	return e.run(PreExport)
}

// RunPostExport runs every post-export hook.
func (e *Executor) RunPostExport() error {
	return e.run(PostExport)
}

// RunPostUpload runs every post-upload hook.
func (e *Executor) RunPostUpload() error {
	return e.run(PostUpload)
}

func (e *Executor) run(phase HookPhase) error {
	var firstErr error
	for _, hook := range e.config.Hooks.forPhase(phase) {
		res := e.runHook(phase, hook)
		e.mu.Lock()
		e.results = append(e.results, res)
		e.mu.Unlock()

		if res.Success {
			continue
		}
		logging.L().Warn("hook failed",
			zap.String("phase", string(phase)),
			zap.String("hook", hook.Name),
			zap.String("stderr", truncate(res.Stderr, 200)),
			zap.Error(res.Error))
		if hook.OnError == "fail" {
			err := fmt.Errorf("%s hook %q failed: %w", phase, hook.Name, res.Error)
			if phase == PreExport {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Executor) runHook(phase HookPhase, hook Hook) Result {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)
	cmd.Env = os.Environ()
	if e.env != nil {
		cmd.Env = append(cmd.Env, e.env.ToEnv()...)
	}
	for k, v := range hook.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Hook:     hook,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Error = fmt.Errorf("timed out after %v", timeout)
	case err != nil:
		res.Error = err
	default:
		res.Success = true
	}
	return res
}

// Results returns a copy of every result so far.
func (e *Executor) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// Summary describes the runs, e.g. "hooks: 2 succeeded, 1 failed".
func (e *Executor) Summary() string {
	results := e.Results()
	if len(results) == 0 {
		return ""
	}
	ok, failed := 0, 0
	var b strings.Builder
	for _, r := range results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "\n  %s (%s): %v", r.Hook.Name, r.Phase, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&b, ": %s", truncate(r.Stderr, 120))
		}
	}
	return fmt.Sprintf("hooks: %d succeeded, %d failed", ok, failed) + b.String()
}

// RunHooks loads hooks for projectDir and returns an executor bound to env.
// It returns nil, nil when noHooks is set or nothing is configured.
func RunHooks(projectDir string, env Env, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	loader := NewLoader(WithProjectDir(projectDir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		logging.L().Warn("hooks config", zap.String("warning", w))
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	return NewExecutor(loader.Config(), env), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// Runner runs the hooks of one project directory for fc's pipeline events.
// A zero Runner uses the working directory.
type Runner struct {
	Dir      string
	Disabled bool
}

// AfterUpload runs post-upload hooks once per created node. Failures are
// logged and never undo the upload.
func (r Runner) AfterUpload(sessionID string, nodes []model.Node) {
	for _, n := range nodes {
		e, err := RunHooks(r.Dir, UploadContext{
			NodeID:    n.ID,
			FileName:  n.FileName,
			FileURL:   n.FileURL,
			SessionID: sessionID,
			Timestamp: time.Now(),
		}, r.Disabled)
		if err != nil {
			logging.L().Warn("loading hooks", zap.Error(err))
			return
		}
		if e == nil {
			return
		}
		_ = e.RunPostUpload()
		logging.L().Debug("post-upload hooks", zap.String("node", n.ID), zap.String("summary", e.Summary()))
	}
}

// BeforeExport runs pre-export hooks; an error cancels the export.
func (r Runner) BeforeExport(ec ExportContext) error {
	e, err := RunHooks(r.Dir, ec, r.Disabled)
	if err != nil || e == nil {
		return err
	}
	return e.RunPreExport()
}

// AfterExport runs post-export hooks. Failures are logged only.
func (r Runner) AfterExport(ec ExportContext) {
	e, err := RunHooks(r.Dir, ec, r.Disabled)
	if err != nil {
		logging.L().Warn("loading hooks", zap.Error(err))
		return
	}
	if e != nil {
		_ = e.RunPostExport()
	}
}
