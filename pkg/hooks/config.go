// Package hooks runs user commands at fixed points of fc's pipeline.
// Hooks are configured via .filecanvas/hooks.yaml and run after a file is
// uploaded (post-upload) or around a snapshot export (pre-export,
// post-export).
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// PreExport runs before a snapshot is written. Failure cancels the export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after a snapshot is written. Failure is logged only.
	PostExport HookPhase = "post-export"
	// PostUpload runs after an uploaded file became a node. Failure is
	// logged only; the node stays.
	PostUpload HookPhase = "post-upload"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`                       // Run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`   // Default 30s
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // Values are ${VAR}-expanded
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" (default for pre) or "continue"
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty" json:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
	PostUpload []Hook `yaml:"post-upload,omitempty" json:"post-upload,omitempty"`
}

// Env is the per-run information handed to hook commands.
type Env interface {
	ToEnv() []string
}

// ExportContext describes a finished or pending snapshot export.
type ExportContext struct {
	ExportPath   string    // FC_EXPORT_PATH
	ExportFormat string    // FC_EXPORT_FORMAT: svg, png or json
	NodeCount    int       // FC_NODE_COUNT
	Timestamp    time.Time // FC_TIMESTAMP (RFC3339)
}

// ToEnv converts export context to environment variables
func (c ExportContext) ToEnv() []string {
	return []string{
		"FC_EXPORT_PATH=" + c.ExportPath,
		"FC_EXPORT_FORMAT=" + c.ExportFormat,
		fmt.Sprintf("FC_NODE_COUNT=%d", c.NodeCount),
		"FC_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// UploadContext describes a node created from an upload.
type UploadContext struct {
	NodeID    string // FC_NODE_ID
	FileName  string // FC_FILE_NAME
	FileURL   string // FC_FILE_URL
	SessionID string // FC_SESSION
	Timestamp time.Time
}

// ToEnv converts upload context to environment variables
func (c UploadContext) ToEnv() []string {
	return []string{
		"FC_NODE_ID=" + c.NodeID,
		"FC_FILE_NAME=" + c.FileName,
		"FC_FILE_URL=" + c.FileURL,
		"FC_SESSION=" + c.SessionID,
		"FC_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// ConfigDir is the per-project directory holding hooks.yaml.
const ConfigDir = ".filecanvas"

// Loader loads hook configuration from .filecanvas/hooks.yaml
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithProjectDir sets the project directory (default: current directory)
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// Load reads .filecanvas/hooks.yaml. A missing file means no hooks.
func (l *Loader) Load() error {
	configPath := filepath.Join(l.projectDir, ConfigDir, "hooks.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}

	config.Hooks.PreExport, l.warnings = normalizeHooks(config.Hooks.PreExport, PreExport, l.warnings)
	config.Hooks.PostExport, l.warnings = normalizeHooks(config.Hooks.PostExport, PostExport, l.warnings)
	config.Hooks.PostUpload, l.warnings = normalizeHooks(config.Hooks.PostUpload, PostUpload, l.warnings)

	l.config = &config
	return nil
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		if hook.OnError == "" {
			if phase == PreExport {
				hook.OnError = "fail"
			} else {
				hook.OnError = "continue"
			}
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	h := l.config.Hooks
	return len(h.PreExport)+len(h.PostExport)+len(h.PostUpload) > 0
}

// GetHooks returns hooks for a specific phase
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}
	return l.config.Hooks.forPhase(phase)
}

func (h HooksByPhase) forPhase(phase HookPhase) []Hook {
	switch phase {
	case PreExport:
		return h.PreExport
	case PostExport:
		return h.PostExport
	case PostUpload:
		return h.PostUpload
	default:
		return nil
	}
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// LoadDefault creates a loader for the current directory and loads it.
func LoadDefault() (*Loader, error) {
	loader := NewLoader()
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// UnmarshalYAML accepts timeouts as durations ("10s") or bare seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
		} else {
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr == nil {
				h.Timeout = time.Duration(seconds * float64(time.Second))
			} else {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
		}
	}

	return nil
}
