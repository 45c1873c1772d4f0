// Package config handles loading and saving fc configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/filecanvas/config.yaml
//   - Data:    ~/.local/share/filecanvas/ (canvas.db, local blobs)
//   - State:   ~/.local/state/filecanvas/ (log file)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/logging"
)

const appName = "filecanvas"

// Blob backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// BlobConfig selects where uploaded bytes are stored.
type BlobConfig struct {
	Backend string        `yaml:"backend,omitempty"` // local or s3
	Root    string        `yaml:"root,omitempty"`    // Local backend root directory
	Dir     string        `yaml:"dir,omitempty"`     // Key prefix for uploads
	S3      blob.S3Config `yaml:"s3,omitempty"`
}

// UploadConfig bounds what may be uploaded.
type UploadConfig struct {
	MinSize           int64    `yaml:"min_size,omitempty"`
	MaxSize           int64    `yaml:"max_size,omitempty"`
	AllowedExtensions []string `yaml:"allowed_extensions,omitempty"` // Empty means the built-in list
	Offset            float64  `yaml:"offset,omitempty"`             // Per-file offset in a batch
}

// UIConfig holds terminal preferences.
type UIConfig struct {
	Platform    string `yaml:"platform,omitempty"` // Overrides modifier detection, e.g. "darwin"
	ShowMinimap bool   `yaml:"show_minimap,omitempty"`
}

// Config is the top-level configuration for fc.
type Config struct {
	Session  string         `yaml:"session,omitempty"`
	Database string         `yaml:"database,omitempty"`
	Blob     BlobConfig     `yaml:"blob,omitempty"`
	Upload   UploadConfig   `yaml:"upload,omitempty"`
	UI       UIConfig       `yaml:"ui,omitempty"`
	Log      logging.Config `yaml:"log,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Session:  "default",
		Database: filepath.Join(DataDir(), "canvas.db"),
		Blob: BlobConfig{
			Backend: BackendLocal,
			Root:    filepath.Join(DataDir(), "blobs"),
			Dir:     "uploads",
		},
		Upload: UploadConfig{
			MinSize: 1,
			MaxSize: blob.DefaultMaxSize,
			Offset:  20,
		},
		Log: logging.Config{
			Level:      "info",
			Format:     "json",
			OutputPath: filepath.Join(StateDir(), "fc.log"),
		},
	}
}

// ConfigDir returns the XDG config directory for fc.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for fc.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for fc.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	cfg.Database = expandHome(cfg.Database)
	cfg.Blob.Root = expandHome(cfg.Blob.Root)
	cfg.Log.OutputPath = expandHome(cfg.Log.OutputPath)

	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Blob.Backend {
	case BackendLocal, "":
	case BackendS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("config: blob.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown blob backend %q", c.Blob.Backend)
	}
	if c.Upload.MaxSize > 0 && c.Upload.MinSize > c.Upload.MaxSize {
		return fmt.Errorf("config: upload.min_size %d exceeds upload.max_size %d", c.Upload.MinSize, c.Upload.MaxSize)
	}
	return nil
}

// Policy builds the upload policy. Configured extensions are normalised to a
// lower-case leading-dot form.
func (u UploadConfig) Policy() blob.Policy {
	p := blob.DefaultPolicy()
	if u.MinSize > 0 {
		p.MinSize = u.MinSize
	}
	if u.MaxSize > 0 {
		p.MaxSize = u.MaxSize
	}
	if len(u.AllowedExtensions) > 0 {
		p.AllowedExtensions = p.AllowedExtensions[:0]
		for _, ext := range u.AllowedExtensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			p.AllowedExtensions = append(p.AllowedExtensions, ext)
		}
	}
	return p
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
