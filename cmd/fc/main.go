package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/filecanvas/internal/datasource"
	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/canvas"
	"github.com/vanderheijden86/filecanvas/pkg/config"
	"github.com/vanderheijden86/filecanvas/pkg/debug"
	"github.com/vanderheijden86/filecanvas/pkg/export"
	"github.com/vanderheijden86/filecanvas/pkg/hooks"
	"github.com/vanderheijden86/filecanvas/pkg/logging"
	"github.com/vanderheijden86/filecanvas/pkg/metrics"
	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/shortcuts"
	_ "github.com/vanderheijden86/filecanvas/pkg/ttyguard"
	"github.com/vanderheijden86/filecanvas/pkg/ui"
	"github.com/vanderheijden86/filecanvas/pkg/version"
	"github.com/vanderheijden86/filecanvas/pkg/watcher"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	configPath string
	session    string
	db         string
	imports    stringList
	at         string
	exportPath string
	list       bool
	sessions   bool
	metrics    bool
	noHooks    bool
	debug      bool
	version    bool
	help       bool
}

func newFlagSet(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("fc", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Config file (default: XDG config dir)")
	fs.StringVar(&o.session, "session", "", "Canvas session to open")
	fs.StringVar(&o.db, "db", "", "Database path")
	fs.Var(&o.imports, "import", "Upload files onto the canvas without the TUI (repeatable; trailing args are imported too)")
	fs.StringVar(&o.at, "at", "", "Stage position x,y for --import")
	fs.StringVar(&o.exportPath, "export", "", "Write a snapshot (.svg, .png or .json) and exit")
	fs.BoolVar(&o.list, "list", false, "Print the session's nodes as JSON lines and exit")
	fs.BoolVar(&o.sessions, "sessions", false, "List sessions stored in the database and exit")
	fs.BoolVar(&o.metrics, "metrics", false, "Print timing metrics as JSON on exit")
	fs.BoolVar(&o.noHooks, "no-hooks", false, "Skip .filecanvas/hooks.yaml")
	fs.BoolVar(&o.debug, "debug", false, "Write debug logs (same as FC_DEBUG=1)")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.BoolVar(&o.help, "help", false, "Show help")
	return fs
}

// parseArgs parses args into o. Non-flag arguments become import files so
// "--import a.pdf b.png --at 1,2" reads the way it is typed.
func parseArgs(fs *flag.FlagSet, o *options, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	for len(rest) > 0 {
		if strings.HasPrefix(rest[0], "-") && rest[0] != "-" {
			if err := fs.Parse(rest); err != nil {
				return err
			}
			rest = fs.Args()
			continue
		}
		o.imports = append(o.imports, rest[0])
		rest = rest[1:]
	}
	return nil
}

// parsePoint reads "x,y" into a stage position.
func parsePoint(s string) (model.Position, error) {
	if s == "" {
		return model.Position{}, nil
	}
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return model.Position{}, fmt.Errorf("invalid position %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	return model.Position{X: x, Y: y}, nil
}

func main() {
	var o options
	fs := newFlagSet(&o)
	if err := parseArgs(fs, &o, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if o.help {
		fmt.Println("Usage: fc [options] [files to import]")
		fmt.Println("\nAn infinite canvas of uploaded files in the terminal.")
		fs.SetOutput(os.Stdout)
		fs.PrintDefaults()
		os.Exit(0)
	}
	if o.version {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer func() { _ = logging.Sync() }()
	if o.debug {
		debug.SetEnabled(true)
	}

	if o.metrics {
		metrics.SetEnabled(true)
	}

	if err := run(o, cfg); err != nil {
		logging.L().Error("fc failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if o.metrics {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(metrics.Collect())
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(o options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	if o.session != "" {
		cfg.Session = o.session
	}
	if o.db != "" {
		cfg.Database = o.db
	}
	return cfg, cfg.Validate()
}

func run(o options, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := datasource.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if o.sessions {
		return printSessions(ctx, st)
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}
	cwd, _ := os.Getwd()
	runner := hooks.Runner{Dir: cwd, Disabled: o.noHooks}

	queue := &canvas.Queue{}
	c := canvas.New(canvas.Config{
		SessionID: cfg.Session,
		Upload: canvas.UploadConfig{
			SessionID: cfg.Session,
			Dir:       cfg.Blob.Dir,
			Offset:    cfg.Upload.Offset,
		},
	}, st, blobs, queue, logging.L())

	switch {
	case len(o.imports) > 0:
		return runImport(ctx, c, runner, o)
	case o.list:
		if err := c.Load(ctx); err != nil {
			return err
		}
		return export.WriteJSONLines(os.Stdout, c.Nodes.Nodes())
	case o.exportPath != "":
		return runExport(ctx, c, runner, o.exportPath)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("fc needs a terminal; use --list or --export for scripted output")
	}
	return runTUI(ctx, cfg, c, queue, blobs, runner)
}

// openBlobs builds the blob service for the configured backend.
func openBlobs(ctx context.Context, cfg config.Config) (*blob.Service, error) {
	policy := cfg.Upload.Policy()
	if cfg.Blob.Backend == config.BackendS3 {
		be, err := blob.NewS3(ctx, cfg.Blob.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 backend: %w", err)
		}
		return blob.NewService(be, policy), nil
	}
	be, err := blob.NewLocal(cfg.Blob.Root)
	if err != nil {
		return nil, fmt.Errorf("local backend: %w", err)
	}
	return blob.NewService(be, policy), nil
}

func printSessions(ctx context.Context, st *datasource.SQLiteStore) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Start one with 'fc --session <name>'.")
		return nil
	}
	for _, s := range sessions {
		fmt.Println(s.String())
	}
	return nil
}

func runImport(ctx context.Context, c *canvas.Canvas, runner hooks.Runner, o options) error {
	base, err := parsePoint(o.at)
	if err != nil {
		return err
	}
	var files []blob.File
	var failed int
	for _, p := range o.imports {
		f, err := blob.OpenLocal(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", p, err)
			failed++
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return errors.New("no readable files to import")
	}

	start := time.Now()
	res := c.Upload.UploadMultipleFiles(ctx, files, base)
	debug.LogTiming("import", time.Since(start))
	for _, err := range res.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
	}
	for _, n := range res.Nodes {
		fmt.Printf("  %s  %s\n", n.ID, n.FileName)
	}
	fmt.Println(res.Summary())
	runner.AfterUpload(c.SessionID(), res.Nodes)

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d path(s) could not be opened\n", failed)
	}
	if len(res.Nodes) == 0 {
		return errors.New("nothing was imported")
	}
	return nil
}

func runExport(ctx context.Context, c *canvas.Canvas, runner hooks.Runner, path string) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	format, err := export.SaveWithHooks(export.Options{
		Path:      path,
		Title:     "filecanvas: " + c.SessionID(),
		SessionID: c.SessionID(),
		Nodes:     c.Nodes.Nodes(),
	}, runner)
	if errors.Is(err, export.ErrNoNodes) {
		return fmt.Errorf("session %q has no nodes to export", c.SessionID())
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d nodes to %s (%s)\n", c.Nodes.Len(), path, format)
	return nil
}

func runTUI(ctx context.Context, cfg config.Config, c *canvas.Canvas, q *canvas.Queue, blobs *blob.Service, runner hooks.Runner) error {
	defer debug.LogEnterExit("tui")()
	log := logging.L()

	// Optional auto-quit for scripted smoke runs.
	if v := os.Getenv("FC_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
			defer cancel()
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.Load(ctx); err != nil {
		return err
	}

	w, err := watcher.NewWatcher(cfg.Database,
		watcher.WithOnError(func(err error) { log.Warn("watching database", zap.Error(err)) }),
	)
	if err != nil {
		return err
	}

	exportDir, _ := os.Getwd()
	m := ui.New(ctx, ui.Options{
		Canvas:    c,
		Queue:     q,
		Blobs:     blobs,
		Hooks:     runner,
		Watcher:   w,
		Platform:  shortcuts.DetectPlatform(cfg.UI.Platform),
		Minimap:   cfg.UI.ShowMinimap,
		ExportDir: filepath.Clean(exportDir),
		Logger:    log,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
