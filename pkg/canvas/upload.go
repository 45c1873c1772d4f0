package canvas

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
	"github.com/vanderheijden86/filecanvas/pkg/metrics"
	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// ErrUploadCancelled is returned for uploads cancelled by the user.
var ErrUploadCancelled = errors.New("upload cancelled")

// UploadStatus is the state of one tracked upload. Every status other than
// UploadUploading is terminal.
type UploadStatus string

const (
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadError     UploadStatus = "error"
	UploadCancelled UploadStatus = "cancelled"
)

// Terminal reports whether s can no longer change.
func (s UploadStatus) Terminal() bool { return s != UploadUploading }

// UploadProgress tracks one file.
type UploadProgress struct {
	FileID   string
	FileName string
	Loaded   int64
	Total    int64
	// Progress is a percentage, 0 to 100.
	Progress int
	Status   UploadStatus
	Error    string
}

// UploadConfig sets where uploads go.
type UploadConfig struct {
	SessionID string
	// Dir is the blob key prefix for uploaded files.
	Dir string
	// Offset shifts the drop position of each file in a batch by
	// index*Offset on both axes.
	Offset float64
}

// DefaultUploadOffset keeps batch-dropped nodes from overlapping exactly.
const DefaultUploadOffset = 20

// UploadController validates, transfers and registers files as nodes, keeping
// a progress entry per file until the host clears it.
type UploadController struct {
	deps Deps
	cfg  UploadConfig

	mu       sync.Mutex
	entries  map[string]*UploadProgress
	order    []string
	cancels  map[string]context.CancelFunc
	onChange func()
}

// NewUploadController returns a controller with no tracked uploads.
func NewUploadController(deps Deps, cfg UploadConfig) *UploadController {
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	return &UploadController{
		deps:    deps.withDefaults(),
		cfg:     cfg,
		entries: make(map[string]*UploadProgress),
		cancels: make(map[string]context.CancelFunc),
	}
}

// OnChange registers fn to run after any progress entry changes. fn is called
// without the controller's lock held, possibly from an upload goroutine.
func (c *UploadController) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *UploadController) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Progress returns a copy of every tracked entry in start order.
func (c *UploadController) Progress() []UploadProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UploadProgress, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.entries[id])
	}
	return out
}

// Entry returns the entry for fileID.
func (c *UploadController) Entry(fileID string) (UploadProgress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fileID]
	if !ok {
		return UploadProgress{}, false
	}
	return *e, true
}

// NewestActive returns the most recently started upload still in flight.
func (c *UploadController) NewestActive() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.order) - 1; i >= 0; i-- {
		if c.entries[c.order[i]].Status == UploadUploading {
			return c.order[i], true
		}
	}
	return "", false
}

// ClearProgress removes a terminal entry. In-flight entries are kept.
func (c *UploadController) ClearProgress(fileID string) bool {
	c.mu.Lock()
	e, ok := c.entries[fileID]
	if !ok || !e.Status.Terminal() {
		c.mu.Unlock()
		return false
	}
	c.dropLocked(fileID)
	c.mu.Unlock()
	c.changed()
	return true
}

// ClearFinished removes every terminal entry and returns how many went.
func (c *UploadController) ClearFinished() int {
	c.mu.Lock()
	var ids []string
	for _, id := range c.order {
		if c.entries[id].Status.Terminal() {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		c.dropLocked(id)
	}
	c.mu.Unlock()
	if len(ids) > 0 {
		c.changed()
	}
	return len(ids)
}

func (c *UploadController) dropLocked(id string) {
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// CancelUpload marks an in-flight upload cancelled at once and aborts its
// transfer. The upload goroutine then removes any stored object and creates
// no node. Terminal entries are left alone.
func (c *UploadController) CancelUpload(fileID string) bool {
	c.mu.Lock()
	e, ok := c.entries[fileID]
	if !ok || e.Status != UploadUploading {
		c.mu.Unlock()
		return false
	}
	e.Status = UploadCancelled
	cancel := c.cancels[fileID]
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.changed()
	return true
}

func (c *UploadController) begin(ctx context.Context, f blob.File) (string, context.Context) {
	id := uuid.NewString()
	uctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.entries[id] = &UploadProgress{
		FileID:   id,
		FileName: f.Name(),
		Total:    f.Size(),
		Status:   UploadUploading,
	}
	c.order = append(c.order, id)
	c.cancels[id] = cancel
	c.mu.Unlock()
	c.changed()
	return id, uctx
}

func (c *UploadController) end(id string) {
	c.mu.Lock()
	cancel := c.cancels[id]
	delete(c.cancels, id)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// reportProgress records transfer progress unless the entry already reached a
// terminal status.
func (c *UploadController) reportProgress(id string, p blob.Progress) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.Status != UploadUploading {
		c.mu.Unlock()
		return
	}
	e.Loaded, e.Total = p.Loaded, p.Total
	if p.Total > 0 {
		e.Progress = int(min(100, p.Loaded*100/p.Total))
	}
	c.mu.Unlock()
	c.changed()
}

// finish moves an uploading entry to status. It reports false when the entry
// was cancelled in the meantime.
func (c *UploadController) finish(id string, status UploadStatus, msg string) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.Status != UploadUploading {
		c.mu.Unlock()
		return false
	}
	e.Status = status
	e.Error = msg
	if status == UploadCompleted {
		e.Loaded = e.Total
		e.Progress = 100
	}
	c.mu.Unlock()
	c.changed()
	return true
}

func (c *UploadController) cancelled(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return ok && e.Status == UploadCancelled
}

// UploadFile uploads f and creates a node for it at pos.
//
// Invalid files fail before any transfer with a *blob.ValidationError. If the
// upload is cancelled the stored object is removed, no node is created, and
// ErrUploadCancelled is returned.
func (c *UploadController) UploadFile(ctx context.Context, f blob.File, pos model.Position) (model.Node, error) {
	if c.deps.Blobs == nil {
		return model.Node{}, errors.New("upload: no blob storage configured")
	}
	id, uctx := c.begin(ctx, f)
	defer c.end(id)
	log := c.deps.Logger.With(zap.String("op", "upload"), zap.String("file_id", id), zap.String("file", f.Name()))

	res := c.deps.Blobs.Validate(f)
	if !res.IsValid {
		c.finish(id, UploadError, res.Error)
		metrics.UploadsFailed.Inc()
		log.Warn("upload rejected", zap.String("reason", res.Error))
		notifyf(c.deps.Notifier, LevelError, "%s: %s", f.Name(), res.Error)
		return model.Node{}, res.Err(f.Name())
	}
	if c.cancelled(id) {
		return model.Node{}, c.onCancelled(ctx, log, "")
	}

	key := c.deps.Blobs.GenerateUniquePath(c.cfg.Dir, f.Name())
	done := metrics.Timer(metrics.UploadTransfer)
	stored, err := c.deps.Blobs.UploadWithIntegrityCheck(uctx, key, f, func(p blob.Progress) {
		c.reportProgress(id, p)
	})
	done()
	if c.cancelled(id) {
		return model.Node{}, c.onCancelled(ctx, log, key)
	}
	if err != nil {
		return model.Node{}, c.onFailed(id, log, f.Name(), "upload file", err)
	}

	node, err := c.deps.Store.CreateNode(ctx, c.cfg.SessionID, model.NodeData{
		FileName: f.Name(),
		FileURL:  stored.URL,
		FileSize: f.Size(),
		MimeType: res.MimeType,
		Checksum: stored.Checksum,
		Size:     model.DefaultNodeSize,
	}, pos)
	if err != nil {
		c.removeBlob(ctx, log, key)
		if c.cancelled(id) {
			return model.Node{}, c.onCancelled(ctx, log, "")
		}
		return model.Node{}, c.onFailed(id, log, f.Name(), "create node", err)
	}

	if !c.finish(id, UploadCompleted, "") {
		// Cancelled while the node was being created.
		if err := c.deps.Store.DeleteNode(context.WithoutCancel(ctx), node.ID); err != nil {
			log.Warn("remove node of cancelled upload", zap.String("node", node.ID), zap.Error(err))
		}
		return model.Node{}, c.onCancelled(ctx, log, key)
	}
	c.deps.Nodes.Add(node)
	metrics.UploadsCompleted.Inc()
	log.Info("uploaded file", zap.String("node", node.ID), zap.Int64("size", f.Size()))
	notifyf(c.deps.Notifier, LevelSuccess, "Uploaded %s", f.Name())
	return node, nil
}

func (c *UploadController) onCancelled(ctx context.Context, log *zap.Logger, key string) error {
	if key != "" {
		c.removeBlob(ctx, log, key)
	}
	metrics.UploadsCancelled.Inc()
	log.Info("upload cancelled")
	return ErrUploadCancelled
}

func (c *UploadController) onFailed(id string, log *zap.Logger, name, what string, err error) error {
	c.finish(id, UploadError, err.Error())
	metrics.UploadsFailed.Inc()
	log.Error(what, zap.Error(err))
	notifyf(c.deps.Notifier, LevelError, "Upload of %s failed: %v", name, err)
	return fmt.Errorf("%s %s: %w", what, name, err)
}

func (c *UploadController) removeBlob(ctx context.Context, log *zap.Logger, key string) {
	if err := c.deps.Blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("remove uploaded blob", zap.String("key", key), zap.Error(err))
	}
}

// BatchResult is the outcome of UploadMultipleFiles.
type BatchResult struct {
	Nodes  []model.Node
	Errors []error
	Total  int
}

// Summary describes the batch as "N of M completed, K failed".
func (r BatchResult) Summary() string {
	return fmt.Sprintf("%d of %d completed, %d failed", len(r.Nodes), r.Total, len(r.Errors))
}

// UploadMultipleFiles uploads files one after another, dropping the i-th file
// at base offset by i*Offset on both axes. Individual failures never abort the
// batch; they are collected in the result and summarised in one notification.
func (c *UploadController) UploadMultipleFiles(ctx context.Context, files []blob.File, base model.Position) BatchResult {
	res := BatchResult{Total: len(files)}
	offset := c.cfg.Offset
	if offset == 0 {
		offset = DefaultUploadOffset
	}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		d := float64(i) * offset
		pos := model.Position{X: base.X + d, Y: base.Y + d}
		node, err := c.UploadFile(ctx, f, pos)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Nodes = append(res.Nodes, node)
	}

	if len(res.Errors) > 0 {
		c.deps.Logger.Warn("batch upload finished with failures",
			zap.Int("completed", len(res.Nodes)), zap.Int("total", res.Total), zap.Int("failed", len(res.Errors)))
		notifyf(c.deps.Notifier, LevelError, "Upload: %s", res.Summary())
	} else if len(files) > 1 {
		notifyf(c.deps.Notifier, LevelSuccess, "Uploaded %s", plural(len(res.Nodes), "file"))
	}
	return res
}
