package blob

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrValidation is the sentinel wrapped by every *ValidationError.
var ErrValidation = errors.New("file rejected by upload policy")

// ValidationError explains why a file was rejected before any transfer.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidationResult is the outcome of Policy.Validate.
type ValidationResult struct {
	IsValid  bool
	Error    string
	FileType string
	MimeType string
}

// Err returns a *ValidationError for invalid results and nil otherwise.
func (r ValidationResult) Err(fileName string) error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{FileName: fileName, Reason: r.Error}
}

// Policy bounds what may be uploaded.
type Policy struct {
	MinSize int64
	MaxSize int64
	// AllowedExtensions are lower-case and include the leading dot.
	AllowedExtensions []string
	// BlockedMimePrefixes reject whole MIME families regardless of extension.
	BlockedMimePrefixes []string
}

// DefaultMaxSize is the upload size limit when none is configured.
const DefaultMaxSize = 50 << 20

// DefaultPolicy allows common documents, images, text and archives up to
// DefaultMaxSize and blocks audio and video.
func DefaultPolicy() Policy {
	exts := make([]string, 0, len(knownTypes))
	for ext := range knownTypes {
		exts = append(exts, ext)
	}
	return Policy{
		MinSize:             1,
		MaxSize:             DefaultMaxSize,
		AllowedExtensions:   exts,
		BlockedMimePrefixes: []string{"video/", "audio/"},
	}
}

type fileType struct {
	mime     string
	category string
}

var knownTypes = map[string]fileType{
	".pdf":  {"application/pdf", "document"},
	".doc":  {"application/msword", "document"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "document"},
	".xls":  {"application/vnd.ms-excel", "spreadsheet"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "spreadsheet"},
	".ppt":  {"application/vnd.ms-powerpoint", "presentation"},
	".pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "presentation"},
	".txt":  {"text/plain", "text"},
	".md":   {"text/markdown", "text"},
	".csv":  {"text/csv", "spreadsheet"},
	".json": {"application/json", "data"},
	".yaml": {"application/yaml", "data"},
	".yml":  {"application/yaml", "data"},
	".png":  {"image/png", "image"},
	".jpg":  {"image/jpeg", "image"},
	".jpeg": {"image/jpeg", "image"},
	".gif":  {"image/gif", "image"},
	".webp": {"image/webp", "image"},
	".svg":  {"image/svg+xml", "image"},
	".zip":  {"application/zip", "archive"},
	".tar":  {"application/x-tar", "archive"},
	".gz":   {"application/gzip", "archive"},
}

// mediaTypes are recognised so the MIME block applies even where the system
// MIME table is missing.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
}

// MimeTypeOf guesses a MIME type from the file name.
func MimeTypeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := knownTypes[ext]; ok {
		return t.mime
	}
	if m, ok := mediaTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if i := strings.IndexByte(m, ';'); i >= 0 {
			m = m[:i]
		}
		return m
	}
	return "application/octet-stream"
}

func categoryOf(mimeType string) string {
	for _, t := range knownTypes {
		if t.mime == mimeType {
			return t.category
		}
	}
	if i := strings.IndexByte(mimeType, '/'); i > 0 {
		return mimeType[:i]
	}
	return "other"
}

// Validate checks f against the size bounds, the blocked MIME families and the
// extension allow-list, in that order.
func (p Policy) Validate(f File) ValidationResult {
	name := f.Name()
	size := f.Size()
	mimeType := MimeTypeOf(name)
	res := ValidationResult{MimeType: mimeType, FileType: categoryOf(mimeType)}

	switch {
	case size < p.MinSize:
		res.Error = fmt.Sprintf("file is too small (%s, minimum %s)",
			humanize.IBytes(uint64(max(size, 0))), humanize.IBytes(uint64(p.MinSize)))
		return res
	case p.MaxSize > 0 && size > p.MaxSize:
		res.Error = fmt.Sprintf("file is too large (%s, limit %s)",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.MaxSize)))
		return res
	}

	for _, prefix := range p.BlockedMimePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			res.Error = fmt.Sprintf("media files are not supported (%s)", mimeType)
			return res
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, a := range p.AllowedExtensions {
		if strings.EqualFold(a, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		if ext == "" {
			res.Error = "files without an extension are not allowed"
		} else {
			res.Error = fmt.Sprintf("file type %s is not allowed", ext)
		}
		return res
	}

	res.IsValid = true
	return res
}
