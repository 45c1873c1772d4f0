package export

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// Document is the JSON form of a canvas session.
type Document struct {
	SessionID  string       `json:"session_id"`
	ExportedAt time.Time    `json:"exported_at"`
	NodeCount  int          `json:"node_count"`
	Bounds     *model.Rect  `json:"bounds,omitempty"`
	Nodes      []model.Node `json:"nodes"`
}

// NewDocument builds the JSON document for opts.
func NewDocument(opts Options) Document {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	doc := Document{
		SessionID:  opts.SessionID,
		ExportedAt: now().UTC(),
		NodeCount:  len(opts.Nodes),
		Nodes:      opts.Nodes,
	}
	if doc.Nodes == nil {
		doc.Nodes = []model.Node{}
	}
	if r, ok := model.Bounds(opts.Nodes); ok {
		doc.Bounds = &r
	}
	return doc
}

// WriteJSON writes the session as one indented JSON document.
func WriteJSON(w io.Writer, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(opts)); err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	return nil
}

// WriteJSONLines writes one compact JSON object per node.
func WriteJSONLines(w io.Writer, nodes []model.Node) error {
	enc := json.NewEncoder(w)
	for _, n := range nodes {
		if err := enc.Encode(n); err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
	}
	return nil
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode canvas: %w", err)
	}
	return doc, nil
}
