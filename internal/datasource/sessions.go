package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// SessionInfo summarises one canvas session stored in the database.
type SessionInfo struct {
	ID        string    `json:"id"`
	NodeCount int       `json:"node_count"`
	TotalSize int64     `json:"total_size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// String returns a human-readable description of the session.
func (s SessionInfo) String() string {
	return fmt.Sprintf("%s: %d nodes, %s, updated %s",
		s.ID, s.NodeCount, humanize.Bytes(uint64(max(s.TotalSize, 0))), humanize.Time(s.UpdatedAt))
}

// ListSessions returns every session with at least one node, most recently
// updated first. Timestamps are compared after parsing because stored
// RFC 3339 strings with fractional seconds do not sort lexically.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, file_size, updated_at FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*SessionInfo)
	for rows.Next() {
		var (
			id      string
			size    int64
			updated string
		)
		if err := rows.Scan(&id, &size, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info, ok := byID[id]
		if !ok {
			info = &SessionInfo{ID: id}
			byID[id] = info
		}
		info.NodeCount++
		info.TotalSize += size
		if t := parseTime(updated); t.After(info.UpdatedAt) {
			info.UpdatedAt = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionInfo, 0, len(byID))
	for _, info := range byID {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
