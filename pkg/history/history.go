// Package history persists snapshots of the diagram after significant
// changes.
//
// Every generation result and every loaded shape list is recorded as an
// [Entry] holding the full [State]. Backends:
//
//   - [MemoryStore] for tests and one-shot CLI runs
//   - [FileStore] for the CLI, one JSON file per entry
//   - [RedisStore] for the HTTP server
//   - [MongoStore] for deployments that keep history in MongoDB
//
// Lists are returned newest first.
package history

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/matzehuels/diagramsync/pkg/elements"
	"github.com/matzehuels/diagramsync/pkg/errors"
)

// Kind says which side of the diagram an entry came from.
type Kind string

const (
	KindTextual Kind = "textual"
	KindVisual  Kind = "visual"
)

// State is the application-level diagram document.
type State struct {
	SourceText string             `json:"sourceText"`
	Elements   []elements.Element `json:"elements"`
	Title      string             `json:"title,omitempty"`
}

// Entry is one persisted snapshot.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Kind      `json:"type"`
	Preview   string    `json:"preview"`
	State     State     `json:"state"`
}

// Store persists history entries.
type Store interface {
	Save(ctx context.Context, e Entry) error

	// Get returns a NOT_FOUND error for unknown IDs.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns up to limit entries, newest first. A limit of 0 or less
	// returns all entries.
	List(ctx context.Context, limit int) ([]Entry, error)

	Delete(ctx context.Context, id string) error
	Close() error
}

// DefaultLimit bounds List calls from the CLI and HTTP API.
const DefaultLimit = 50

const previewLen = 80

// NewEntry stamps a snapshot with a fresh ID.
func NewEntry(kind Kind, st State, now time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Type:      kind,
		Preview:   Preview(kind, st),
		State:     st,
	}
}

// Preview summarizes a state for listings: the title if set, otherwise the
// first statement line of the source or the element count.
func Preview(kind Kind, st State) string {
	if st.Title != "" {
		return truncate(st.Title)
	}
	if kind == KindVisual {
		if len(st.Elements) == 1 {
			return "1 element"
		}
		return strconv.Itoa(len(st.Elements)) + " elements"
	}
	for _, line := range strings.Split(st.SourceText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") || strings.HasPrefix(line, "graph") || strings.HasPrefix(line, "flowchart") {
			continue
		}
		return truncate(line)
	}
	return "(empty)"
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	r := []rune(s)
	return string(r[:previewLen-3]) + "..."
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "history entry %q not found", id)
}

// sortNewest orders entries newest first, breaking ties by ID.
func sortNewest(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

func limitEntries(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
