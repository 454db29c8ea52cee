package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/diagramsync/pkg/elements"
	"github.com/matzehuels/diagramsync/pkg/errors"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEntries() []Entry {
	return []Entry{
		NewEntry(KindTextual, State{SourceText: "graph TD\n    A --> B\n"}, base),
		NewEntry(KindVisual, State{Elements: []elements.Element{{ID: "r1", Type: elements.KindRectangle, Width: 10, Height: 10}}}, base.Add(time.Minute)),
		NewEntry(KindTextual, State{SourceText: "graph LR\n    C --> D\n", Title: "Login flow"}, base.Add(2*time.Minute)),
	}
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { store.Close() })
	return store
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   newFileStore(t),
		"redis":  newRedisStore(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entries := sampleEntries()
			for _, e := range entries {
				if err := store.Save(ctx, e); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			got, err := store.Get(ctx, entries[1].ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Type != KindVisual {
				t.Errorf("Get().Type = %q, want %q", got.Type, KindVisual)
			}
			if len(got.State.Elements) != 1 || got.State.Elements[0].ID != "r1" {
				t.Errorf("Get().State.Elements = %+v, want one element r1", got.State.Elements)
			}
			if !got.Timestamp.Equal(entries[1].Timestamp) {
				t.Errorf("Get().Timestamp = %v, want %v", got.Timestamp, entries[1].Timestamp)
			}
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entries := sampleEntries()
			for _, e := range entries {
				if err := store.Save(ctx, e); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			all, err := store.List(ctx, 0)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("List(0) returned %d entries, want 3", len(all))
			}
			want := []string{entries[2].ID, entries[1].ID, entries[0].ID}
			for i, e := range all {
				if e.ID != want[i] {
					t.Errorf("List()[%d].ID = %s, want %s", i, e.ID, want[i])
				}
			}

			limited, err := store.List(ctx, 2)
			if err != nil {
				t.Fatalf("List(2) error = %v", err)
			}
			if len(limited) != 2 || limited[0].ID != entries[2].ID {
				t.Errorf("List(2) = %d entries, want 2 starting with newest", len(limited))
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
			}
			if err := store.Delete(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("Delete(missing) error = %v, want NOT_FOUND", err)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entries := sampleEntries()
			for _, e := range entries {
				if err := store.Save(ctx, e); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}
			if err := store.Delete(ctx, entries[0].ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, entries[0].ID); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("Get() after Delete error = %v, want NOT_FOUND", err)
			}
			all, _ := store.List(ctx, 0)
			if len(all) != 2 {
				t.Errorf("List() after Delete = %d entries, want 2", len(all))
			}
		})
	}
}

func TestFileStoreSkipsJunk(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleEntries()[0]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Path(), "broken.json"), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.Path(), "notes.txt"), []byte("hi"), 0600); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() = %d entries, want 1", len(all))
	}
}

func TestRedisStoreSkipsMissingEntries(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	entries := sampleEntries()
	for _, e := range entries {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if err := store.client.Del(ctx, store.key(entries[1].ID)).Err(); err != nil {
		t.Fatal(err)
	}
	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() = %d entries, want 2", len(all))
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not a url"); err == nil {
		t.Error("NewRedisStore() error = nil, want error")
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("x", 100)
	tests := []struct {
		name string
		kind Kind
		st   State
		want string
	}{
		{"title wins", KindTextual, State{Title: "Checkout", SourceText: "graph TD\n A"}, "Checkout"},
		{"first statement", KindTextual, State{SourceText: "%% note\ngraph TD\n    A --> B\n"}, "A --> B"},
		{"empty source", KindTextual, State{}, "(empty)"},
		{"one element", KindVisual, State{Elements: make([]elements.Element, 1)}, "1 element"},
		{"many elements", KindVisual, State{Elements: make([]elements.Element, 4)}, "4 elements"},
		{"truncated", KindTextual, State{Title: long}, strings.Repeat("x", 77) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.kind, tt.st); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	local := time.Date(2026, 3, 1, 14, 0, 0, 0, time.FixedZone("CET", 3600))
	a := NewEntry(KindTextual, State{SourceText: "graph TD\n A"}, local)
	b := NewEntry(KindTextual, State{SourceText: "graph TD\n A"}, local)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("NewEntry() IDs = %q, %q, want distinct non-empty", a.ID, b.ID)
	}
	if a.Timestamp.Location() != time.UTC {
		t.Errorf("NewEntry().Timestamp location = %v, want UTC", a.Timestamp.Location())
	}
	if a.Preview != "A" {
		t.Errorf("NewEntry().Preview = %q, want %q", a.Preview, "A")
	}
}
