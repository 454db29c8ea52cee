package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagramsync/pkg/elements"
	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/history"
	"github.com/matzehuels/diagramsync/pkg/observability"
	"github.com/matzehuels/diagramsync/pkg/render"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

// fakeRenderer lays nodes out in a single column, 100 units apart, so
// screen points map to nodes predictably at the default viewport.
type fakeRenderer struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	fail   map[string]error
	labels map[string]string
	calls  []string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		gates:  map[string]chan struct{}{},
		fail:   map[string]error{},
		labels: map[string]string{},
	}
}

func (f *fakeRenderer) block(source string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[source] = ch
	return ch
}

func (f *fakeRenderer) Render(ctx context.Context, source, theme string) (*scene.Scene, error) {
	f.mu.Lock()
	f.calls = append(f.calls, source)
	gate, failure := f.gates[source], f.fail[source]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failure != nil {
		return nil, failure
	}
	g, err := flowchart.Parse(source)
	if err != nil {
		return nil, render.Classify(err)
	}

	sc := &scene.Scene{Direction: g.Direction, Theme: theme, Edges: []scene.Edge{}}
	for i, n := range g.Nodes {
		label := n.Label
		f.mu.Lock()
		if l, ok := f.labels[n.ID]; ok {
			label = l
		}
		f.mu.Unlock()
		sc.Nodes = append(sc.Nodes, scene.Node{
			ID:     n.ID,
			Label:  label,
			Shape:  n.Shape,
			Bounds: viewport.Rect{X: 0, Y: float64(i) * 100, Width: 80, Height: 40},
		})
	}
	for _, e := range g.Edges {
		sc.Edges = append(sc.Edges, scene.Edge{
			From:   e.From,
			To:     e.To,
			Arrow:  e.Arrow,
			Points: []viewport.Point{{X: 40, Y: 40}, {X: 40, Y: 100}},
		})
	}
	sc.Bounds = sc.ContentBounds()
	return sc, nil
}

type fakeSink struct {
	mu      sync.Mutex
	updates [][]elements.Element
	fits    int
}

func (s *fakeSink) UpdateElements(els []elements.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, els)
}

func (s *fakeSink) Fit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fits++
}

type staleCounter struct {
	observability.NoopRenderHooks
	stale atomic.Int32
}

func (h *staleCounter) OnRenderStale(context.Context, uint64, uint64) {
	h.stale.Add(1)
}

var fixedNow = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

func newController(t *testing.T) (*Controller, *fakeRenderer, *fakeSink, *history.MemoryStore) {
	t.Helper()
	r := newFakeRenderer()
	sink := &fakeSink{}
	store := history.NewMemoryStore()
	c := New(Options{Renderer: r, History: store, Sink: sink, Now: fixedNow})
	return c, r, sink, store
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func labels(sc *scene.Scene) string {
	out := make([]string, len(sc.Nodes))
	for i, n := range sc.Nodes {
		out[i] = n.Label
	}
	return strings.Join(out, ",")
}

func TestStateString(t *testing.T) {
	tests := map[State]string{Idle: "idle", Rendering: "rendering", Editing: "editing", Error: "error", State(42): "unknown"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestSetSourceRenders(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()

	if err := c.SetSource(ctx, "graph TD\n    A[Start] --> B[End]\n"); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	c.Wait()

	if c.State() != Idle {
		t.Errorf("State() = %v, want %v", c.State(), Idle)
	}
	if got := labels(c.Scene()); got != "Start,End" {
		t.Errorf("Scene() labels = %q, want %q", got, "Start,End")
	}
	if c.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", c.Generation())
	}
}

func TestSetSourceRejectsControlCharacters(t *testing.T) {
	c, _, _, _ := newController(t)
	err := c.SetSource(context.Background(), "graph TD\n    A\x00")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetSource() error = %v, want INVALID_INPUT", err)
	}
	if c.Generation() != 0 {
		t.Errorf("Generation() = %d, want 0", c.Generation())
	}
}

func TestStaleRenderDiscarded(t *testing.T) {
	hooks := &staleCounter{}
	observability.SetRenderHooks(hooks)
	t.Cleanup(observability.Reset)

	c, r, _, _ := newController(t)
	ctx := context.Background()
	x := "graph TD\n    X[X]\n"
	y := "graph TD\n    Y[Y]\n"
	gate := r.block(x)

	c.SetSource(ctx, x)
	c.SetSource(ctx, y)

	waitFor(t, func() bool { return c.State() == Idle })
	if got := labels(c.Scene()); got != "Y" {
		t.Fatalf("Scene() labels = %q, want %q", got, "Y")
	}

	close(gate)
	c.Wait()

	if got := labels(c.Scene()); got != "Y" {
		t.Errorf("Scene() labels after slow render = %q, want %q", got, "Y")
	}
	if n := hooks.stale.Load(); n != 1 {
		t.Errorf("stale renders = %d, want 1", n)
	}
}

func TestRenderFailureAndRecovery(t *testing.T) {
	c, r, _, _ := newController(t)
	ctx := context.Background()
	bad := "graph TD\n    A --> B\n"
	r.fail[bad] = fmt.Errorf("trouble in init_rank")

	c.SetSource(ctx, bad)
	c.Wait()

	if c.State() != Error {
		t.Fatalf("State() = %v, want %v", c.State(), Error)
	}
	if !errors.Is(c.Err(), errors.ErrCodeRender) {
		t.Errorf("Err() = %v, want RENDER_FAILED", c.Err())
	}
	if got := errors.UserMessage(c.Err()); got != render.LayoutFailedMessage {
		t.Errorf("UserMessage(Err()) = %q, want %q", got, render.LayoutFailedMessage)
	}
	if !c.Scene().IsEmpty() {
		t.Error("Scene() after failure is not empty")
	}
	if c.Source() != bad {
		t.Errorf("Source() = %q, want source kept after failure", c.Source())
	}

	for _, src := range []string{"", "   \n\t"} {
		c.SetSource(ctx, bad)
		c.Wait()
		c.SetSource(ctx, src)
		c.Wait()
		if c.State() != Idle || c.Err() != nil {
			t.Errorf("SetSource(%q): State() = %v, Err() = %v, want idle and nil", src, c.State(), c.Err())
		}
		if !c.Scene().IsEmpty() {
			t.Errorf("SetSource(%q): Scene() is not empty", src)
		}
	}
}

func TestToggleOrientationRoundTrip(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()
	src := "graph TD\nA-->B"

	c.SetSource(ctx, src)
	c.Wait()
	if err := c.ToggleOrientation(ctx); err != nil {
		t.Fatalf("ToggleOrientation() error = %v", err)
	}
	c.Wait()
	if got := c.Source(); got != "graph LR\nA-->B" {
		t.Errorf("Source() after one toggle = %q", got)
	}
	if got := c.Scene().Direction; got != flowchart.DirLR {
		t.Errorf("Scene().Direction = %q, want %q", got, flowchart.DirLR)
	}
	if err := c.ToggleOrientation(ctx); err != nil {
		t.Fatalf("ToggleOrientation() error = %v", err)
	}
	c.Wait()
	if got := c.Source(); got != src {
		t.Errorf("Source() after two toggles = %q, want %q", got, src)
	}
}

func TestCommandsAllowedFromError(t *testing.T) {
	c, r, _, _ := newController(t)
	ctx := context.Background()
	bad := "graph TD\n    A --> B\n"
	r.fail[bad] = fmt.Errorf("no suitable point")

	c.SetSource(ctx, bad)
	c.Wait()
	if err := c.ToggleOrientation(ctx); err != nil {
		t.Fatalf("ToggleOrientation() from error state = %v", err)
	}
	c.Wait()
	if c.State() != Idle {
		t.Errorf("State() = %v, want %v", c.State(), Idle)
	}
}

func TestCommandsBusyWhileRendering(t *testing.T) {
	c, r, _, _ := newController(t)
	ctx := context.Background()
	src := "graph TD\n    A[One]\n"
	gate := r.block(src)
	defer c.Wait()
	defer close(gate)

	c.SetSource(ctx, src)
	if c.State() != Rendering {
		t.Fatalf("State() = %v, want %v", c.State(), Rendering)
	}
	if err := c.ToggleOrientation(ctx); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("ToggleOrientation() error = %v, want BUSY", err)
	}
	if _, err := c.InjectShape(ctx, "circle", ""); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("InjectShape() error = %v, want BUSY", err)
	}
	if _, err := c.OpenEdit(ctx, viewport.Point{X: 10, Y: 10}); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("OpenEdit() error = %v, want BUSY", err)
	}
}

func TestInjectShape(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()

	id, err := c.InjectShape(ctx, "diamond", "Decide")
	if err != nil {
		t.Fatalf("InjectShape() error = %v", err)
	}
	c.Wait()
	if id != "N1" {
		t.Errorf("InjectShape() id = %q, want N1", id)
	}
	if got := c.Source(); got != "graph TD\n    N1{Decide}\n" {
		t.Errorf("Source() = %q", got)
	}
	if n, ok := c.Scene().Node("N1"); !ok || n.Label != "Decide" {
		t.Errorf("Scene().Node(N1) = %+v, %v", n, ok)
	}

	if _, err := c.InjectShape(ctx, "star", ""); !errors.Is(err, errors.ErrCodeInvalidShape) {
		t.Errorf("InjectShape(star) error = %v, want INVALID_SHAPE", err)
	}
}

func TestEditCommitFirstMatch(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()
	c.SetSource(ctx, "graph TD\n    A[Box]\n    B[Box]\n")
	c.Wait()

	s, err := c.OpenEdit(ctx, viewport.Point{X: 10, Y: 110})
	if err != nil || s == nil {
		t.Fatalf("OpenEdit() = %v, %v", s, err)
	}
	if s.NodeID != "B" || s.Label != "Box" {
		t.Errorf("OpenEdit() session = %+v, want node B labelled Box", s)
	}
	if c.State() != Editing {
		t.Errorf("State() = %v, want %v", c.State(), Editing)
	}

	c.UpdateDraft("Square")
	changed, err := c.CommitEdit(ctx)
	if err != nil || !changed {
		t.Fatalf("CommitEdit() = %v, %v, want true, nil", changed, err)
	}
	c.Wait()

	want := "graph TD\n    A[Square]\n    B[Box]\n"
	if got := c.Source(); got != want {
		t.Errorf("Source() = %q, want %q", got, want)
	}
	if c.ActiveEdit() != nil {
		t.Error("ActiveEdit() != nil after commit")
	}
	if c.State() != Idle {
		t.Errorf("State() = %v, want %v", c.State(), Idle)
	}
}

func TestEditCommitFailuresCloseSession(t *testing.T) {
	tests := []struct {
		name     string
		shown    string
		draft    string
		wantCode errors.Code
	}{
		{"invalid draft", "", "a[b", errors.ErrCodeInvalidLabel},
		{"empty draft", "", "   ", errors.ErrCodeInvalidLabel},
		{"label not in source", "Shown elsewhere", "Renamed", errors.ErrCodePatchNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := newFakeRenderer()
			c := New(Options{Renderer: r, Now: fixedNow, Logger: log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})})
			ctx := context.Background()
			src := "graph TD\n    A[Box]\n"
			if tt.shown != "" {
				r.labels["A"] = tt.shown
			}
			c.SetSource(ctx, src)
			c.Wait()

			if _, err := c.OpenEdit(ctx, viewport.Point{X: 5, Y: 5}); err != nil {
				t.Fatal(err)
			}
			c.UpdateDraft(tt.draft)
			changed, err := c.CommitEdit(ctx)
			if changed || err != nil {
				t.Errorf("CommitEdit() = %v, %v, want false, nil", changed, err)
			}
			if c.Source() != src {
				t.Errorf("Source() = %q, want unchanged", c.Source())
			}
			if c.State() != Idle || c.ActiveEdit() != nil {
				t.Errorf("State() = %v, ActiveEdit() = %v, want idle with no session", c.State(), c.ActiveEdit())
			}
			if !strings.Contains(buf.String(), string(tt.wantCode)) {
				t.Errorf("log = %q, want code %v", buf.String(), tt.wantCode)
			}
		})
	}
}

func TestSetThemeWhileEditingRendersAfterEdit(t *testing.T) {
	tests := []struct {
		name  string
		close func(ctx context.Context, c *Controller)
	}{
		{"cancel", func(ctx context.Context, c *Controller) { c.CancelEdit(ctx) }},
		{"unchanged commit", func(ctx context.Context, c *Controller) { c.CommitEdit(ctx) }},
		{"rejected commit", func(ctx context.Context, c *Controller) {
			c.UpdateDraft("a]b")
			c.CommitEdit(ctx)
		}},
		{"commit", func(ctx context.Context, c *Controller) {
			c.UpdateDraft("Renamed")
			c.CommitEdit(ctx)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, _ := newController(t)
			ctx := context.Background()
			c.SetSource(ctx, "graph TD\n    A[Box]\n")
			c.Wait()

			if _, err := c.OpenEdit(ctx, viewport.Point{X: 5, Y: 5}); err != nil {
				t.Fatal(err)
			}
			if err := c.SetTheme(ctx, render.ThemeDark); err != nil {
				t.Fatalf("SetTheme() error = %v", err)
			}
			if got := c.Scene().Theme; got != render.ThemeLight {
				t.Errorf("Scene().Theme while editing = %v, want %v", got, render.ThemeLight)
			}

			tt.close(ctx, c)
			c.Wait()
			if got := c.Scene().Theme; got != render.ThemeDark {
				t.Errorf("Scene().Theme = %v, want %v", got, render.ThemeDark)
			}
			if c.State() != Idle {
				t.Errorf("State() = %v, want %v", c.State(), Idle)
			}
		})
	}
}

func TestOpenEditPanModeAndMiss(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()
	c.SetSource(ctx, "graph TD\n    A[Box]\n")
	c.Wait()

	if s, err := c.OpenEdit(ctx, viewport.Point{X: 500, Y: 500}); s != nil || err != nil {
		t.Errorf("OpenEdit(miss) = %v, %v, want nil, nil", s, err)
	}
	c.SetPanMode(true)
	if s, err := c.OpenEdit(ctx, viewport.Point{X: 5, Y: 5}); s != nil || err != nil {
		t.Errorf("OpenEdit(pan mode) = %v, %v, want nil, nil", s, err)
	}
	if c.State() != Idle {
		t.Errorf("State() = %v, want %v", c.State(), Idle)
	}
}

func TestSetSourceCancelsEdit(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()
	c.SetSource(ctx, "graph TD\n    A[Box]\n")
	c.Wait()
	if _, err := c.OpenEdit(ctx, viewport.Point{X: 5, Y: 5}); err != nil {
		t.Fatal(err)
	}

	c.SetSource(ctx, "graph TD\n    A[Other]\n")
	if c.ActiveEdit() != nil {
		t.Error("ActiveEdit() != nil after SetSource")
	}
	c.Wait()
	if c.State() != Idle {
		t.Errorf("State() = %v, want %v", c.State(), Idle)
	}
}

func TestLoadShapes(t *testing.T) {
	c, _, sink, store := newController(t)
	ctx := context.Background()

	els, err := c.LoadShapes(ctx, []byte("```json\n[{\"type\":\"rectangle\"}]\n```"))
	if err != nil {
		t.Fatalf("LoadShapes() error = %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("LoadShapes() = %d elements, want 1", len(els))
	}
	el := els[0]
	if el.X != 0 || el.Y != 0 || el.Width != 100 || el.Height != 50 {
		t.Errorf("LoadShapes() geometry = (%v,%v,%v,%v), want (0,0,100,50)", el.X, el.Y, el.Width, el.Height)
	}
	if got := c.Snapshot().Elements; len(got) != 1 || got[0].ID != el.ID {
		t.Errorf("Snapshot().Elements = %+v", got)
	}
	if len(sink.updates) != 1 || sink.fits != 1 {
		t.Errorf("sink updates = %d, fits = %d, want 1, 1", len(sink.updates), sink.fits)
	}

	entries, _ := store.List(ctx, 0)
	if len(entries) != 1 || entries[0].Type != history.KindVisual {
		t.Errorf("history = %+v, want one visual entry", entries)
	}
}

func TestLoadShapesSchemaErrorLeavesState(t *testing.T) {
	c, _, sink, store := newController(t)
	ctx := context.Background()
	if _, err := c.LoadShapes(ctx, []byte(`[{"type":"ellipse"}]`)); err != nil {
		t.Fatal(err)
	}
	before := c.Snapshot()

	_, err := c.LoadShapes(ctx, []byte("{not an array}"))
	if !errors.Is(err, errors.ErrCodeInvalidSchema) {
		t.Fatalf("LoadShapes() error = %v, want INVALID_SCHEMA", err)
	}
	after := c.Snapshot()
	if len(after.Elements) != len(before.Elements) || after.Elements[0].ID != before.Elements[0].ID {
		t.Errorf("Snapshot() changed after schema error: %+v", after.Elements)
	}
	if len(sink.updates) != 1 {
		t.Errorf("sink updates = %d, want 1", len(sink.updates))
	}
	if entries, _ := store.List(ctx, 0); len(entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(entries))
	}
}

func TestLoadShapesEmptyListSkipsFit(t *testing.T) {
	c, _, sink, _ := newController(t)
	if _, err := c.LoadShapes(context.Background(), []byte(`{"shapes":[]}`)); err != nil {
		t.Fatal(err)
	}
	if sink.fits != 0 {
		t.Errorf("sink fits = %d, want 0", sink.fits)
	}
}

func TestSetThemePatchesElements(t *testing.T) {
	c, _, sink, _ := newController(t)
	ctx := context.Background()
	data := `[{"id":"r1","type":"rectangle","x":0,"y":0,"width":10,"height":10,"strokeColor":"#000000"}]`
	if _, err := c.LoadShapes(ctx, []byte(data)); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().Elements[0].StrokeColor; got != "#000000" {
		t.Fatalf("light StrokeColor = %q, want #000000", got)
	}

	if err := c.SetTheme(ctx, "dark"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	if got := c.Snapshot().Elements[0].StrokeColor; got != elements.DarkStroke {
		t.Errorf("dark StrokeColor = %q, want %q", got, elements.DarkStroke)
	}
	if len(sink.updates) != 2 {
		t.Errorf("sink updates = %d, want 2", len(sink.updates))
	}
	if err := c.SetTheme(ctx, "sepia"); !errors.Is(err, errors.ErrCodeInvalidTheme) {
		t.Errorf("SetTheme(sepia) error = %v, want INVALID_THEME", err)
	}
	if c.Theme() != "dark" {
		t.Errorf("Theme() = %q, want dark", c.Theme())
	}
}

func TestConvertToElements(t *testing.T) {
	c, _, sink, store := newController(t)
	ctx := context.Background()

	if _, err := c.ConvertToElements(ctx); !errors.Is(err, errors.ErrCodeConversion) {
		t.Errorf("ConvertToElements() on empty scene error = %v, want CONVERSION_FAILED", err)
	}
	if len(c.Snapshot().Elements) != 0 || len(sink.updates) != 0 {
		t.Error("failed conversion committed state")
	}

	c.SetSource(ctx, "graph TD\n    A[One] --> B[Two]\n")
	c.Wait()
	els, err := c.ConvertToElements(ctx)
	if err != nil {
		t.Fatalf("ConvertToElements() error = %v", err)
	}
	var nodes, arrows int
	for _, e := range els {
		switch e.Type {
		case elements.KindArrow:
			arrows++
		default:
			nodes++
		}
	}
	if nodes != 2 || arrows != 1 {
		t.Errorf("ConvertToElements() = %d nodes, %d arrows, want 2, 1", nodes, arrows)
	}
	if sink.fits != 1 {
		t.Errorf("sink fits = %d, want 1", sink.fits)
	}
	if entries, _ := store.List(ctx, 0); len(entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(entries))
	}
}

func TestApplyGenerated(t *testing.T) {
	c, _, _, store := newController(t)
	ctx := context.Background()

	if err := c.ApplyGenerated(ctx, "graph LR\n    A[Login] --> B[Home]\n", "Login flow"); err != nil {
		t.Fatalf("ApplyGenerated() error = %v", err)
	}
	c.Wait()

	if got := labels(c.Scene()); got != "Login,Home" {
		t.Errorf("Scene() labels = %q", got)
	}
	entries, _ := store.List(ctx, 0)
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Type != history.KindTextual || e.Preview != "Login flow" || e.State.Title != "Login flow" {
		t.Errorf("history entry = %+v", e)
	}
	if !e.Timestamp.Equal(fixedNow()) {
		t.Errorf("history Timestamp = %v, want %v", e.Timestamp, fixedNow())
	}
}

func TestRestore(t *testing.T) {
	c, _, sink, _ := newController(t)
	ctx := context.Background()
	st := DiagramState{
		SourceText: "graph TD\n    A[Back]\n",
		Elements:   []elements.Element{{ID: "r1", Type: elements.KindRectangle, StrokeColor: "#1e1e1e"}},
		Title:      "old",
	}
	c.Restore(ctx, st)
	c.Wait()

	if got := c.Snapshot(); got.SourceText != st.SourceText || got.Title != "old" || len(got.Elements) != 1 {
		t.Errorf("Snapshot() = %+v", got)
	}
	if labels(c.Scene()) != "Back" {
		t.Errorf("Scene() labels = %q, want Back", labels(c.Scene()))
	}
	if len(sink.updates) != 1 {
		t.Errorf("sink updates = %d, want 1", len(sink.updates))
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	c, _, _, _ := newController(t)
	if _, err := c.LoadShapes(context.Background(), []byte(`[{"type":"rectangle"}]`)); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	snap.Elements[0].X = 999
	if c.Snapshot().Elements[0].X == 999 {
		t.Error("Snapshot() shares element storage with the controller")
	}
}

func TestFitView(t *testing.T) {
	c, _, _, _ := newController(t)
	ctx := context.Background()
	c.SetSource(ctx, "graph TD\n    A[One] --> B[Two]\n")
	c.Wait()

	c.FitView(800, 600, 20)
	v := c.Viewport()
	center := v.SceneToScreen(c.Scene().ContentBounds().Center())
	if abs(center.X-400) > 1e-6 || abs(center.Y-300) > 1e-6 {
		t.Errorf("content center on screen = %+v, want (400,300)", center)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
