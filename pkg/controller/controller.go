// Package controller keeps a flowchart's source text and its rendered scene
// in sync.
//
// A [Controller] owns the [DiagramState], the current render generation,
// the viewport and the node edit session. Every write to the source text
// bumps the generation and starts an asynchronous render; a render result is
// applied only if its generation is still current, so a slow render of an
// older source can never overwrite the scene of a newer one.
//
// # States
//
//	Idle --(source changed)--> Rendering --(success)--> Idle
//	Rendering --(failure)--> Error --(source changed)--> Rendering
//	Idle --(node opened)--> Editing --(commit|cancel)--> Idle
//
// Orientation toggles and shape injection are accepted in Idle and Error and
// always re-enter Rendering.
//
// # Usage
//
//	c := controller.New(controller.Options{
//	    Renderer: render.NewGraphvizRenderer(),
//	    History:  history.NewMemoryStore(),
//	})
//	c.SetSource(ctx, "graph TD\n    A[Start] --> B[End]\n")
//	c.Wait()
//	sc := c.Scene()
package controller

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagramsync/pkg/elements"
	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/history"
	"github.com/matzehuels/diagramsync/pkg/observability"
	"github.com/matzehuels/diagramsync/pkg/patch"
	"github.com/matzehuels/diagramsync/pkg/render"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

// State is the controller's position in the render/edit lifecycle.
type State int

const (
	Idle State = iota
	Rendering
	Editing
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case Editing:
		return "editing"
	case Error:
		return "error"
	}
	return "unknown"
}

// DiagramState is the document the controller owns. It is replaced as a
// whole on every change and never mutated in place.
type DiagramState = history.State

// SceneSink receives canonical elements for display in a visual editor.
type SceneSink interface {
	UpdateElements(els []elements.Element)

	// Fit asks the editor to re-center its view on the new content.
	Fit()
}

// Options configures a Controller. Without a Renderer the scene stays empty,
// which suits shape-only use.
type Options struct {
	Theme   string
	PanMode bool

	Renderer render.Renderer
	History  history.Store
	Sink     SceneSink
	Logger   *log.Logger

	// Now is used for history timestamps and element IDs.
	Now func() time.Time
}

// Controller synchronizes source text, rendered scene and canonical
// elements. All methods are safe for concurrent use.
type Controller struct {
	renderer   render.Renderer
	store      history.Store
	sink       SceneSink
	logger     *log.Logger
	now        func() time.Time
	normalizer elements.Normalizer

	view  *viewport.Viewport
	edits *patch.Engine

	mu      sync.Mutex
	theme   string
	panMode bool
	state   State
	doc     DiagramState
	scene   *scene.Scene
	err     error
	gen     uint64

	// renderPending marks a render deferred until the open edit closes.
	renderPending bool

	wg sync.WaitGroup
}

// New creates a controller in the Idle state with an empty scene.
func New(opts Options) *Controller {
	if opts.Theme == "" {
		opts.Theme = render.ThemeLight
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	view := viewport.New()
	return &Controller{
		renderer:   opts.Renderer,
		store:      opts.History,
		sink:       opts.Sink,
		logger:     opts.Logger,
		now:        opts.Now,
		normalizer: elements.Normalizer{Now: opts.Now},
		view:       view,
		edits:      patch.NewEngine(view),
		theme:      opts.Theme,
		panMode:    opts.PanMode,
		state:      Idle,
		scene:      scene.Empty(),
	}
}

// SetSource replaces the source text and starts a render. It returns
// immediately; use Wait to block until the scene is up to date. An open
// edit session is cancelled first since its label may no longer exist.
func (c *Controller) SetSource(ctx context.Context, text string) error {
	if err := errors.ValidateSource(text); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelEditLocked(ctx)
	c.doc = DiagramState{SourceText: text, Elements: c.doc.Elements, Title: c.doc.Title}
	c.renderLocked(ctx)
	return nil
}

// ToggleOrientation flips the diagram between vertical and horizontal
// layout and re-renders.
func (c *Controller) ToggleOrientation(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.commandAllowedLocked("toggle orientation"); err != nil {
		return err
	}
	src := flowchart.ToggleOrientation(c.doc.SourceText)
	c.logger.Debug("toggled orientation", "direction", flowchart.Direction(src))
	c.doc = DiagramState{SourceText: src, Elements: c.doc.Elements, Title: c.doc.Title}
	c.renderLocked(ctx)
	return nil
}

// InjectShape appends a new node of the given shape and returns its ID.
func (c *Controller) InjectShape(ctx context.Context, shape, label string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.commandAllowedLocked("insert shape"); err != nil {
		return "", err
	}
	src, id, err := flowchart.InjectShape(c.doc.SourceText, shape, label)
	if err != nil {
		return "", err
	}
	c.logger.Debug("injected shape", "id", id, "shape", shape)
	c.doc = DiagramState{SourceText: src, Elements: c.doc.Elements, Title: c.doc.Title}
	c.renderLocked(ctx)
	return id, nil
}

func (c *Controller) commandAllowedLocked(action string) error {
	if c.state == Idle || c.state == Error {
		return nil
	}
	return errors.New(errors.ErrCodeBusy, "cannot %s while %s", action, c.state)
}

// renderLocked bumps the generation and renders the current source on a
// goroutine. Blank sources, and any source when no renderer is attached,
// are applied synchronously as an empty scene.
func (c *Controller) renderLocked(ctx context.Context) {
	c.renderPending = false
	c.gen++
	gen := c.gen
	source := c.doc.SourceText
	theme := c.theme

	if strings.TrimSpace(source) == "" || c.renderer == nil {
		c.scene = scene.Empty()
		c.scene.Theme = theme
		c.err = nil
		c.state = Idle
		return
	}

	c.state = Rendering
	// The render outlives the request that triggered it.
	rctx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		hooks := observability.Render()
		hooks.OnRenderStart(rctx, gen, len(source))
		start := time.Now()

		sc, err := c.renderer.Render(rctx, source, theme)
		if err != nil {
			err = render.Classify(err)
		}
		nodes := 0
		if sc != nil {
			nodes = len(sc.Nodes)
		}
		hooks.OnRenderComplete(rctx, gen, nodes, time.Since(start), err)
		c.apply(rctx, gen, sc, err)
	}()
}

func (c *Controller) apply(ctx context.Context, gen uint64, sc *scene.Scene, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		observability.Render().OnRenderStale(ctx, gen, c.gen)
		c.logger.Debug("discarding stale render", "generation", gen, "current", c.gen)
		return
	}
	if err != nil {
		c.logger.Warn("render failed", "generation", gen, "err", err)
		c.scene = scene.Empty()
		c.err = err
		c.state = Error
		return
	}
	if sc == nil {
		sc = scene.Empty()
	}
	c.logger.Debug("render applied", "generation", gen, "nodes", len(sc.Nodes), "edges", len(sc.Edges))
	c.scene = sc
	c.err = nil
	c.state = Idle
}

// Wait blocks until every render started so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// ApplyGenerated installs source text produced by the generation service
// and records it in history.
func (c *Controller) ApplyGenerated(ctx context.Context, source, title string) error {
	if err := errors.ValidateSource(source); err != nil {
		return err
	}
	c.mu.Lock()
	c.cancelEditLocked(ctx)
	c.doc = DiagramState{SourceText: source, Elements: c.doc.Elements, Title: title}
	c.renderLocked(ctx)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.record(ctx, history.KindTextual, snap)
	return nil
}

// LoadShapes ingests a shape list, normalizes it for the current theme and
// swaps it in as the diagram's elements. A malformed list returns an
// INVALID_SCHEMA error and leaves the state untouched.
func (c *Controller) LoadShapes(ctx context.Context, data []byte) ([]elements.Element, error) {
	items, err := elements.Parse(data)
	if err != nil {
		c.logger.Warn("rejected shape list", "err", err)
		return nil, err
	}

	c.mu.Lock()
	els := c.normalizer.Normalize(items, c.theme)
	c.doc = DiagramState{SourceText: c.doc.SourceText, Elements: els, Title: c.doc.Title}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("loaded shapes", "input", len(items), "elements", len(els))
	c.push(snap.Elements)
	c.record(ctx, history.KindVisual, snap)
	return snap.Elements, nil
}

// ConvertToElements turns the current scene into canonical elements. On
// failure nothing is committed and the error carries a hint to check logs.
func (c *Controller) ConvertToElements(ctx context.Context) ([]elements.Element, error) {
	c.mu.Lock()
	sc, theme := c.scene, c.theme
	c.mu.Unlock()

	els, err := elements.FromScene(sc, theme)
	if err != nil {
		c.logger.Error("conversion failed", "err", errors.GetCode(err), "cause", err)
		return nil, err
	}

	c.mu.Lock()
	c.doc = DiagramState{SourceText: c.doc.SourceText, Elements: els, Title: c.doc.Title}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.push(snap.Elements)
	c.record(ctx, history.KindVisual, snap)
	return snap.Elements, nil
}

// Restore replaces the whole document with a history snapshot and
// re-renders its source.
func (c *Controller) Restore(ctx context.Context, st DiagramState) {
	st = cloneState(st)
	c.mu.Lock()
	c.cancelEditLocked(ctx)
	c.doc = st
	c.renderLocked(ctx)
	c.mu.Unlock()

	if len(st.Elements) > 0 {
		c.push(cloneElements(st.Elements))
	}
}

// SetTheme switches the theme, recolors the current elements and
// re-renders the source. While a node is being edited the render waits
// until the session is committed or cancelled.
func (c *Controller) SetTheme(ctx context.Context, theme string) error {
	if err := errors.ValidateTheme(theme); err != nil {
		return err
	}
	c.mu.Lock()
	if theme == c.theme {
		c.mu.Unlock()
		return nil
	}
	c.theme = theme
	els := elements.PatchColors(c.doc.Elements, theme)
	c.doc = DiagramState{SourceText: c.doc.SourceText, Elements: els, Title: c.doc.Title}
	if c.state == Editing {
		c.renderPending = true
	} else {
		c.renderLocked(ctx)
	}
	c.mu.Unlock()

	if len(els) > 0 && c.sink != nil {
		c.sink.UpdateElements(cloneElements(els))
	}
	return nil
}

// SetPanMode toggles pan mode. While set, nodes cannot be opened for
// editing.
func (c *Controller) SetPanMode(on bool) {
	c.mu.Lock()
	c.panMode = on
	c.mu.Unlock()
}

// PanMode reports whether pan mode is on.
func (c *Controller) PanMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panMode
}

func (c *Controller) push(els []elements.Element) {
	if c.sink == nil {
		return
	}
	c.sink.UpdateElements(els)
	if len(els) > 0 {
		c.sink.Fit()
	}
}

// record writes a history entry. Persistence failures are logged, never
// returned: the in-memory document is already committed.
func (c *Controller) record(ctx context.Context, kind history.Kind, st DiagramState) {
	if c.store == nil {
		return
	}
	e := history.NewEntry(kind, st, c.now())
	if err := c.store.Save(ctx, e); err != nil {
		c.logger.Warn("history write failed", "type", kind, "err", err)
		return
	}
	c.logger.Debug("history entry saved", "id", e.ID, "type", kind)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Scene returns the last applied scene. It is empty after a failed render.
func (c *Controller) Scene() *scene.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

// Err returns the classified error of the last render, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Source returns the current source text.
func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.SourceText
}

// Generation returns the number of source writes so far.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) Theme() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// Snapshot returns a deep copy of the document.
func (c *Controller) Snapshot() DiagramState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() DiagramState {
	return cloneState(c.doc)
}

func cloneState(st DiagramState) DiagramState {
	st.Elements = cloneElements(st.Elements)
	return st
}

func cloneElements(els []elements.Element) []elements.Element {
	if els == nil {
		return nil
	}
	out := make([]elements.Element, len(els))
	for i, e := range els {
		out[i] = e.Clone()
	}
	return out
}
