// Package patch edits node labels in flowchart text from the rendered view.
//
// A double click at a screen point is resolved to the topmost node under it
// ([Engine.Locate]). That opens an edit session carrying the node's label and
// its on-screen rectangle, which is where an inline editor goes. Committing
// rewrites the first delimiter-enclosed occurrence of the label in the
// source; there is no mapping from rendered nodes back to source spans, so
// with duplicate labels the earliest one wins.
//
// At most one session is live. Opening a new one replaces the old one.
package patch

import (
	"sync"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

// Session is a live inline edit of one node.
type Session struct {
	NodeID string        `json:"node_id"`
	Label  string        `json:"label"`
	Screen viewport.Rect `json:"screen"`
	Draft  string        `json:"draft"`
}

// Engine owns the current edit session. The viewport is shared with the
// caller, which must not mutate it concurrently with Locate.
type Engine struct {
	mu      sync.Mutex
	view    *viewport.Viewport
	session *Session
}

// NewEngine creates an engine mapping through v. A nil viewport means
// identity.
func NewEngine(v *viewport.Viewport) *Engine {
	if v == nil {
		v = viewport.New()
	}
	return &Engine{view: v}
}

// Locate opens a session for the topmost node under the screen point. It
// returns nil when panMode is set or nothing is hit; in both cases an
// existing session is left alone.
func (e *Engine) Locate(sc *scene.Scene, screen viewport.Point, panMode bool) *Session {
	if panMode || sc.IsEmpty() {
		return nil
	}
	n, ok := sc.HitTest(e.view.ScreenToScene(screen))
	if !ok {
		return nil
	}

	s := &Session{
		NodeID: n.ID,
		Label:  n.Label,
		Screen: e.view.RectToScreen(n.Bounds),
		Draft:  n.Label,
	}
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
	return s.clone()
}

// Active returns a copy of the live session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone()
}

// SetDraft replaces the draft text. It reports false when no session is
// live.
func (e *Engine) SetDraft(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return false
	}
	e.session.Draft = text
	return true
}

// Commit closes the session and rewrites its label to newText in source.
// The session is closed whatever the outcome. An INVALID_LABEL error is
// returned for a draft that would break the source, and PATCH_NO_MATCH when
// the label does not occur in it; source is then returned as is. Without a
// session Commit is a no-op.
func (e *Engine) Commit(source, newText string) (string, error) {
	s := e.take()
	if s == nil {
		return source, nil
	}
	return Rewrite(source, s.Label, newText)
}

// CommitDraft commits the session's own draft text.
func (e *Engine) CommitDraft(source string) (string, error) {
	s := e.Active()
	if s == nil {
		return source, nil
	}
	return e.Commit(source, s.Draft)
}

// Rewrite replaces the first delimiter-enclosed occurrence of label in
// source with newText.
func Rewrite(source, label, newText string) (string, error) {
	if err := errors.ValidateLabel(newText); err != nil {
		return source, err
	}
	out, ok := flowchart.ReplaceLabel(source, label, newText)
	if !ok {
		return source, errors.New(errors.ErrCodePatchNoMatch, "label %q not found in source", label)
	}
	return out, nil
}

// Cancel discards the session. It reports whether one was live.
func (e *Engine) Cancel() bool {
	return e.take() != nil
}

func (e *Engine) take() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	e.session = nil
	return s
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
