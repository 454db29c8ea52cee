package controller

import (
	"context"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/observability"
	"github.com/matzehuels/diagramsync/pkg/patch"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

// OpenEdit opens an edit session on the node under the screen point. It
// returns nil without error in pan mode or when nothing is hit. Opening a
// different node while editing cancels the previous session.
func (c *Controller) OpenEdit(ctx context.Context, screen viewport.Point) (*patch.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle && c.state != Editing {
		return nil, errors.New(errors.ErrCodeBusy, "cannot edit while %s", c.state)
	}
	prev := c.edits.Active()
	s := c.edits.Locate(c.scene, screen, c.panMode)
	if s == nil {
		return nil, nil
	}
	if prev != nil {
		observability.Edit().OnEditCancel(ctx, prev.NodeID)
	}
	c.state = Editing
	observability.Edit().OnEditOpen(ctx, s.NodeID)
	c.logger.Debug("edit opened", "node", s.NodeID, "label", s.Label)
	return s, nil
}

// ActiveEdit returns a copy of the open session, or nil.
func (c *Controller) ActiveEdit() *patch.Session {
	return c.edits.Active()
}

// UpdateDraft replaces the open session's draft text.
func (c *Controller) UpdateDraft(text string) bool {
	return c.edits.SetDraft(text)
}

// CommitEdit writes the draft back into the source and closes the session.
// A draft that is not a valid label, or a label that cannot be found in the
// source, leaves the source untouched and changed false. Both are logged
// with their error code and never returned as errors.
func (c *Controller) CommitEdit(ctx context.Context) (changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.edits.Active()
	if s == nil || c.state != Editing {
		return false, nil
	}

	src, perr := c.edits.CommitDraft(c.doc.SourceText)
	changed = perr == nil && src != c.doc.SourceText
	observability.Edit().OnEditCommit(ctx, s.NodeID, changed)
	c.state = Idle
	if !changed {
		if perr != nil {
			c.logger.Debug("edit closed without change", "node", s.NodeID, "label", s.Label, "code", errors.GetCode(perr), "err", perr)
		} else {
			c.logger.Debug("edit closed without change", "node", s.NodeID, "label", s.Label)
		}
		c.flushRenderLocked(ctx)
		return false, nil
	}

	c.logger.Debug("edit committed", "node", s.NodeID, "from", s.Label, "to", s.Draft)
	c.doc = DiagramState{SourceText: src, Elements: c.doc.Elements, Title: c.doc.Title}
	c.renderLocked(ctx)
	return true, nil
}

// CancelEdit discards the open session.
func (c *Controller) CancelEdit(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelEditLocked(ctx)
	c.flushRenderLocked(ctx)
}

func (c *Controller) cancelEditLocked(ctx context.Context) {
	s := c.edits.Active()
	if s == nil || !c.edits.Cancel() {
		return
	}
	observability.Edit().OnEditCancel(ctx, s.NodeID)
	if c.state == Editing {
		c.state = Idle
	}
}

// flushRenderLocked runs a render deferred while a session was open.
func (c *Controller) flushRenderLocked(ctx context.Context) {
	if c.renderPending && c.state != Editing {
		c.renderLocked(ctx)
	}
}

// Viewport returns the controller's viewport. It persists across renders.
func (c *Controller) Viewport() *viewport.Viewport {
	return c.view
}

// FitView scales and centers the viewport on the current scene.
func (c *Controller) FitView(screenW, screenH, padding float64) {
	c.mu.Lock()
	sc := c.scene
	c.mu.Unlock()
	if sc.IsEmpty() {
		return
	}
	c.view.Fit(sc.ContentBounds(), screenW, screenH, padding)
}
