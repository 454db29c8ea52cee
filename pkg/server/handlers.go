package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/diagramsync/pkg/buildinfo"
	"github.com/matzehuels/diagramsync/pkg/controller"
	"github.com/matzehuels/diagramsync/pkg/elements"
	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/export"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/generate"
	"github.com/matzehuels/diagramsync/pkg/history"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

type sourceRequest struct {
	Source string `json:"source"`
	Theme  string `json:"theme,omitempty"`
}

type sourceResponse struct {
	Source    string `json:"source"`
	Direction string `json:"direction,omitempty"`
	ID        string `json:"id,omitempty"`
}

type sceneResponse struct {
	Scene *scene.Scene `json:"scene"`
	SVG   string       `json:"svg,omitempty"`
}

type elementsResponse struct {
	Elements []elements.Element `json:"elements"`
}

func (s *Server) controller(theme string) (*controller.Controller, error) {
	if theme == "" {
		theme = s.theme
	}
	if err := errors.ValidateTheme(theme); err != nil {
		return nil, err
	}
	return controller.New(controller.Options{
		Theme:    theme,
		Renderer: s.renderer,
		History:  s.store,
		Logger:   s.logger,
		Now:      s.now,
	}), nil
}

// renderWith sets source on c and waits for the result.
func renderWith(ctx context.Context, c *controller.Controller, source string) (*scene.Scene, error) {
	if err := c.SetSource(ctx, source); err != nil {
		return nil, err
	}
	c.Wait()
	if err := c.Err(); err != nil {
		return nil, err
	}
	return c.Scene(), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "build": buildinfo.Get()})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.controller(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	sc, err := renderWith(r.Context(), c, req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse{Scene: sc, SVG: string(sc.SVG)})
}

func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateSource(req.Source); err != nil {
		writeError(w, err)
		return
	}
	out := flowchart.ToggleOrientation(req.Source)
	writeJSON(w, http.StatusOK, sourceResponse{Source: out, Direction: flowchart.Direction(out)})
}

type injectRequest struct {
	Source string `json:"source"`
	Shape  string `json:"shape"`
	Label  string `json:"label,omitempty"`
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateSource(req.Source); err != nil {
		writeError(w, err)
		return
	}
	out, id, err := flowchart.InjectShape(req.Source, req.Shape, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse{Source: out, Direction: flowchart.Direction(out), ID: id})
}

// patchRequest renames a node either by its current label or by a screen
// point, which requires rendering the source to find the node.
type patchRequest struct {
	Source   string             `json:"source"`
	Theme    string             `json:"theme,omitempty"`
	OldLabel string             `json:"oldLabel,omitempty"`
	NewLabel string             `json:"newLabel"`
	Point    *viewport.Point    `json:"point,omitempty"`
	Viewport *viewport.Viewport `json:"viewport,omitempty"`
}

type patchResponse struct {
	Source  string `json:"source"`
	Changed bool   `json:"changed"`
	NodeID  string `json:"nodeId,omitempty"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateLabel(req.NewLabel); err != nil {
		writeError(w, err)
		return
	}

	if req.Point == nil {
		if req.OldLabel == "" {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "either oldLabel or point is required"))
			return
		}
		if err := errors.ValidateSource(req.Source); err != nil {
			writeError(w, err)
			return
		}
		out, ok := flowchart.ReplaceLabel(req.Source, req.OldLabel, req.NewLabel)
		writeJSON(w, http.StatusOK, patchResponse{Source: out, Changed: ok && out != req.Source})
		return
	}

	c, err := s.controller(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := renderWith(r.Context(), c, req.Source); err != nil {
		writeError(w, err)
		return
	}
	if req.Viewport != nil {
		vp := c.Viewport()
		vp.Translation = req.Viewport.Translation
		if req.Viewport.Scale != 0 {
			vp.SetScale(req.Viewport.Scale)
		}
	}
	sess, err := c.OpenEdit(r.Context(), *req.Point)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no node at (%g, %g)", req.Point.X, req.Point.Y))
		return
	}
	c.UpdateDraft(req.NewLabel)
	changed, err := c.CommitEdit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	c.Wait()
	writeJSON(w, http.StatusOK, patchResponse{Source: c.Source(), Changed: changed, NodeID: sess.NodeID})
}

type normalizeRequest struct {
	Theme string          `json:"theme,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// shapeData unwraps data sent as a JSON string, such as fenced model output.
func shapeData(raw json.RawMessage) []byte {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []byte(text)
	}
	return raw
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.controller(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	els, err := c.LoadShapes(r.Context(), shapeData(req.Data))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elementsResponse{Elements: nonNil(els)})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.controller(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := renderWith(r.Context(), c, req.Source); err != nil {
		writeError(w, err)
		return
	}
	els, err := c.ConvertToElements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elementsResponse{Elements: els})
}

type generateRequest struct {
	Prompt string        `json:"prompt"`
	Kind   generate.Kind `json:"kind,omitempty"`
	Theme  string        `json:"theme,omitempty"`
	Title  string        `json:"title,omitempty"`
}

type generateResponse struct {
	Source      string             `json:"source,omitempty"`
	Scene       *scene.Scene       `json:"scene,omitempty"`
	Elements    []elements.Element `json:"elements,omitempty"`
	RenderError string             `json:"renderError,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "no generation service configured"))
		return
	}
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.controller(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()

	switch req.Kind {
	case generate.KindShapes:
		data, err := generate.Shapes(ctx, s.generator, req.Prompt)
		if err != nil {
			writeError(w, err)
			return
		}
		els, err := c.LoadShapes(ctx, data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, generateResponse{Elements: nonNil(els)})

	case generate.KindText, "":
		src, err := generate.Text(ctx, s.generator, req.Prompt)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := c.ApplyGenerated(ctx, src, req.Title); err != nil {
			writeError(w, err)
			return
		}
		c.Wait()
		resp := generateResponse{Source: src, Scene: c.Scene()}
		if err := c.Err(); err != nil {
			resp.Scene = nil
			resp.RenderError = errors.UserMessage(err)
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid kind: %q (must be one of: text, shapes)", req.Kind))
	}
}

type exportRequest struct {
	Source string  `json:"source"`
	Theme  string  `json:"theme,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(chi.URLParam(r, "format"))
	if !export.ValidFormats[format] {
		writeError(w, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png)", format))
		return
	}
	var req exportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.controller(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	sc, err := renderWith(r.Context(), c, req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := export.Export(sc, format, export.WithTheme(c.Theme()), export.WithScale(req.Scale))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "history is disabled"))
		return false
	}
	return true
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit: %q", v))
			return
		}
		limit = n
	}
	entries, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(els []elements.Element) []elements.Element {
	if els == nil {
		return []elements.Element{}
	}
	return els
}
