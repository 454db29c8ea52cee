package patch

import (
	"testing"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

func twoBoxes() *scene.Scene {
	return &scene.Scene{
		Nodes: []scene.Node{
			{ID: "A", Label: "Box", Bounds: viewport.Rect{X: 0, Y: 0, Width: 100, Height: 40}},
			{ID: "B", Label: "Box", Bounds: viewport.Rect{X: 0, Y: 100, Width: 100, Height: 40}},
		},
	}
}

func TestLocate(t *testing.T) {
	v := &viewport.Viewport{Scale: 2, Translation: viewport.Point{X: 10, Y: 20}}
	e := NewEngine(v)

	s := e.Locate(twoBoxes(), viewport.Point{X: 110, Y: 240}, false)
	if s == nil {
		t.Fatal("Locate() = nil, want session for B")
	}
	if s.NodeID != "B" || s.Label != "Box" || s.Draft != "Box" {
		t.Errorf("session = %+v", s)
	}
	want := viewport.Rect{X: 10, Y: 220, Width: 200, Height: 80}
	if s.Screen != want {
		t.Errorf("Screen = %v, want %v", s.Screen, want)
	}
}

func TestLocateMissesAndPanMode(t *testing.T) {
	e := NewEngine(nil)
	sc := twoBoxes()

	if s := e.Locate(sc, viewport.Point{X: 500, Y: 500}, false); s != nil {
		t.Errorf("Locate(miss) = %+v, want nil", s)
	}
	if s := e.Locate(sc, viewport.Point{X: 10, Y: 10}, true); s != nil {
		t.Errorf("Locate(pan mode) = %+v, want nil", s)
	}
	if s := e.Locate(nil, viewport.Point{}, false); s != nil {
		t.Errorf("Locate(nil scene) = %+v, want nil", s)
	}
	if e.Active() != nil {
		t.Error("no session should be live")
	}
}

func TestCommitFirstMatchOnly(t *testing.T) {
	e := NewEngine(nil)
	e.Locate(twoBoxes(), viewport.Point{X: 50, Y: 120}, false)

	got, err := e.Commit("A[Box]\nB[Box]", "Square")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if got != "A[Square]\nB[Box]" {
		t.Errorf("Commit() = %q, want first occurrence rewritten", got)
	}
	if e.Active() != nil {
		t.Error("Commit() should close the session")
	}
}

func TestCommitFailures(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		source   string
		newText  string
		wantCode errors.Code
	}{
		{"label not in source", "Ghost", "graph TD\nA[Box]", "Anything", errors.ErrCodePatchNoMatch},
		{"draft breaks delimiters", "Box", "A[Box]", "a]b", errors.ErrCodeInvalidLabel},
		{"empty draft", "Box", "A[Box]", "  ", errors.ErrCodeInvalidLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil)
			sc := &scene.Scene{Nodes: []scene.Node{{ID: "X", Label: tt.label, Bounds: viewport.Rect{Width: 10, Height: 10}}}}
			e.Locate(sc, viewport.Point{X: 5, Y: 5}, false)

			got, err := e.Commit(tt.source, tt.newText)
			if got != tt.source {
				t.Errorf("Commit() = %q, want source unchanged", got)
			}
			if code := errors.GetCode(err); code != tt.wantCode {
				t.Errorf("Commit() code = %v, want %v", code, tt.wantCode)
			}
			if e.Active() != nil {
				t.Error("Commit() should close the session on failure")
			}
		})
	}
}

func TestCommitWithoutSession(t *testing.T) {
	e := NewEngine(nil)
	if got, err := e.Commit("A[Box]", "X"); err != nil || got != "A[Box]" {
		t.Errorf("Commit() = (%q, %v)", got, err)
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		source, label, newText string
		want                   string
		wantCode               errors.Code
	}{
		{"A([Go]) --> B{Go}", "Go", "Run", "A([Run]) --> B{Go}", ""},
		{"A[Box]", "Box", "Box", "A[Box]", ""},
		{"A[Box]", "Boxes", "X", "A[Box]", errors.ErrCodePatchNoMatch},
	}
	for _, tt := range tests {
		got, err := Rewrite(tt.source, tt.label, tt.newText)
		if got != tt.want || errors.GetCode(err) != tt.wantCode {
			t.Errorf("Rewrite(%q, %q, %q) = %q, %v, want %q, %v", tt.source, tt.label, tt.newText, got, err, tt.want, tt.wantCode)
		}
	}
}

func TestDraftAndCancel(t *testing.T) {
	e := NewEngine(nil)
	if e.SetDraft("x") {
		t.Error("SetDraft() without session should report false")
	}
	e.Locate(twoBoxes(), viewport.Point{X: 5, Y: 5}, false)
	if !e.SetDraft("Renamed") {
		t.Fatal("SetDraft() = false")
	}
	got, err := e.CommitDraft("A[Box]\nB[Box]")
	if err != nil || got != "A[Renamed]\nB[Box]" {
		t.Errorf("CommitDraft() = (%q, %v)", got, err)
	}

	e.Locate(twoBoxes(), viewport.Point{X: 5, Y: 5}, false)
	if !e.Cancel() {
		t.Error("Cancel() = false with live session")
	}
	if e.Cancel() {
		t.Error("second Cancel() = true")
	}
}

func TestLocateReplacesSession(t *testing.T) {
	e := NewEngine(nil)
	sc := twoBoxes()
	e.Locate(sc, viewport.Point{X: 5, Y: 5}, false)
	e.SetDraft("stale draft")
	e.Locate(sc, viewport.Point{X: 5, Y: 105}, false)

	s := e.Active()
	if s == nil || s.NodeID != "B" || s.Draft != "Box" {
		t.Errorf("Active() = %+v, want fresh session for B", s)
	}
}
