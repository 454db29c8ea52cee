package scene

import (
	"testing"

	"github.com/matzehuels/diagramsync/pkg/viewport"
)

func overlapping() *Scene {
	return &Scene{
		Nodes: []Node{
			{ID: "A", Label: "Back", Bounds: viewport.Rect{X: 0, Y: 0, Width: 100, Height: 100}},
			{ID: "B", Label: "Front", Bounds: viewport.Rect{X: 50, Y: 50, Width: 100, Height: 100}},
		},
	}
}

func TestHitTest(t *testing.T) {
	s := overlapping()

	tests := []struct {
		name   string
		p      viewport.Point
		wantID string
		wantOK bool
	}{
		{"back only", viewport.Point{X: 10, Y: 10}, "A", true},
		{"overlap picks topmost", viewport.Point{X: 75, Y: 75}, "B", true},
		{"front only", viewport.Point{X: 140, Y: 140}, "B", true},
		{"miss", viewport.Point{X: 300, Y: 0}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := s.HitTest(tt.p)
			if ok != tt.wantOK || n.ID != tt.wantID {
				t.Errorf("HitTest(%v) = (%q, %v), want (%q, %v)", tt.p, n.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestHitTestNil(t *testing.T) {
	var s *Scene
	if _, ok := s.HitTest(viewport.Point{}); ok {
		t.Error("HitTest on nil scene should miss")
	}
}

func TestEmpty(t *testing.T) {
	s := Empty()
	if !s.IsEmpty() {
		t.Error("Empty().IsEmpty() = false, want true")
	}
	if s.Nodes == nil || s.Edges == nil {
		t.Error("Empty() should have non-nil slices")
	}
}

func TestContentBounds(t *testing.T) {
	got := overlapping().ContentBounds()
	want := viewport.Rect{X: 0, Y: 0, Width: 150, Height: 150}
	if got != want {
		t.Errorf("ContentBounds() = %v, want %v", got, want)
	}
}

func TestNodeLookup(t *testing.T) {
	s := overlapping()
	if n, ok := s.Node("B"); !ok || n.Label != "Front" {
		t.Errorf("Node(B) = (%v, %v)", n, ok)
	}
	if _, ok := s.Node("Z"); ok {
		t.Error("Node(Z) should not be found")
	}
}
