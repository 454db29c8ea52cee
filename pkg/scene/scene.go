// Package scene defines the rendered, laid-out form of a flowchart.
//
// A [Scene] is produced by a renderer from flowchart text and is ephemeral:
// it is rebuilt on every successful render and dropped on failure. All
// geometry is in scene coordinates; use a viewport to map it to screen space.
package scene

import (
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

// Shape names used by nodes.
const (
	ShapeRect          = "rect"
	ShapeRound         = "round"
	ShapeStadium       = "stadium"
	ShapeSubroutine    = "subroutine"
	ShapeCylinder      = "cylinder"
	ShapeCircle        = "circle"
	ShapeAsymmetric    = "asymmetric"
	ShapeDiamond       = "diamond"
	ShapeHexagon       = "hexagon"
	ShapeParallelogram = "parallelogram"
)

// Node is a visual node with its label and bounding box.
type Node struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Shape  string        `json:"shape"`
	Bounds viewport.Rect `json:"bounds"`
}

// Edge is a routed connection between two nodes.
type Edge struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Label  string           `json:"label,omitempty"`
	Style  string           `json:"style,omitempty"`
	Arrow  bool             `json:"arrow"`
	Points []viewport.Point `json:"points,omitempty"`
}

// Scene is a rendered diagram.
//
// Nodes are stored in paint order: later nodes are drawn on top of earlier
// ones, so hit-testing walks the slice backwards.
type Scene struct {
	Nodes     []Node        `json:"nodes"`
	Edges     []Edge        `json:"edges"`
	Bounds    viewport.Rect `json:"bounds"`
	Direction string        `json:"direction,omitempty"`
	Theme     string        `json:"theme,omitempty"`

	// SVG is the vector output the scene was read from.
	SVG []byte `json:"-"`
}

// Empty returns the explicit empty scene.
func Empty() *Scene {
	return &Scene{Nodes: []Node{}, Edges: []Edge{}}
}

// IsEmpty reports whether the scene has nothing to draw.
func (s *Scene) IsEmpty() bool {
	return s == nil || len(s.Nodes) == 0
}

// Node returns the node with the given ID.
func (s *Scene) Node(id string) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HitTest returns the topmost node whose bounds contain p, a point in scene
// space.
func (s *Scene) HitTest(p viewport.Point) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if s.Nodes[i].Bounds.Contains(p) {
			return s.Nodes[i], true
		}
	}
	return Node{}, false
}

// ContentBounds returns the union of all node bounds, or Bounds when the
// scene has no nodes.
func (s *Scene) ContentBounds() viewport.Rect {
	if s == nil {
		return viewport.Rect{}
	}
	var r viewport.Rect
	for _, n := range s.Nodes {
		r = r.Union(n.Bounds)
	}
	if r.Empty() {
		return s.Bounds
	}
	return r
}
