package elements

import (
	"fmt"
	"math"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

var shapeKinds = map[string]string{
	scene.ShapeCircle:  KindEllipse,
	scene.ShapeDiamond: KindDiamond,
}

// FromScene converts a rendered scene into canonical elements: one container
// per node with its label bound, and one arrow per routed edge. Failures are
// CONVERSION_FAILED errors.
func FromScene(sc *scene.Scene, theme string) ([]Element, error) {
	if sc.IsEmpty() {
		return nil, errors.Conversion(fmt.Errorf("nothing to convert: the diagram has no nodes"))
	}

	stroke := defaultStroke(theme)
	out := make([]Element, 0, len(sc.Nodes)+len(sc.Edges))

	for _, n := range sc.Nodes {
		b := n.Bounds
		if !finite(b.X, b.Y, b.Width, b.Height) {
			return nil, errors.Conversion(fmt.Errorf("node %s has invalid geometry", n.ID))
		}
		kind, ok := shapeKinds[n.Shape]
		if !ok {
			kind = KindRectangle
		}
		el := Element{
			ID:              "node-" + n.ID,
			Type:            kind,
			X:               b.X,
			Y:               b.Y,
			Width:           b.Width,
			Height:          b.Height,
			StrokeColor:     stroke,
			BackgroundColor: "transparent",
			StrokeWidth:     1,
		}
		if n.Label != "" {
			el.Label = &Label{Text: n.Label}
		}
		out = append(out, el)
	}

	for i, e := range sc.Edges {
		if len(e.Points) < 2 {
			continue
		}
		start, end := e.Points[0], e.Points[len(e.Points)-1]
		if !finite(start.X, start.Y, end.X, end.Y) {
			return nil, errors.Conversion(fmt.Errorf("edge %s->%s has invalid geometry", e.From, e.To))
		}
		el := Element{
			ID:          fmt.Sprintf("edge-%d", i),
			Type:        KindArrow,
			X:           start.X,
			Y:           start.Y,
			Width:       math.Abs(end.X - start.X),
			Height:      math.Abs(end.Y - start.Y),
			StrokeColor: stroke,
			StrokeWidth: 1,
			Points:      [][2]float64{{0, 0}, {end.X - start.X, end.Y - start.Y}},
		}
		if e.Label != "" {
			el.Label = &Label{Text: e.Label}
		}
		out = append(out, el)
	}
	return out, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
