package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

type svgDoc struct {
	ViewBox string     `xml:"viewBox,attr"`
	Groups  []svgGroup `xml:"g"`
}

type svgGroup struct {
	ID        string       `xml:"id,attr"`
	Class     string       `xml:"class,attr"`
	Transform string       `xml:"transform,attr"`
	Title     string       `xml:"title"`
	Polygons  []svgPoints  `xml:"polygon"`
	Polylines []svgPoints  `xml:"polyline"`
	Ellipses  []svgEllipse `xml:"ellipse"`
	Paths     []svgPath    `xml:"path"`
	Texts     []string     `xml:"text"`
	Groups    []svgGroup   `xml:"g"`
	Anchors   []svgGroup   `xml:"a"`
}

type svgPoints struct {
	Points string `xml:"points,attr"`
}

type svgEllipse struct {
	CX float64 `xml:"cx,attr"`
	CY float64 `xml:"cy,attr"`
	RX float64 `xml:"rx,attr"`
	RY float64 `xml:"ry,attr"`
}

type svgPath struct {
	D string `xml:"d,attr"`
}

var (
	translateRe = regexp.MustCompile(`translate\(\s*([-0-9.eE]+)[\s,]+([-0-9.eE]+)\s*\)`)
	numberRe    = regexp.MustCompile(`-?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)
)

// SceneFromSVG reads node and edge geometry out of Graphviz SVG output.
// Node labels come from g where the node is known, falling back to the
// drawn text.
func SceneFromSVG(svg []byte, g *flowchart.Graph) (*scene.Scene, error) {
	var doc svgDoc
	dec := xml.NewDecoder(bytes.NewReader(svg))
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("read layout output: %w", err)
	}

	sc := scene.Empty()
	sc.SVG = svg
	if g != nil {
		sc.Direction = g.Direction
	}
	if vb := numbers(doc.ViewBox); len(vb) == 4 {
		sc.Bounds = viewport.Rect{X: vb[0], Y: vb[1], Width: vb[2], Height: vb[3]}
	}

	var walk func(groups []svgGroup, off viewport.Point)
	seen := make(map[string]int)
	walk = func(groups []svgGroup, off viewport.Point) {
		for _, grp := range groups {
			o := off
			if m := translateRe.FindStringSubmatch(grp.Transform); m != nil {
				tx, _ := strconv.ParseFloat(m[1], 64)
				ty, _ := strconv.ParseFloat(m[2], 64)
				o = viewport.Point{X: off.X + tx, Y: off.Y + ty}
			}
			switch grp.Class {
			case "node":
				sc.Nodes = append(sc.Nodes, nodeFromGroup(grp, o, g))
			case "edge":
				sc.Edges = append(sc.Edges, edgeFromGroup(grp, o, g, seen))
			}
			walk(grp.Groups, o)
			walk(grp.Anchors, o)
		}
	}
	walk(doc.Groups, viewport.Point{})

	return sc, nil
}

func nodeFromGroup(grp svgGroup, off viewport.Point, g *flowchart.Graph) scene.Node {
	id := strings.TrimSpace(grp.Title)
	n := scene.Node{ID: id, Label: strings.TrimSpace(strings.Join(grp.Texts, " ")), Shape: scene.ShapeRect}
	if g != nil {
		if fn, ok := g.Node(id); ok {
			n.Label, n.Shape = fn.Label, fn.Shape
		}
	}
	n.Bounds = groupBounds(collect(grp), off)
	return n
}

// edgeFromGroup matches an SVG edge to the k-th parsed edge with the same
// endpoints, since Graphviz does not emit edges in declaration order.
func edgeFromGroup(grp svgGroup, off viewport.Point, g *flowchart.Graph, seen map[string]int) scene.Edge {
	e := scene.Edge{Arrow: true}
	if from, to, ok := strings.Cut(grp.Title, "->"); ok {
		e.From, e.To = strings.TrimSpace(from), strings.TrimSpace(to)
	}
	if g != nil {
		pair := e.From + "->" + e.To
		k := seen[pair]
		seen[pair]++
		for _, fe := range g.Edges {
			if fe.From != e.From || fe.To != e.To {
				continue
			}
			if k == 0 {
				e.Label, e.Style, e.Arrow = fe.Label, fe.Style, fe.Arrow
				break
			}
			k--
		}
	}
	for _, p := range grp.Paths {
		e.Points = append(e.Points, toPoints(numbers(p.D), off)...)
	}
	return e
}

// collect gathers every coordinate pair drawn by a group's shapes.
func collect(grp svgGroup) []viewport.Point {
	var pts []viewport.Point
	for _, p := range grp.Polygons {
		pts = append(pts, toPoints(numbers(p.Points), viewport.Point{})...)
	}
	for _, p := range grp.Polylines {
		pts = append(pts, toPoints(numbers(p.Points), viewport.Point{})...)
	}
	for _, p := range grp.Paths {
		pts = append(pts, toPoints(numbers(p.D), viewport.Point{})...)
	}
	for _, e := range grp.Ellipses {
		pts = append(pts,
			viewport.Point{X: e.CX - e.RX, Y: e.CY - e.RY},
			viewport.Point{X: e.CX + e.RX, Y: e.CY + e.RY})
	}
	return pts
}

func groupBounds(pts []viewport.Point, off viewport.Point) viewport.Rect {
	if len(pts) == 0 {
		return viewport.Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return viewport.Rect{X: minX + off.X, Y: minY + off.Y, Width: maxX - minX, Height: maxY - minY}
}

func toPoints(nums []float64, off viewport.Point) []viewport.Point {
	pts := make([]viewport.Point, 0, len(nums)/2)
	for i := 0; i+1 < len(nums); i += 2 {
		pts = append(pts, viewport.Point{X: nums[i] + off.X, Y: nums[i+1] + off.Y})
	}
	return pts
}

func numbers(s string) []float64 {
	matches := numberRe.FindAllString(s, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}
