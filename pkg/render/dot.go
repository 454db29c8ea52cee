package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

// Palette holds the colors a theme paints with.
type Palette struct {
	Background string
	Fill       string
	Stroke     string
	Text       string
}

// Palettes by theme.
var (
	LightPalette = Palette{Background: "#ffffff", Fill: "#ffffff", Stroke: "#1e1e1e", Text: "#1e293b"}
	DarkPalette  = Palette{Background: "#0f172a", Fill: "#1e293b", Stroke: "#e2e8f0", Text: "#e2e8f0"}
)

// PaletteFor returns the palette for theme, defaulting to light.
func PaletteFor(theme string) Palette {
	if theme == ThemeDark {
		return DarkPalette
	}
	return LightPalette
}

var rankdir = map[string]string{
	flowchart.DirTD: "TB",
	flowchart.DirTB: "TB",
	flowchart.DirBT: "BT",
	flowchart.DirLR: "LR",
	flowchart.DirRL: "RL",
}

// shapeAttrs maps scene shapes to Graphviz node attributes.
var shapeAttrs = map[string][]string{
	scene.ShapeRect:          {"shape=box"},
	scene.ShapeRound:         {"shape=box", `style="rounded,filled"`},
	scene.ShapeStadium:       {"shape=box", `style="rounded,filled"`, "height=0.4"},
	scene.ShapeSubroutine:    {"shape=box", "peripheries=2"},
	scene.ShapeCylinder:      {"shape=cylinder"},
	scene.ShapeCircle:        {"shape=circle"},
	scene.ShapeAsymmetric:    {"shape=cds"},
	scene.ShapeDiamond:       {"shape=diamond"},
	scene.ShapeHexagon:       {"shape=hexagon"},
	scene.ShapeParallelogram: {"shape=parallelogram"},
}

// ToDOT converts a parsed flowchart to Graphviz DOT.
func ToDOT(g *flowchart.Graph, opts Options) string {
	opts.SetDefaults()
	p := PaletteFor(opts.Theme)

	dir, ok := rankdir[g.Direction]
	if !ok {
		dir = "TB"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  node [fontname=%q, fontsize=%g, style=filled, fillcolor=%q, color=%q, fontcolor=%q, margin=\"0.2,0.1\"];\n",
		opts.FontName, opts.FontSize, p.Fill, p.Stroke, p.Text)
	fmt.Fprintf(&buf, "  edge [fontname=%q, fontsize=%g, color=%q, fontcolor=%q];\n",
		opts.FontName, opts.FontSize-2, p.Stroke, p.Text)
	fmt.Fprintf(&buf, "  nodesep=%g;\n", opts.NodeSep)
	fmt.Fprintf(&buf, "  ranksep=%g;\n", opts.RankSep)
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		attrs := append([]string{fmt.Sprintf("label=%q", n.Label)}, shapeAttrs[n.Shape]...)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func edgeAttrs(e flowchart.Edge) []string {
	var attrs []string
	if e.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
	}
	switch e.Style {
	case flowchart.StyleDashed:
		attrs = append(attrs, "style=dashed")
	case flowchart.StyleThick:
		attrs = append(attrs, "penwidth=2.5")
	}
	if !e.Arrow {
		attrs = append(attrs, "arrowhead=none")
	}
	return attrs
}
