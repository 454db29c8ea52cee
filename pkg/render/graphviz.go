package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

// GraphvizRenderer lays out flowcharts with the Graphviz dot engine.
type GraphvizRenderer struct {
	opts   Options
	logger *log.Logger
}

// NewGraphvizRenderer creates a renderer with default layout options.
func NewGraphvizRenderer(opts ...Option) *GraphvizRenderer {
	r := &GraphvizRenderer{logger: discardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.opts.SetDefaults()
	return r
}

// Options returns the layout options with theme applied.
func (r *GraphvizRenderer) Options(theme string) Options {
	o := r.opts
	o.Theme = theme
	o.SetDefaults()
	return o
}

// Render implements Renderer.
func (r *GraphvizRenderer) Render(ctx context.Context, source, theme string) (*scene.Scene, error) {
	if strings.TrimSpace(source) == "" {
		sc := scene.Empty()
		sc.Theme = theme
		return sc, nil
	}
	opts := r.Options(theme)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := errors.ValidateSource(source); err != nil {
		return nil, Classify(err)
	}

	start := time.Now()
	g, err := flowchart.Parse(source)
	if err != nil {
		return nil, Classify(err)
	}

	svg, err := RenderSVG(ctx, ToDOT(g, opts))
	if err != nil {
		return nil, Classify(err)
	}

	sc, err := SceneFromSVG(svg, g)
	if err != nil {
		return nil, Classify(err)
	}
	sc.Theme = opts.Theme

	r.logger.Debug("rendered", "nodes", len(sc.Nodes), "edges", len(sc.Edges), "elapsed", time.Since(start))
	return sc, nil
}

// RenderSVG runs the dot layout on a DOT document and returns SVG with a
// normalized root element.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("graphviz render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([-0-9.]+)\s+([-0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized root element with a
// pixel-sized one anchored at the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

var _ Renderer = (*GraphvizRenderer)(nil)
