package export

import (
	"bytes"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/render"
	"github.com/matzehuels/diagramsync/pkg/scene"
	"github.com/matzehuels/diagramsync/pkg/viewport"
)

// PNG defaults.
const (
	DefaultScale    = 2.0
	DefaultPadding  = 16.0
	DefaultFontSize = 14.0
	maxPixels       = 8192
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	theme    string
	scale    float64
	padding  float64
	fontSize float64
}

// WithTheme sets the background and ink colors (default light).
func WithTheme(theme string) PNGOption {
	return func(r *pngRenderer) { r.theme = theme }
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithPadding sets the margin around the content in scene units.
func WithPadding(p float64) PNGOption {
	return func(r *pngRenderer) {
		if p >= 0 {
			r.padding = p
		}
	}
}

var (
	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

func regularFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return goFont, fontErr
}

// PNG rasterizes the scene on the theme's background fill.
func PNG(sc *scene.Scene, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{
		theme:    render.ThemeLight,
		scale:    DefaultScale,
		padding:  DefaultPadding,
		fontSize: DefaultFontSize,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if sc.IsEmpty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to export")
	}

	bounds := extent(sc)
	w := int(math.Ceil((bounds.Width + 2*r.padding) * r.scale))
	h := int(math.Ceil((bounds.Height + 2*r.padding) * r.scale))
	if w <= 0 || h <= 0 || w > maxPixels || h > maxPixels {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image size %dx%d out of range", w, h)
	}

	f, err := regularFont()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse font")
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    r.fontSize * r.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	pal := render.PaletteFor(r.theme)
	dc := gg.NewContext(w, h)
	dc.SetHexColor(pal.Background)
	dc.Clear()
	dc.SetFontFace(face)

	toPx := func(p viewport.Point) (float64, float64) {
		return (p.X - bounds.X + r.padding) * r.scale, (p.Y - bounds.Y + r.padding) * r.scale
	}

	for _, e := range sc.Edges {
		drawEdge(dc, e, pal, r.scale, toPx)
	}
	for _, n := range sc.Nodes {
		drawNode(dc, n, pal, r.scale, toPx)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

// extent covers node bounds and edge routes.
func extent(sc *scene.Scene) viewport.Rect {
	r := sc.ContentBounds()
	minX, minY := r.X, r.Y
	maxX, maxY := r.X+r.Width, r.Y+r.Height
	for _, e := range sc.Edges {
		for _, p := range e.Points {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	return viewport.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

type pxFunc func(viewport.Point) (float64, float64)

func drawEdge(dc *gg.Context, e scene.Edge, pal render.Palette, scale float64, px pxFunc) {
	if len(e.Points) < 2 {
		return
	}
	dc.SetHexColor(pal.Stroke)
	width := 1.2
	switch e.Style {
	case flowchart.StyleThick:
		width = 2.5
	case flowchart.StyleDashed:
		dc.SetDash(5*scale, 4*scale)
	}
	dc.SetLineWidth(width * scale)

	x, y := px(e.Points[0])
	dc.MoveTo(x, y)
	for _, p := range e.Points[1:] {
		x, y = px(p)
		dc.LineTo(x, y)
	}
	dc.Stroke()
	dc.SetDash()

	if e.Arrow {
		fx, fy := px(e.Points[len(e.Points)-2])
		tx, ty := px(e.Points[len(e.Points)-1])
		drawArrowHead(dc, fx, fy, tx, ty, 7*scale)
	}
	if e.Label != "" {
		mid := e.Points[len(e.Points)/2]
		mx, my := px(mid)
		dc.SetHexColor(pal.Text)
		dc.DrawStringAnchored(e.Label, mx, my, 0.5, 0.5)
	}
}

func drawArrowHead(dc *gg.Context, fx, fy, tx, ty, size float64) {
	dx, dy := tx-fx, ty-fy
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length
	const spread = 0.5
	dc.MoveTo(tx, ty)
	dc.LineTo(tx-size*dx+size*dy*spread, ty-size*dy-size*dx*spread)
	dc.LineTo(tx-size*dx-size*dy*spread, ty-size*dy+size*dx*spread)
	dc.ClosePath()
	dc.Fill()
}

func drawNode(dc *gg.Context, n scene.Node, pal render.Palette, scale float64, px pxFunc) {
	b := n.Bounds
	x, y := px(viewport.Point{X: b.X, Y: b.Y})
	w, h := b.Width*scale, b.Height*scale

	shapePath(dc, n.Shape, x, y, w, h)
	dc.SetHexColor(pal.Fill)
	dc.FillPreserve()
	dc.SetHexColor(pal.Stroke)
	dc.SetLineWidth(1.2 * scale)
	dc.Stroke()

	if n.Shape == scene.ShapeSubroutine {
		inset := 6 * scale
		dc.DrawLine(x+inset, y, x+inset, y+h)
		dc.DrawLine(x+w-inset, y, x+w-inset, y+h)
		dc.Stroke()
	}

	if n.Label != "" {
		dc.SetHexColor(pal.Text)
		dc.DrawStringAnchored(n.Label, x+w/2, y+h/2, 0.5, 0.35)
	}
}

// shapePath adds the outline for shape to the current path.
func shapePath(dc *gg.Context, shape string, x, y, w, h float64) {
	switch shape {
	case scene.ShapeRound:
		dc.DrawRoundedRectangle(x, y, w, h, math.Min(w, h)/5)
	case scene.ShapeStadium:
		dc.DrawRoundedRectangle(x, y, w, h, h/2)
	case scene.ShapeCircle:
		dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
	case scene.ShapeCylinder:
		dc.DrawRoundedRectangle(x, y, w, h, math.Min(w/2, h/6))
	case scene.ShapeDiamond:
		polygon(dc, x+w/2, y, x+w, y+h/2, x+w/2, y+h, x, y+h/2)
	case scene.ShapeHexagon:
		in := math.Min(w/4, h/2)
		polygon(dc, x+in, y, x+w-in, y, x+w, y+h/2, x+w-in, y+h, x+in, y+h, x, y+h/2)
	case scene.ShapeParallelogram:
		sk := math.Min(w/5, h/2)
		polygon(dc, x+sk, y, x+w, y, x+w-sk, y+h, x, y+h)
	case scene.ShapeAsymmetric:
		notch := math.Min(w/5, h/2)
		polygon(dc, x, y, x+w, y, x+w, y+h, x, y+h, x+notch, y+h/2)
	default:
		dc.DrawRectangle(x, y, w, h)
	}
}

func polygon(dc *gg.Context, xy ...float64) {
	dc.NewSubPath()
	dc.MoveTo(xy[0], xy[1])
	for i := 2; i+1 < len(xy); i += 2 {
		dc.LineTo(xy[i], xy[i+1])
	}
	dc.ClosePath()
}
