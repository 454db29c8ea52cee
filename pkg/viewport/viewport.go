// Package viewport maps between screen space and scene space.
//
// # Overview
//
// A [Viewport] is an affine transform made of a uniform scale and a
// translation:
//
//	screen = scene*Scale + Translation
//	scene  = (screen - Translation) / Scale
//
// Scale is always kept inside [MinScale, MaxScale]. Panning is unbounded.
//
// # Usage
//
//	vp := viewport.New()
//	vp.PanBy(40, 10)
//	vp.ZoomBy(0.25, &cursor)      // zoom toward the cursor
//	p := vp.ScreenToScene(cursor) // hit-test in scene space
//
// The Viewport never fails: every input is plain numeric data.
package viewport

import "math"

// Scale bounds.
const (
	MinScale = 0.1
	MaxScale = 5.0
)

// Point is a position in either screen or scene space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rectangle covering both r and o.
// An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.Width, o.X+o.Width)
	maxY := math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Viewport holds the pan/zoom state between screen and scene space.
// It is not safe for concurrent mutation; the owning controller serializes
// access.
type Viewport struct {
	Scale       float64 `json:"scale"`
	Translation Point   `json:"translation"`

	// screen is the last known screen size, set by SetScreen, ZoomAt or Fit.
	screen Point
}

// New returns an identity viewport.
func New() *Viewport {
	return &Viewport{Scale: 1}
}

// PanBy moves the scene by (dx, dy) screen pixels.
func (v *Viewport) PanBy(dx, dy float64) {
	v.Translation.X += dx
	v.Translation.Y += dy
}

// ZoomBy multiplies the scale by (1+delta), clamped to [MinScale, MaxScale].
//
// When pivot is non-nil it is a screen point whose scene location stays
// fixed across the zoom. With a nil pivot the center of the last known
// screen is the pivot. Before any screen size is known the translation is
// kept, so the scene origin holds its screen position.
func (v *Viewport) ZoomBy(delta float64, pivot *Point) {
	if pivot == nil && v.screen.X > 0 && v.screen.Y > 0 {
		pivot = &Point{X: v.screen.X / 2, Y: v.screen.Y / 2}
	}
	next := clamp(v.Scale * (1 + delta))
	if pivot == nil {
		v.Scale = next
		return
	}
	anchor := v.ScreenToScene(*pivot)
	v.Scale = next
	v.Translation.X = pivot.X - anchor.X*next
	v.Translation.Y = pivot.Y - anchor.Y*next
}

// ZoomAt zooms around the center of a screen of the given size, keeping the
// scene visually anchored in the middle of the view.
func (v *Viewport) ZoomAt(delta, screenW, screenH float64) {
	v.SetScreen(screenW, screenH)
	center := Point{X: screenW / 2, Y: screenH / 2}
	v.ZoomBy(delta, &center)
}

// SetScreen records the screen size used by zooms without a pivot.
// Non-positive sizes are ignored.
func (v *Viewport) SetScreen(screenW, screenH float64) {
	if screenW > 0 && screenH > 0 {
		v.screen = Point{X: screenW, Y: screenH}
	}
}

// SetScale sets the scale directly, clamped to the valid range.
func (v *Viewport) SetScale(s float64) {
	v.Scale = clamp(s)
}

// Reset restores scale 1 and zero translation.
func (v *Viewport) Reset() {
	v.Scale = 1
	v.Translation = Point{}
}

// ScreenToScene maps a screen point into scene space.
func (v *Viewport) ScreenToScene(p Point) Point {
	s := v.scale()
	return Point{
		X: (p.X - v.Translation.X) / s,
		Y: (p.Y - v.Translation.Y) / s,
	}
}

// SceneToScreen maps a scene point into screen space.
func (v *Viewport) SceneToScreen(p Point) Point {
	s := v.scale()
	return Point{
		X: p.X*s + v.Translation.X,
		Y: p.Y*s + v.Translation.Y,
	}
}

// RectToScreen maps a scene rectangle into screen space.
func (v *Viewport) RectToScreen(r Rect) Rect {
	tl := v.SceneToScreen(Point{X: r.X, Y: r.Y})
	s := v.scale()
	return Rect{X: tl.X, Y: tl.Y, Width: r.Width * s, Height: r.Height * s}
}

// RectToScene maps a screen rectangle into scene space.
func (v *Viewport) RectToScene(r Rect) Rect {
	tl := v.ScreenToScene(Point{X: r.X, Y: r.Y})
	s := v.scale()
	return Rect{X: tl.X, Y: tl.Y, Width: r.Width / s, Height: r.Height / s}
}

// Fit scales and translates so that content fills a screen of the given size
// with padding pixels on every side, centered. Empty content resets the view.
func (v *Viewport) Fit(content Rect, screenW, screenH, padding float64) {
	v.SetScreen(screenW, screenH)
	if content.Empty() || screenW <= 2*padding || screenH <= 2*padding {
		v.Reset()
		return
	}
	sx := (screenW - 2*padding) / content.Width
	sy := (screenH - 2*padding) / content.Height
	v.Scale = clamp(math.Min(sx, sy))
	c := content.Center()
	v.Translation.X = screenW/2 - c.X*v.Scale
	v.Translation.Y = screenH/2 - c.Y*v.Scale
}

// scale guards against a zero-value Viewport.
func (v *Viewport) scale() float64 {
	if v.Scale == 0 {
		return 1
	}
	return v.Scale
}

func clamp(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return 1
	case s < MinScale:
		return MinScale
	case s > MaxScale:
		return MaxScale
	}
	return s
}
