// Package elements ingests loosely-structured shape lists and turns them into
// canonical drawing elements.
//
// Shape lists come from a generation service or a user upload and are not
// trusted: fields may be missing, numbers may be strings, and items may
// already be canonical elements exported from a drawing tool. [Parse]
// accepts the JSON, [Normalizer.Normalize] maps each item to an [Element],
// and [PatchColors] keeps strokes visible on the dark theme.
package elements

import (
	"encoding/json"
	"maps"
)

// Element kinds.
const (
	KindRectangle = "rectangle"
	KindEllipse   = "ellipse"
	KindDiamond   = "diamond"
	KindArrow     = "arrow"
	KindLine      = "line"
	KindText      = "text"
	KindFreedraw  = "freedraw"
	KindImage     = "image"
	KindFrame     = "frame"
)

// canonicalKinds are the kinds a drawing library accepts as is.
var canonicalKinds = map[string]bool{
	KindRectangle: true,
	KindEllipse:   true,
	KindDiamond:   true,
	KindArrow:     true,
	KindLine:      true,
	KindText:      true,
	KindFreedraw:  true,
	KindImage:     true,
	KindFrame:     true,
}

// Label is text bound to a container or arrow.
type Label struct {
	Text string `json:"text"`
}

// Element is a canonical drawing element. Fields the engine does not model
// are preserved in Extra and written back on marshal.
type Element struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	X               float64      `json:"x"`
	Y               float64      `json:"y"`
	Width           float64      `json:"width"`
	Height          float64      `json:"height"`
	StrokeColor     string       `json:"strokeColor"`
	BackgroundColor string       `json:"backgroundColor,omitempty"`
	StrokeWidth     float64      `json:"strokeWidth,omitempty"`
	Points          [][2]float64 `json:"points,omitempty"`
	Text            string       `json:"text,omitempty"`
	FontSize        float64      `json:"fontSize,omitempty"`
	Label           *Label       `json:"label,omitempty"`

	Extra map[string]any `json:"-"`
}

// known are the JSON keys mapped to typed fields.
var known = []string{"id", "type", "x", "y", "width", "height", "strokeColor",
	"backgroundColor", "strokeWidth", "points", "text", "fontSize", "label"}

type plain Element

// MarshalJSON writes Extra first so typed fields win on key collisions.
func (e Element) MarshalJSON() ([]byte, error) {
	if len(e.Extra) == 0 {
		return json.Marshal(plain(e))
	}
	typed, err := json.Marshal(plain(e))
	if err != nil {
		return nil, err
	}
	out := maps.Clone(e.Extra)
	var fields map[string]any
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	maps.Copy(out, fields)
	return json.Marshal(out)
}

// UnmarshalJSON reads typed fields and keeps the rest in Extra.
func (e *Element) UnmarshalJSON(data []byte) error {
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range known {
		delete(raw, k)
	}
	*e = Element(p)
	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}

// Clone returns a deep copy.
func (e Element) Clone() Element {
	c := e
	if e.Points != nil {
		c.Points = append([][2]float64(nil), e.Points...)
	}
	if e.Label != nil {
		l := *e.Label
		c.Label = &l
	}
	if e.Extra != nil {
		c.Extra = maps.Clone(e.Extra)
	}
	return c
}
