package elements

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme colors.
const (
	LightStroke = "#1e1e1e"
	LightText   = "#1e293b"
	DarkStroke  = "#e2e8f0"
)

// Descriptor defaults.
const (
	DefaultWidth    = 100.0
	DefaultHeight   = 50.0
	DefaultArrowDX  = 100.0
	DefaultFontSize = 20.0
)

// Normalizer maps shape descriptors to canonical elements.
type Normalizer struct {
	// Now stamps generated IDs. Defaults to time.Now.
	Now func() time.Time
}

// Normalize converts items into canonical elements for theme. When every
// item is already canonical the list passes through with only the dark
// theme color patch applied. Otherwise each item is mapped by its type and
// unknown types are dropped. The result is never nil.
func (n Normalizer) Normalize(items []map[string]any, theme string) []Element {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	stamp := now().UnixMilli()

	if allCanonical(items) {
		out := make([]Element, 0, len(items))
		for i, it := range items {
			el, err := decodeCanonical(it)
			if err != nil {
				// Field types outside the canonical model: map it like a
				// descriptor instead of losing it.
				var ok bool
				if el, ok = fromDescriptor(it, theme); !ok {
					continue
				}
				if el.ID == "" {
					el.ID = fmt.Sprintf("el-%d-%d", i, stamp)
				}
			}
			if el.StrokeColor == "" && theme != ThemeDark {
				el.StrokeColor = LightStroke
			}
			out = append(out, el)
		}
		return PatchColors(out, theme)
	}

	out := make([]Element, 0, len(items))
	for i, it := range items {
		el, ok := fromDescriptor(it, theme)
		if !ok {
			continue
		}
		if el.ID == "" {
			el.ID = fmt.Sprintf("el-%d-%d", i, stamp)
		}
		out = append(out, el)
	}
	return out
}

// IsCanonical reports whether item already follows the element model: a
// string id, a known type, numeric x, y, width and height, a label that is
// absent or an object, and a point list on arrows and lines.
func IsCanonical(item map[string]any) bool {
	id, ok := item["id"].(string)
	if !ok || id == "" {
		return false
	}
	kind, _ := item["type"].(string)
	if !canonicalKinds[kind] {
		return false
	}
	for _, k := range []string{"x", "y", "width", "height"} {
		if _, ok := item[k].(float64); !ok {
			return false
		}
	}
	if label, ok := item["label"]; ok && label != nil {
		if _, ok := label.(map[string]any); !ok {
			return false
		}
	}
	if kind == KindArrow || kind == KindLine {
		if pts, ok := item["points"].([]any); !ok || len(pts) < 2 {
			return false
		}
	}
	return true
}

func allCanonical(items []map[string]any) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !IsCanonical(it) {
			return false
		}
	}
	return true
}

func decodeCanonical(item map[string]any) (Element, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return Element{}, err
	}
	var el Element
	if err := json.Unmarshal(data, &el); err != nil {
		return Element{}, err
	}
	el.Width, el.Height = math.Abs(el.Width), math.Abs(el.Height)
	if (el.Type == KindArrow || el.Type == KindLine) && len(el.Points) < 2 {
		el.Points = [][2]float64{{0, 0}, {el.Width, el.Height}}
	}
	return el, nil
}

func fromDescriptor(d map[string]any, theme string) (Element, bool) {
	kind := strings.ToLower(str(d["type"]))
	el := Element{
		ID:              str(d["id"]),
		Type:            kind,
		StrokeColor:     firstNonEmpty(str(d["strokeColor"]), str(d["color"]), defaultStroke(theme)),
		BackgroundColor: firstNonEmpty(str(d["backgroundColor"]), "transparent"),
		StrokeWidth:     1,
	}

	switch kind {
	case KindRectangle, KindEllipse:
		el.X = numOr(d["x"], 0)
		el.Y = numOr(d["y"], 0)
		el.Width = numOr(d["width"], DefaultWidth)
		el.Height = numOr(d["height"], DefaultHeight)
		if el.Width < 0 {
			el.X, el.Width = el.X+el.Width, -el.Width
		}
		if el.Height < 0 {
			el.Y, el.Height = el.Y+el.Height, -el.Height
		}
		if text := firstNonEmpty(str(d["label"]), str(d["text"])); text != "" {
			el.Label = &Label{Text: text}
		}

	case KindArrow:
		sx := numOr(d["startX"], numOr(d["x"], 0))
		sy := numOr(d["startY"], numOr(d["y"], 0))
		ex := numOr(d["endX"], sx+DefaultArrowDX)
		ey := numOr(d["endY"], sy)
		el.X, el.Y = sx, sy
		el.Width, el.Height = math.Abs(ex-sx), math.Abs(ey-sy)
		el.Points = [][2]float64{{0, 0}, {ex - sx, ey - sy}}
		if text := str(d["label"]); text != "" {
			el.Label = &Label{Text: text}
		}

	case KindText:
		el.X = numOr(d["x"], 0)
		el.Y = numOr(d["y"], 0)
		el.Text = firstNonEmpty(str(d["text"]), str(d["label"]))
		el.FontSize = numOr(d["fontSize"], DefaultFontSize)
		el.Width = float64(len([]rune(el.Text))) * el.FontSize * 0.6
		el.Height = el.FontSize * 1.25
		el.StrokeColor = textTone(theme)
		el.BackgroundColor = ""

	default:
		return Element{}, false
	}
	return el, true
}

func defaultStroke(theme string) string {
	if theme == ThemeDark {
		return DarkStroke
	}
	return LightStroke
}

func textTone(theme string) string {
	if theme == ThemeDark {
		return DarkStroke
	}
	return LightText
}

// num reads a JSON number or numeric string.
func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func numOr(v any, fallback float64) float64 {
	if f, ok := num(v); ok {
		return f
	}
	return fallback
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
