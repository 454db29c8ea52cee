package elements

import "strings"

// invisibleOnDark are stroke values that vanish on a dark background.
var invisibleOnDark = map[string]bool{
	"":        true,
	"black":   true,
	"#000":    true,
	"#000000": true,
}

// PatchColors returns a copy of els where, on the dark theme, strokes that
// are unset or black become DarkStroke. Other themes get an unmodified copy.
// Applying it twice gives the same result as applying it once.
func PatchColors(els []Element, theme string) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = el.Clone()
		if theme == ThemeDark && invisibleOnDark[strings.ToLower(strings.TrimSpace(el.StrokeColor))] {
			out[i].StrokeColor = DarkStroke
		}
	}
	return out
}
