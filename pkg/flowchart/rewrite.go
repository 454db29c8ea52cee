package flowchart

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

// Direction keywords.
const (
	DirTD = "TD"
	DirTB = "TB"
	DirBT = "BT"
	DirLR = "LR"
	DirRL = "RL"
)

var (
	headerDirRe  = regexp.MustCompile(`(?m)^(\s*(?:graph|flowchart)[ \t]+)(TD|TB|BT|LR|RL)\b`)
	headerBareRe = regexp.MustCompile(`(?m)^(\s*(?:graph|flowchart))[ \t]*$`)
)

// Direction returns the declared direction keyword, or "" when the source
// declares none.
func Direction(source string) string {
	if m := headerDirRe.FindStringSubmatch(source); m != nil {
		return m[2]
	}
	return ""
}

// ToggleOrientation switches a vertical layout to LR and a horizontal one to
// TD. A header without a direction gets LR appended, and source without any
// header gets "graph LR" prepended, so the text always changes.
func ToggleOrientation(source string) string {
	if loc := headerDirRe.FindStringSubmatchIndex(source); loc != nil {
		next := DirLR
		switch source[loc[4]:loc[5]] {
		case DirLR, DirRL:
			next = DirTD
		}
		return source[:loc[4]] + next + source[loc[5]:]
	}
	if loc := headerBareRe.FindStringSubmatchIndex(source); loc != nil {
		return source[:loc[3]] + " " + DirLR + source[loc[3]:]
	}
	if strings.TrimSpace(source) == "" {
		return "graph " + DirLR + "\n"
	}
	return "graph " + DirLR + "\n" + source
}

// delimiters maps injectable shape names to their open/close pair.
var delimiters = map[string][2]string{
	"rectangle":     {"[", "]"},
	"round":         {"(", ")"},
	"stadium":       {"([", "])"},
	"subroutine":    {"[[", "]]"},
	"cylinder":      {"[(", ")]"},
	"circle":        {"((", "))"},
	"asymmetric":    {">", "]"},
	"diamond":       {"{", "}"},
	"hexagon":       {"{{", "}}"},
	"parallelogram": {"[/", "/]"},
}

// ShapeNames lists the shapes accepted by InjectShape.
func ShapeNames() []string {
	return []string{"rectangle", "round", "stadium", "subroutine", "cylinder",
		"circle", "asymmetric", "diamond", "hexagon", "parallelogram"}
}

// DefaultLabel is used by InjectShape when no label is given.
const DefaultLabel = "New node"

// InjectShape appends a node of the given shape with a fresh ID and returns
// the new source and the ID. Empty source gets a "graph TD" header first.
func InjectShape(source, shape, label string) (string, string, error) {
	pair, ok := delimiters[shape]
	if !ok {
		return source, "", errors.New(errors.ErrCodeInvalidShape,
			"unknown shape: %q (must be one of: %s)", shape, strings.Join(ShapeNames(), ", "))
	}
	if label == "" {
		label = DefaultLabel
	}
	if err := errors.ValidateLabel(label); err != nil {
		return source, "", err
	}

	id := freshID(source)
	line := indentOf(source) + id + pair[0] + label + pair[1]

	if strings.TrimSpace(source) == "" {
		return "graph " + DirTD + "\n" + line + "\n", id, nil
	}
	out := source
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + line + "\n", id, nil
}

var wordRe = regexp.MustCompile(`\w+`)

// freshID returns the first N<k> identifier not already used as a word.
func freshID(source string) string {
	used := make(map[string]bool)
	for _, w := range wordRe.FindAllString(source, -1) {
		used[w] = true
	}
	for k := 1; ; k++ {
		if id := fmt.Sprintf("N%d", k); !used[id] {
			return id
		}
	}
}

// indentOf returns the indentation of the last statement line, or four
// spaces when there is none.
func indentOf(source string) string {
	lines := strings.Split(source, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := lines[i]
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || headerBareRe.MatchString(l) || headerDirRe.MatchString(l) {
			continue
		}
		return l[:len(l)-len(strings.TrimLeft(l, " \t"))]
	}
	return "    "
}

// closers pairs each opening label delimiter with its closing one.
var closers = map[string]string{"[": "]", "(": ")", "{": "}", ">": "]", "/": "/"}

// ReplaceLabel rewrites the first occurrence of oldLabel that is enclosed in
// a shape delimiter pair, keeping the delimiters, surrounding whitespace and
// quotes. It reports whether anything changed; on no match the source is
// returned as is.
func ReplaceLabel(source, oldLabel, newLabel string) (string, bool) {
	if strings.TrimSpace(oldLabel) == "" {
		return source, false
	}
	re := regexp.MustCompile(`([\[\(\{>/])(\s*"?)` + regexp.QuoteMeta(strings.TrimSpace(oldLabel)) + `("?\s*)([\]\)\}/])`)

	for _, m := range re.FindAllStringSubmatchIndex(source, -1) {
		open := source[m[2]:m[3]]
		lead := source[m[4]:m[5]]
		trail := source[m[6]:m[7]]
		closeDelim := source[m[8]:m[9]]
		if closers[open] != closeDelim {
			continue
		}
		if strings.Contains(lead, `"`) != strings.Contains(trail, `"`) {
			continue
		}
		return source[:m[5]] + newLabel + source[m[6]:], true
	}
	return source, false
}
