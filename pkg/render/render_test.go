package render

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no suitable point", stderrors.New("Error: no suitable point found"), LayoutFailedMessage},
		{"undefined props", stderrors.New("TypeError: Cannot read properties of undefined (reading 'x')"), LayoutFailedMessage},
		{"safari undefined", stderrors.New("undefined is not an object (evaluating 'n.x')"), LayoutFailedMessage},
		{"init_rank", stderrors.New("trouble in init_rank"), LayoutFailedMessage},
		{"layout not done", stderrors.New("layout was not done: boom"), LayoutFailedMessage},
		{"parse error verbatim", &flowchart.ParseError{Line: 3, Msg: "unexpected \"??\""}, `Parse error on line 3: unexpected "??"`},
		{"coded keeps message", errors.New(errors.ErrCodeInvalidInput, "source too long"), "source too long"},
		{"cancelled render verbatim", fmt.Errorf("graphviz render: %w", context.Canceled), "graphviz render: context canceled"},
		{"deadline verbatim", fmt.Errorf("graphviz render: %w", context.DeadlineExceeded), "graphviz render: context deadline exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if !errors.Is(got, errors.ErrCodeRender) {
				t.Fatalf("Classify() code = %v, want RENDER_FAILED", errors.GetCode(got))
			}
			if msg := errors.UserMessage(got); msg != tt.want {
				t.Errorf("UserMessage() = %q, want %q", msg, tt.want)
			}
			if !stderrors.Is(got, tt.err) {
				t.Error("Classify() should keep the cause")
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
	already := errors.New(errors.ErrCodeRender, "x")
	if Classify(already) != error(already) {
		t.Error("Classify() should pass RENDER_FAILED errors through")
	}
}

func TestToDOT(t *testing.T) {
	g, err := flowchart.Parse("graph LR\nA[Start] -.-> B{Ask}\nB --- C((Hub))\nB ==>|go| C")
	if err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(g, Options{Theme: ThemeDark})

	for _, want := range []string{
		"digraph G {",
		"rankdir=LR;",
		`"A" [label="Start", shape=box];`,
		`"B" [label="Ask", shape=diamond];`,
		`"C" [label="Hub", shape=circle];`,
		`"A" -> "B" [style=dashed];`,
		`"B" -> "C" [arrowhead=none];`,
		`"B" -> "C" [label="go", penwidth=2.5];`,
		DarkPalette.Fill,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q in:\n%s", want, dot)
		}
	}
}

func TestToDOTDirections(t *testing.T) {
	tests := map[string]string{"TD": "TB", "TB": "TB", "BT": "BT", "LR": "LR", "RL": "RL"}
	for dir, want := range tests {
		g, err := flowchart.Parse("graph " + dir + "\nA")
		if err != nil {
			t.Fatal(err)
		}
		if dot := ToDOT(g, Options{}); !strings.Contains(dot, "rankdir="+want+";") {
			t.Errorf("direction %s: missing rankdir=%s", dir, want)
		}
	}
}

func TestOptions(t *testing.T) {
	var o Options
	o.SetDefaults()
	if o.Theme != ThemeLight || o.FontSize != DefaultFontSize || o.NodeSep != DefaultNodeSep {
		t.Errorf("SetDefaults() = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	bad := Options{Theme: "neon"}
	bad.SetDefaults()
	if err := bad.Validate(); !errors.Is(err, errors.ErrCodeInvalidTheme) {
		t.Errorf("Validate(neon) = %v, want INVALID_THEME", err)
	}
}

func TestGraphvizRenderEmpty(t *testing.T) {
	r := NewGraphvizRenderer()
	for _, src := range []string{"", "   \n\t"} {
		sc, err := r.Render(context.Background(), src, ThemeDark)
		if err != nil {
			t.Fatalf("Render(%q) error: %v", src, err)
		}
		if !sc.IsEmpty() || sc.Nodes == nil {
			t.Errorf("Render(%q) = %+v, want scene.Empty()", src, sc)
		}
		if sc.Theme != ThemeDark {
			t.Errorf("Theme = %q, want dark", sc.Theme)
		}
	}
}

func TestGraphvizRenderParseError(t *testing.T) {
	_, err := NewGraphvizRenderer().Render(context.Background(), "graph TD\nA -->", ThemeLight)
	if !errors.Is(err, errors.ErrCodeRender) {
		t.Fatalf("Render() error = %v, want RENDER_FAILED", err)
	}
	if msg := errors.UserMessage(err); !strings.HasPrefix(msg, "Parse error on line 2") {
		t.Errorf("UserMessage() = %q, want parse error verbatim", msg)
	}
}

func TestGraphvizRender(t *testing.T) {
	sc, err := NewGraphvizRenderer().Render(context.Background(), "graph TD\n    A[Start] --> B((End))", ThemeLight)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if len(sc.Nodes) != 2 || len(sc.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges, want 2, 1", len(sc.Nodes), len(sc.Edges))
	}
	a, ok := sc.Node("A")
	if !ok || a.Label != "Start" || a.Bounds.Empty() {
		t.Fatalf("node A = %+v, %v", a, ok)
	}
	b, _ := sc.Node("B")
	if b.Shape != scene.ShapeCircle {
		t.Errorf("B.Shape = %q, want circle", b.Shape)
	}
	if a.Bounds.Y >= b.Bounds.Y {
		t.Errorf("top-down layout should place A above B: %v vs %v", a.Bounds, b.Bounds)
	}
	if len(sc.SVG) == 0 || !strings.Contains(string(sc.SVG), "<svg") {
		t.Error("scene should carry the rendered SVG")
	}
	if hit, ok := sc.HitTest(a.Bounds.Center()); !ok || hit.ID != "A" {
		t.Errorf("HitTest(center of A) = %v, %v", hit.ID, ok)
	}
}
