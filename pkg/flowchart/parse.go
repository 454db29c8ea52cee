package flowchart

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/scene"
)

// Edge styles.
const (
	StyleSolid  = "solid"
	StyleDashed = "dashed"
	StyleThick  = "thick"
)

// Node is a declared flowchart node.
type Node struct {
	ID    string
	Label string
	Shape string
}

// Edge is a connection between two node IDs.
type Edge struct {
	From   string
	To     string
	Label  string
	Style  string
	Arrow  bool
	Line   int
	Source string
}

// Graph is the parsed form of a flowchart, in declaration order.
type Graph struct {
	Direction string
	Nodes     []Node
	Edges     []Edge

	index map[string]int
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Labels maps node IDs to their labels.
func (g *Graph) Labels() map[string]string {
	out := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = n.Label
	}
	return out
}

// declare records a node reference. An explicit shape upgrades a node first
// seen as a bare reference.
func (g *Graph) declare(id, label, shape string) {
	if i, ok := g.index[id]; ok {
		if shape != "" {
			g.Nodes[i].Label = label
			g.Nodes[i].Shape = shape
		}
		return
	}
	if shape == "" {
		label, shape = id, scene.ShapeRect
	}
	g.index[id] = len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Label: label, Shape: shape})
}

// ParseError is a syntax error at a 1-based line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Parse error on line %d: %s", e.Line, e.Msg)
}

// ErrNoDiagram is returned when the text has no graph header.
var ErrNoDiagram = fmt.Errorf("No diagram type detected matching given configuration for text")

var (
	headerRe  = regexp.MustCompile(`^(graph|flowchart)(?:[ \t]+(TD|TB|BT|LR|RL))?[ \t]*;?$`)
	idRe      = regexp.MustCompile(`^[A-Za-z0-9_]+`)
	arrowRe   = regexp.MustCompile(`^<?(-{2,}>|-{3,}|-\.+->|-\.+-|={2,}>|={3,}|--[ox])(?:\s*\|([^|]*)\|)?`)
	textArrow = regexp.MustCompile(`^(--|==|-\.)\s+(.+?)\s+(-{2,}>|-{3,}|\.+->|={2,}>|={3,})`)
)

// skipped are statement keywords that do not affect layout.
var skipped = []string{"classDef ", "class ", "style ", "linkStyle ", "click ", "direction ", "subgraph ", "end "}

// shapeOpeners lists delimiter pairs longest first so "((" wins over "(".
var shapeOpeners = []struct {
	open, close, shape string
}{
	{"((", "))", scene.ShapeCircle},
	{"([", "])", scene.ShapeStadium},
	{"[[", "]]", scene.ShapeSubroutine},
	{"[(", ")]", scene.ShapeCylinder},
	{"[/", "/]", scene.ShapeParallelogram},
	{"{{", "}}", scene.ShapeHexagon},
	{"[", "]", scene.ShapeRect},
	{"(", ")", scene.ShapeRound},
	{"{", "}", scene.ShapeDiamond},
	{">", "]", scene.ShapeAsymmetric},
}

// Parse reads flowchart text into a Graph.
func Parse(source string) (*Graph, error) {
	g := &Graph{index: make(map[string]int)}
	header := false

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		if strings.HasPrefix(strings.TrimSpace(raw), "%%") {
			continue
		}
		for _, stmt := range strings.Split(raw, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if !header {
				m := headerRe.FindStringSubmatch(stmt)
				if m == nil {
					return nil, ErrNoDiagram
				}
				g.Direction = m[2]
				if g.Direction == "" {
					g.Direction = DirTD
				}
				header = true
				continue
			}
			if isSkipped(stmt) {
				continue
			}
			if err := g.statement(stmt, lineNo); err != nil {
				return nil, err
			}
		}
	}
	if !header {
		return nil, ErrNoDiagram
	}
	return g, nil
}

func isSkipped(stmt string) bool {
	for _, kw := range skipped {
		if stmt == strings.TrimSpace(kw) || strings.HasPrefix(stmt, kw) {
			return true
		}
	}
	return false
}

// statement parses a chain "node (link node)*".
func (g *Graph) statement(stmt string, line int) error {
	rest := stmt
	prev, rest, err := g.nodeRef(rest, line)
	if err != nil {
		return err
	}
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return nil
		}
		edge, next, ok := link(rest)
		if !ok {
			return &ParseError{Line: line, Msg: fmt.Sprintf("unexpected %q", truncate(rest))}
		}
		rest = strings.TrimLeft(next, " \t")
		if rest == "" {
			return &ParseError{Line: line, Msg: fmt.Sprintf("expected node after %q", strings.TrimSpace(stmt))}
		}
		var to string
		to, rest, err = g.nodeRef(rest, line)
		if err != nil {
			return err
		}
		edge.From, edge.To, edge.Line, edge.Source = prev, to, line, stmt
		g.Edges = append(g.Edges, edge)
		prev = to
	}
}

// nodeRef consumes an ID and an optional shape-delimited label.
func (g *Graph) nodeRef(s string, line int) (string, string, error) {
	id := idRe.FindString(s)
	if id == "" {
		return "", s, &ParseError{Line: line, Msg: fmt.Sprintf("expected node id, got %q", truncate(s))}
	}
	rest := s[len(id):]

	for _, o := range shapeOpeners {
		if !strings.HasPrefix(rest, o.open) {
			continue
		}
		body := rest[len(o.open):]
		label, consumed, ok := delimited(body, o.close)
		if !ok {
			return "", s, &ParseError{Line: line, Msg: fmt.Sprintf("unclosed %q in node %s", o.open, id)}
		}
		g.declare(id, label, o.shape)
		return id, body[consumed:], nil
	}
	g.declare(id, "", "")
	return id, rest, nil
}

// delimited reads a label up to the closing delimiter. A label wrapped in
// double quotes may contain delimiter characters.
func delimited(body, closeDelim string) (string, int, bool) {
	trimmed := strings.TrimLeft(body, " \t")
	lead := len(body) - len(trimmed)
	if strings.HasPrefix(trimmed, `"`) {
		end := strings.Index(trimmed[1:], `"`)
		if end < 0 {
			return "", 0, false
		}
		label := trimmed[1 : 1+end]
		after := trimmed[2+end:]
		afterTrim := strings.TrimLeft(after, " \t")
		if !strings.HasPrefix(afterTrim, closeDelim) {
			return "", 0, false
		}
		consumed := lead + 2 + end + (len(after) - len(afterTrim)) + len(closeDelim)
		return label, consumed, true
	}
	end := strings.Index(body, closeDelim)
	if end < 0 {
		return "", 0, false
	}
	return strings.TrimSpace(body[:end]), end + len(closeDelim), true
}

// link consumes a connector and its optional label.
func link(s string) (Edge, string, bool) {
	if m := arrowRe.FindStringSubmatch(s); m != nil {
		e := Edge{Label: strings.TrimSpace(m[2])}
		e.Style, e.Arrow = linkStyle(m[1])
		return e, s[len(m[0]):], true
	}
	if m := textArrow.FindStringSubmatch(s); m != nil {
		e := Edge{Label: strings.TrimSpace(strings.Trim(m[2], `"`))}
		e.Style, e.Arrow = linkStyle(m[1] + m[3])
		return e, s[len(m[0]):], true
	}
	return Edge{}, s, false
}

func linkStyle(conn string) (string, bool) {
	arrow := strings.HasSuffix(conn, ">")
	switch {
	case strings.Contains(conn, "."):
		return StyleDashed, arrow
	case strings.Contains(conn, "="):
		return StyleThick, arrow
	default:
		return StyleSolid, arrow
	}
}

func truncate(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
