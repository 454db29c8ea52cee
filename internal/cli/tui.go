package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/diagramsync/pkg/controller"
	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
	"github.com/matzehuels/diagramsync/pkg/render"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	draftStyle        = lipgloss.NewStyle().Foreground(colorYellow).Underline(true)
)

// panStep is how far one arrow key moves the view in pan mode.
const panStep = 10

type editorMode int

const (
	modeBrowse editorMode = iota
	modeEditing
)

// SaveFunc persists the source text when the user presses "s".
type SaveFunc func(source string) error

// renderedMsg arrives once the controller has no render in flight.
type renderedMsg struct{}

// EditorModel is the bubbletea model for the interactive editor. Node
// selection stands in for pointer clicks: opening an edit targets the
// selected node's on-screen center through the controller's viewport.
type EditorModel struct {
	ctx  context.Context
	ctl  *controller.Controller
	save SaveFunc
	name string

	mode     editorMode
	cursor   int
	shapeIdx int
	dirty    bool
	status   string
	width    int
	height   int
}

// NewEditorModel creates an editor over ctl. name is shown in the header.
func NewEditorModel(ctx context.Context, ctl *controller.Controller, name string, save SaveFunc) EditorModel {
	return EditorModel{ctx: ctx, ctl: ctl, save: save, name: name}
}

func waitRender(ctl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		ctl.Wait()
		return renderedMsg{}
	}
}

func (m EditorModel) Init() tea.Cmd {
	return waitRender(m.ctl)
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case renderedMsg:
		if n := len(m.ctl.Scene().Nodes); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		if err := m.ctl.Err(); err != nil {
			m.status = StyleError.Render(errors.UserMessage(err))
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ctl.FitView(float64(msg.Width), float64(msg.Height), 2)
		return m, nil
	case tea.KeyMsg:
		if m.mode == modeEditing {
			return m.updateEditing(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m EditorModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nodes := m.ctl.Scene().Nodes
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.ctl.PanMode() {
			m.ctl.Viewport().PanBy(0, panStep)
		} else if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.ctl.PanMode() {
			m.ctl.Viewport().PanBy(0, -panStep)
		} else if m.cursor < len(nodes)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.ctl.PanMode() {
			m.ctl.Viewport().PanBy(panStep, 0)
		}
	case "right", "l":
		if m.ctl.PanMode() {
			m.ctl.Viewport().PanBy(-panStep, 0)
		}
	case "0":
		m.ctl.Viewport().Reset()
		m.status = "View reset"
	case "enter", "e":
		return m.openEdit()
	case "o":
		return m.command(m.ctl.ToggleOrientation(m.ctx), "Orientation: "+flowchart.Direction(m.ctl.Source()))
	case "i":
		shapes := flowchart.ShapeNames()
		shape := shapes[m.shapeIdx%len(shapes)]
		m.shapeIdx++
		id, err := m.ctl.InjectShape(m.ctx, shape, "")
		return m.command(err, fmt.Sprintf("Added %s node %s", shape, id))
	case "t":
		theme := render.ThemeDark
		if m.ctl.Theme() == render.ThemeDark {
			theme = render.ThemeLight
		}
		return m.command(m.ctl.SetTheme(m.ctx, theme), "Theme: "+theme)
	case "p":
		pan := !m.ctl.PanMode()
		m.ctl.SetPanMode(pan)
		m.status = fmt.Sprintf("Pan mode: %v", pan)
	case "+", "=":
		m.ctl.Viewport().ZoomAt(0.1, float64(m.width), float64(m.height))
	case "-":
		m.ctl.Viewport().ZoomAt(-0.1, float64(m.width), float64(m.height))
	case "s":
		if m.save == nil {
			m.status = StyleWarning.Render("No file to save to")
			return m, nil
		}
		if err := m.save(m.ctl.Source()); err != nil {
			m.status = StyleError.Render(err.Error())
			return m, nil
		}
		m.dirty = false
		m.status = StyleSuccess.Render("Saved " + m.name)
	}
	return m, nil
}

// command reports the outcome of a controller command and waits for the
// render it started.
func (m EditorModel) command(err error, okStatus string) (tea.Model, tea.Cmd) {
	if err != nil {
		m.status = StyleError.Render(errors.UserMessage(err))
		return m, nil
	}
	m.dirty = true
	m.status = okStatus
	return m, waitRender(m.ctl)
}

func (m EditorModel) openEdit() (tea.Model, tea.Cmd) {
	nodes := m.ctl.Scene().Nodes
	if len(nodes) == 0 {
		return m, nil
	}
	at := m.ctl.Viewport().SceneToScreen(nodes[m.cursor].Bounds.Center())
	sess, err := m.ctl.OpenEdit(m.ctx, at)
	switch {
	case err != nil:
		m.status = StyleError.Render(errors.UserMessage(err))
	case sess == nil:
		m.status = StyleDim.Render("Nothing to edit here (pan mode?)")
	default:
		m.mode = modeEditing
		m.status = "Editing " + sess.NodeID
	}
	return m, nil
}

func (m EditorModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.ctl.ActiveEdit()
	if sess == nil {
		m.mode = modeBrowse
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.ctl.CancelEdit(m.ctx)
		m.mode = modeBrowse
		m.status = "Edit cancelled"
		return m, waitRender(m.ctl)
	case tea.KeyEnter:
		changed, err := m.ctl.CommitEdit(m.ctx)
		if err != nil {
			m.status = StyleError.Render(errors.UserMessage(err))
			return m, nil
		}
		m.mode = modeBrowse
		if !changed {
			if verr := errors.ValidateLabel(sess.Draft); verr != nil {
				m.status = StyleError.Render(errors.UserMessage(verr))
			} else {
				m.status = StyleDim.Render("Label unchanged")
			}
			return m, waitRender(m.ctl)
		}
		m.dirty = true
		m.status = "Renamed " + sess.NodeID
		return m, waitRender(m.ctl)
	case tea.KeyBackspace:
		r := []rune(sess.Draft)
		if len(r) > 0 {
			m.ctl.UpdateDraft(string(r[:len(r)-1]))
		}
	case tea.KeySpace:
		m.ctl.UpdateDraft(sess.Draft + " ")
	case tea.KeyRunes:
		m.ctl.UpdateDraft(sess.Draft + string(msg.Runes))
	}
	return m, nil
}

func (m EditorModel) View() string {
	var b strings.Builder

	sc := m.ctl.Scene()
	title := "diagramsync"
	if m.name != "" {
		title += " · " + m.name
	}
	if m.dirty {
		title += " *"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %s · %s · zoom %.0f%%",
		m.ctl.State(), flowchart.Direction(m.ctl.Source()), m.ctl.Theme(), m.ctl.Viewport().Scale*100)))
	b.WriteString("\n\n")

	source := strings.TrimRight(m.ctl.Source(), "\n")
	if source == "" {
		source = listDimStyle.Render("(empty)")
	}

	var nodes strings.Builder
	edit := m.ctl.ActiveEdit()
	for i, n := range sc.Nodes {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		label := n.Label
		if edit != nil && edit.NodeID == n.ID {
			label = draftStyle.Render(edit.Draft + "▏")
		}
		line := fmt.Sprintf("%s%-6s %-10s %s", cursor, n.ID, n.Shape, label)
		if i == m.cursor {
			nodes.WriteString(listSelectedStyle.Render(line))
		} else {
			nodes.WriteString(listNormalStyle.Render(line))
		}
		nodes.WriteString("\n")
	}
	if len(sc.Nodes) == 0 {
		nodes.WriteString(listDimStyle.Render("no nodes"))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(source),
		" ",
		paneStyle.Render(strings.TrimRight(nodes.String(), "\n"))))
	b.WriteString("\n\n")

	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	if m.mode == modeEditing {
		b.WriteString(listDimStyle.Render("type to edit  ⏎ commit  esc cancel"))
	} else {
		b.WriteString(listDimStyle.Render("↑/↓ select  ⏎ edit  o orient  i inject  t theme  p pan  +/- zoom  0 reset  s save  q quit"))
	}
	return b.String()
}
