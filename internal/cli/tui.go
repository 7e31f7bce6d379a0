package cli

import (
	"context"
	"fmt"
	"image"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/journal"
	"github.com/matzehuels/patchcanvas/pkg/patch"
	"github.com/matzehuels/patchcanvas/pkg/scenario"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	statusStyle     = lipgloss.NewStyle().Foreground(colorGray)
	statusErrStyle  = lipgloss.NewStyle().Foreground(colorRed)
	pendingStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	canvasHelpLines = []string{
		"↑/↓ node  space toggle  enter select  a all  esc clear",
		"shift+←↑↓→ move  o/O connect from (all)  i connect to  c connect pair",
		"d delete  g grid  r resync  u undo  q quit",
	}
)

// tuiCommand creates the tui command.
func (c *CLI) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [scenario.toml]",
		Short: "Edit a scenario's canvas in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runTUI(ctx, args[0])
		},
	}
}

func (c *CLI) runTUI(ctx context.Context, path string) error {
	logger := loggerFromContext(ctx)

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	j, err := c.openJournal(ctx)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	hist := &history{}
	res, err := scenario.Replay(s, scenario.Options{
		Config:    c.cfg().Canvas(),
		Logger:    logger,
		Observers: []canvas.Observer{journal.NewRecorder(ctx, j, logger), hist},
	})
	if res != nil {
		defer res.Close()
	}
	if err != nil {
		return err
	}
	// Scenario steps are not undoable.
	hist.reset()

	m := newCanvasModel(res.Canvas, res.Runtime, res.Names, hist)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := finalModel.(CanvasModel); ok {
		snap := fm.canvas.Snapshot()
		printSuccess("Closed canvas")
		printStats(len(snap.Nodes), len(snap.Edges), len(snap.Selection), snap.State)
	}
	return nil
}

// =============================================================================
// history - undo groups
// =============================================================================

// history collects the mutations of each keyboard command into one undo
// group.
type history struct {
	canvas.NoopObserver

	pending []canvas.Mutation
	groups  [][]journal.Entry
}

func (h *history) Mutated(m canvas.Mutation) { h.pending = append(h.pending, m) }

// commit closes the current group. Commands that changed nothing leave no
// group behind.
func (h *history) commit() {
	if len(h.pending) == 0 {
		return
	}
	group := make([]journal.Entry, len(h.pending))
	for i, m := range h.pending {
		group[i] = journal.Entry{Seq: int64(i + 1), Mutation: m}
	}
	h.groups = append(h.groups, group)
	h.pending = nil
}

// pop removes and returns the newest group.
func (h *history) pop() ([]journal.Entry, bool) {
	if len(h.groups) == 0 {
		return nil, false
	}
	g := h.groups[len(h.groups)-1]
	h.groups = h.groups[:len(h.groups)-1]
	return g, true
}

func (h *history) reset() {
	h.pending = nil
	h.groups = nil
}

var _ canvas.Observer = (*history)(nil)

// =============================================================================
// CanvasModel - Interactive canvas editing
// =============================================================================

// CanvasModel is the bubbletea model for keyboard editing of a canvas.
type CanvasModel struct {
	canvas  *canvas.Canvas
	rt      *patch.Memory
	names   scenario.Names
	history *history

	Cursor int
	Status string
	Err    error
}

// newCanvasModel creates a canvas model. hist must be registered as an
// observer of c.
func newCanvasModel(c *canvas.Canvas, rt *patch.Memory, names scenario.Names, hist *history) CanvasModel {
	return CanvasModel{canvas: c, rt: rt, names: names, history: hist, Status: "ready"}
}

// drainMsg asks the model to run queued runtime work.
type drainMsg struct{}

func (m CanvasModel) waitForWork() tea.Cmd {
	ready := m.canvas.Tasks().Ready()
	return func() tea.Msg {
		<-ready
		return drainMsg{}
	}
}

func (m CanvasModel) Init() tea.Cmd {
	return m.waitForWork()
}

func (m CanvasModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case drainMsg:
		m.canvas.Drain()
		m.clampCursor()
		return m, m.waitForWork()
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.canvas.CancelConnection()
			return m, tea.Quit
		}
		m.Err = nil
		m.key(msg.String())
		m.history.commit()
		m.canvas.Drain()
		m.clampCursor()
	}
	return m, nil
}

// key applies one keyboard command.
func (m *CanvasModel) key(k string) {
	c := m.canvas
	grid := c.Config().GridSize
	n := m.current()

	switch k {
	case "up", "k", "shift+tab":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j", "tab":
		m.Cursor++
	case " ":
		if n != nil {
			c.PressNode(n, canvas.ModShift)
			c.ReleaseNodes(canvas.ModShift)
		}
	case "enter":
		if n != nil {
			c.Selection().Clear()
			c.PressNode(n, 0)
			c.ReleaseNodes(0)
		}
	case "a":
		c.Lasso(image.Rect(-1<<20, -1<<20, 1<<20, 1<<20), false)
	case "esc":
		c.CancelConnection()
		c.Selection().Clear()
		m.Status = "cleared"
	case "shift+left":
		m.move(n, image.Pt(-grid, 0))
	case "shift+right":
		m.move(n, image.Pt(grid, 0))
	case "shift+up":
		m.move(n, image.Pt(0, -grid))
	case "shift+down":
		m.move(n, image.Pt(0, grid))
	case "o", "O":
		if n == nil {
			return
		}
		var mods canvas.Modifiers
		if k == "O" {
			mods = canvas.ModShift
		}
		m.click(n.Iolet(canvas.Outlet, 0), mods)
	case "i":
		if n == nil {
			return
		}
		m.click(n.Iolet(canvas.Inlet, 0), 0)
	case "c":
		m.fail(c.ConnectSelected(), "connected")
	case "d", "delete", "backspace":
		m.fail(c.DeleteSelection(), "deleted")
	case "g":
		on := !c.Config().GridEnabled
		c.SetGridEnabled(on)
		m.Status = fmt.Sprintf("grid %s", onOff(on))
	case "r":
		res := c.Synchronize(true)
		m.Status = fmt.Sprintf("resynced: +%d ~%d -%d", res.Created, res.Updated, res.Destroyed)
	case "u":
		m.undo()
	}
}

// move drags the selection, or the node under the cursor, by offset.
func (m *CanvasModel) move(n *canvas.Node, offset image.Point) {
	if n == nil {
		return
	}
	c := m.canvas
	if !c.Selection().Contains(n) {
		c.Selection().Clear()
	}
	c.PressNode(n, 0)
	c.DragNodes(offset)
	c.ReleaseNodes(0)
	p := n.Position()
	m.Status = fmt.Sprintf("moved to %d,%d", p.X, p.Y)
}

// click presses and releases io in place.
func (m *CanvasModel) click(io *canvas.Iolet, mods canvas.Modifiers) {
	if !io.Alive() {
		m.Err = errors.New(errors.ErrCodeNotFound, "node has no such iolet")
		return
	}
	c := m.canvas
	c.PressIolet(io, io.Centre(), mods)
	c.ReleaseIolet(mods)
	m.Status = c.Connector().State().String()
}

func (m *CanvasModel) undo() {
	group, ok := m.history.pop()
	if !ok {
		m.Status = "nothing to undo"
		return
	}
	n, err := journal.Undo(m.rt, group)
	if err != nil {
		m.Err = err
		return
	}
	m.Status = fmt.Sprintf("undid %d changes", n)
}

func (m *CanvasModel) fail(err error, ok string) {
	if err != nil {
		m.Err = err
		return
	}
	m.Status = ok
}

// current returns the node under the cursor, or nil.
func (m *CanvasModel) current() *canvas.Node {
	nodes := m.alive()
	if m.Cursor < 0 || m.Cursor >= len(nodes) {
		return nil
	}
	return nodes[m.Cursor]
}

func (m *CanvasModel) alive() []*canvas.Node {
	var out []*canvas.Node
	for _, n := range m.canvas.Nodes() {
		if n.Alive() {
			out = append(out, n)
		}
	}
	return out
}

func (m *CanvasModel) clampCursor() {
	if n := len(m.alive()); m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m CanvasModel) View() string {
	var b strings.Builder
	snap := m.canvas.Snapshot()

	b.WriteString(StyleTitle.Render("Canvas"))
	b.WriteString("\n")
	for _, line := range canvasHelpLines {
		b.WriteString(listDimStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(nodeTable(snap, m.names, m.Cursor))
	b.WriteString("\n")
	b.WriteString(edgeLines(snap, m.names))

	for _, p := range snap.Pending {
		dir := "inlet"
		if p.Outlet {
			dir = "outlet"
		}
		b.WriteString(pendingStyle.Render(fmt.Sprintf("  %s:%d %s %s …", m.names.ID(p.From), p.Index, dir, iconArrow)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.Err != nil {
		b.WriteString(statusErrStyle.Render(iconError + " " + errors.UserMessage(m.Err)))
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%s %s · %d selected · %s", iconInfo, m.Status, len(snap.Selection), snap.State)))
	}
	b.WriteString("\n")
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
