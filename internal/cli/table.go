package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/scenario"
)

var headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// nodeTable renders the nodes of snap. cursor is the row to highlight, or -1.
func nodeTable(snap canvas.Snapshot, names scenario.Names, cursor int) string {
	rows := make([][]string, 0, len(snap.Nodes))
	for i, n := range snap.Nodes {
		mark := "  "
		if i == cursor {
			mark = "▸ "
		}
		sel := ""
		if n.Selected {
			sel = "●"
		}
		b := n.Bounds
		rows = append(rows, []string{
			mark,
			sel,
			names.ID(n.Handle),
			n.Text,
			n.Class,
			fmt.Sprintf("%d,%d", b.X, b.Y),
			fmt.Sprintf("%dx%d", b.W, b.H),
			fmt.Sprintf("%d/%d", len(n.Inlets), len(n.Outlets)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "ID", "Text", "Class", "Pos", "Size", "In/Out").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= len(snap.Nodes) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col >= 5 {
				base = base.Foreground(colorDim)
			}
			if snap.Nodes[row].Selected {
				base = base.Foreground(colorCyan)
			}
			if row == cursor {
				base = base.Bold(true)
			}
			return base
		})
	return t.Render()
}

// edgeLines renders one line per edge as "a:0 → b:1".
func edgeLines(snap canvas.Snapshot, names scenario.Names) string {
	var b strings.Builder
	for _, e := range snap.Edges {
		c := e.Connection
		line := fmt.Sprintf("%s:%d %s %s:%d", names.ID(c.Src), c.Outlet, iconArrow, names.ID(c.Dst), c.Inlet)
		switch {
		case e.Selected:
			line = StyleHighlight.Render(line)
		case e.Signal:
			line = StyleValue.Render(line + " ~")
		default:
			line = StyleDim.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}
