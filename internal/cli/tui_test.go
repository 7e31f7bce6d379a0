package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/scenario"
)

const pairScenario = `
[[unit]]
id = "osc"
text = "osc~ 440"
x = 0
y = 0
w = 60
h = 20

[[unit]]
id = "dac"
text = "dac~"
x = 0
y = 100
w = 60
h = 20
`

func newTestModel(t *testing.T) CanvasModel {
	t.Helper()
	s, err := scenario.Parse([]byte(pairScenario))
	if err != nil {
		t.Fatal(err)
	}
	hist := &history{}
	cfg := canvas.DefaultConfig()
	res, err := scenario.Replay(s, scenario.Options{Config: cfg, Observers: []canvas.Observer{hist}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(res.Close)
	return newCanvasModel(res.Canvas, res.Runtime, res.Names, hist)
}

func press(t *testing.T, m CanvasModel, keys ...tea.KeyMsg) CanvasModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(CanvasModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
)

func TestCanvasModelSelectAndConnect(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, keySpace, keyDown, keySpace)
	if got := m.canvas.Selection().Len(); got != 2 {
		t.Fatalf("selected %d nodes, want 2", got)
	}

	m = press(t, m, runes("c"))
	if m.Err != nil {
		t.Fatalf("connect: %v", m.Err)
	}
	if got := len(m.canvas.Edges()); got != 1 {
		t.Fatalf("edges = %d, want 1", got)
	}

	m = press(t, m, runes("u"))
	if m.Err != nil {
		t.Fatalf("undo: %v", m.Err)
	}
	if got := len(m.canvas.Edges()); got != 0 {
		t.Errorf("edges after undo = %d, want 0", got)
	}

	m = press(t, m, runes("u"))
	if m.Status != "nothing to undo" {
		t.Errorf("status = %q, want nothing to undo", m.Status)
	}
}

func TestCanvasModelClickToConnect(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, runes("o"))
	if got := m.canvas.Connector().State(); got != canvas.CreatingFromSource {
		t.Fatalf("state = %v, want creating", got)
	}
	if !strings.Contains(m.View(), "outlet") {
		t.Error("view does not show the pending connection")
	}

	m = press(t, m, keyDown, runes("i"))
	if got := m.canvas.Connector().State(); got != canvas.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if got := len(m.canvas.Edges()); got != 1 {
		t.Errorf("edges = %d, want 1", got)
	}
}

func TestCanvasModelMoveSnapsToGrid(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, keyDown, tea.KeyMsg{Type: tea.KeyShiftRight})
	n := m.current()
	if n == nil {
		t.Fatal("no node under cursor")
	}
	if got := n.Position().X; got != 25 {
		t.Errorf("x = %d, want 25", got)
	}

	m = press(t, m, runes("u"))
	if got := n.Position().X; got != 0 {
		t.Errorf("x after undo = %d, want 0", got)
	}
}

func TestCanvasModelCursorClamps(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, keyUp, keyUp)
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.Cursor)
	}
	m = press(t, m, keyDown, keyDown, keyDown)
	if m.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.Cursor)
	}
}

func TestCanvasModelDeleteNeedsNothingSelected(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, runes("d"))
	if m.Err != nil {
		t.Errorf("delete with empty selection: %v", m.Err)
	}
	if got := len(m.alive()); got != 2 {
		t.Errorf("nodes = %d, want 2", got)
	}

	m = press(t, m, keySpace, runes("d"))
	if got := len(m.alive()); got != 1 {
		t.Errorf("nodes after delete = %d, want 1", got)
	}
}

func TestHistoryGroups(t *testing.T) {
	h := &history{}
	h.commit()
	if _, ok := h.pop(); ok {
		t.Fatal("empty commit should not create a group")
	}

	h.Mutated(canvas.Mutation{Kind: canvas.MutationConnect})
	h.Mutated(canvas.Mutation{Kind: canvas.MutationGeometry})
	h.commit()
	h.Mutated(canvas.Mutation{Kind: canvas.MutationRemove})
	h.commit()

	g, ok := h.pop()
	if !ok || len(g) != 1 || g[0].Mutation.Kind != canvas.MutationRemove {
		t.Errorf("newest group = %+v", g)
	}
	g, ok = h.pop()
	if !ok || len(g) != 2 {
		t.Errorf("second group = %+v", g)
	}
}
