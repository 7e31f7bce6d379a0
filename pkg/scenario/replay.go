package scenario

import (
	"fmt"
	"image"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Options configures [Replay]. A zero Config means [canvas.DefaultConfig].
type Options struct {
	Config    canvas.Config
	Logger    *log.Logger
	Observers []canvas.Observer
	// Progress, when set, is called after every completed step.
	Progress func(done, total int)
}

// Result is a replayed scenario. The canvas stays open until Close.
type Result struct {
	Scenario *Scenario
	Runtime  *patch.Memory
	Canvas   *canvas.Canvas
	Names    Names
	Steps    int
}

// Replay seeds a fresh runtime, opens a canvas on it and runs every step.
// On a step error the partial result is returned with the error.
func Replay(s *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	cfg := opts.Config
	if cfg == (canvas.Config{}) {
		cfg = canvas.DefaultConfig()
	}
	rt := patch.NewMemory(nil, logger)
	names, err := s.Seed(rt)
	if err != nil {
		return nil, err
	}
	c := canvas.New(rt, canvas.Options{Config: cfg, Logger: logger, Observers: opts.Observers})
	res := &Result{Scenario: s, Runtime: rt, Canvas: c, Names: names}

	r := NewRunner(c, rt, names)
	for i, st := range s.Steps {
		if err := r.Step(st); err != nil {
			return res, errors.Wrap(errors.ErrCodeInvalidScenario, err, "step %d (%s)", i+1, st.Action)
		}
		res.Steps++
		if opts.Progress != nil {
			opts.Progress(res.Steps, len(s.Steps))
		}
	}
	return res, nil
}

// Close detaches the canvas from the runtime.
func (r *Result) Close() { r.Canvas.Close() }

// Check compares the final canvas with the scenario's expectations.
func (r *Result) Check() error {
	exp := r.Scenario.Expect
	var nodes []*canvas.Node
	for _, n := range r.Canvas.Nodes() {
		if n.Alive() {
			nodes = append(nodes, n)
		}
	}
	if exp.Nodes != nil && len(nodes) != *exp.Nodes {
		return fmt.Errorf("expected %d nodes, got %d", *exp.Nodes, len(nodes))
	}
	edges := r.Canvas.Edges()
	if exp.Edges != nil && len(edges) != *exp.Edges {
		return fmt.Errorf("expected %d edges, got %d", *exp.Edges, len(edges))
	}
	if exp.Selected != nil {
		var got []string
		for _, n := range r.Canvas.Selection().Nodes() {
			got = append(got, r.Names.ID(n.Handle()))
		}
		want := slices.Clone(exp.Selected)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("expected selection %v, got %v", want, got)
		}
	}
	for _, pair := range exp.Connected {
		src, outlet, dst, inlet, _ := parseConnected(pair)
		conn := patch.ConnectionInfo{Src: r.Names[src], Outlet: outlet, Dst: r.Names[dst], Inlet: inlet}
		if !r.Canvas.Edge(conn).Alive() {
			return fmt.Errorf("expected edge %s", pair)
		}
	}
	return nil
}

// =============================================================================
// Runner
// =============================================================================

// Runner executes steps against a canvas. Runtime events are drained after
// every step, as the UI loop would between input events.
type Runner struct {
	c     *canvas.Canvas
	rt    *patch.Memory
	names Names
}

// NewRunner creates a runner. names is extended by create steps.
func NewRunner(c *canvas.Canvas, rt *patch.Memory, names Names) *Runner {
	if names == nil {
		names = Names{}
	}
	return &Runner{c: c, rt: rt, names: names}
}

// Step runs one step.
func (r *Runner) Step(st Step) error {
	a, ok := actions[st.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", st.Action)
	}
	err := a.run(r, st)
	r.c.Drain()
	return err
}

func (r *Runner) node(id string) (*canvas.Node, error) {
	h, ok := r.names[id]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", id)
	}
	n := r.c.Node(h)
	if !n.Alive() {
		return nil, errors.New(errors.ErrCodeStaleHandle, "unit %q is no longer on the canvas", id)
	}
	return n, nil
}

func (r *Runner) iolet(ref string) (*canvas.Iolet, error) {
	id, dir, idx, err := parseIolet(ref)
	if err != nil {
		return nil, err
	}
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	io := n.Iolet(dir, idx)
	if !io.Alive() {
		return nil, fmt.Errorf("%s has no %s %d", id, dir, idx)
	}
	return io, nil
}

// locked runs fn under the runtime lock.
func (r *Runner) locked(fn func() error) error {
	release, ok := r.rt.Acquire(time.Second)
	if !ok {
		return errors.New(errors.ErrCodeBackendBusy, "runtime lock not acquired")
	}
	defer release()
	return fn()
}

func mods(st Step) canvas.Modifiers {
	if st.Shift {
		return canvas.ModShift
	}
	return 0
}

func atoms(args []string) []patch.Atom {
	out := make([]patch.Atom, len(args))
	for i, a := range args {
		if f, err := strconv.ParseFloat(a, 64); err == nil {
			out[i] = patch.Float(f)
		} else {
			out[i] = patch.Symbol(a)
		}
	}
	return out
}

// =============================================================================
// Actions
// =============================================================================

type action struct {
	check func(st Step, known map[string]bool) error
	run   func(r *Runner, st Step) error
}

func none(Step, map[string]bool) error { return nil }

func needNode(st Step, known map[string]bool) error {
	if !known[st.Node] {
		return fmt.Errorf("unknown node %q", st.Node)
	}
	return nil
}

func needIolet(field string) func(Step, map[string]bool) error {
	return func(st Step, known map[string]bool) error {
		ref := st.Iolet
		if field == "to" {
			ref = st.To
		}
		id, _, _, err := parseIolet(ref)
		if err != nil {
			return err
		}
		if !known[id] {
			return fmt.Errorf("unknown node %q", id)
		}
		return nil
	}
}

var actions = map[string]action{
	"select": {
		check: func(st Step, known map[string]bool) error {
			for _, id := range st.Nodes {
				if !known[id] {
					return fmt.Errorf("unknown node %q", id)
				}
			}
			return nil
		},
		run: func(r *Runner, st Step) error {
			if !st.Shift {
				r.c.Selection().Clear()
			}
			for _, id := range st.Nodes {
				n, err := r.node(id)
				if err != nil {
					return err
				}
				r.c.Selection().Add(n)
			}
			return nil
		},
	},
	"deselect": {check: none, run: func(r *Runner, st Step) error {
		r.c.Selection().Clear()
		return nil
	}},
	"lasso": {check: none, run: func(r *Runner, st Step) error {
		r.c.Lasso(image.Rect(st.X, st.Y, st.X+st.W, st.Y+st.H), st.Shift)
		return nil
	}},
	"press": {check: needNode, run: func(r *Runner, st Step) error {
		n, err := r.node(st.Node)
		if err != nil {
			return err
		}
		r.c.PressNode(n, mods(st))
		return nil
	}},
	"drag": {check: none, run: func(r *Runner, st Step) error {
		r.c.DragNodes(image.Pt(st.X, st.Y))
		return nil
	}},
	"release": {check: none, run: func(r *Runner, st Step) error {
		r.c.ReleaseNodes(mods(st))
		return nil
	}},
	"move": {check: needNode, run: func(r *Runner, st Step) error {
		n, err := r.node(st.Node)
		if err != nil {
			return err
		}
		r.c.PressNode(n, mods(st))
		r.c.DragNodes(image.Pt(st.X, st.Y))
		r.c.ReleaseNodes(mods(st))
		return nil
	}},
	"cancel": {check: none, run: func(r *Runner, st Step) error {
		r.c.CancelDrag()
		r.c.CancelConnection()
		return nil
	}},
	"press_iolet": {check: needIolet("iolet"), run: func(r *Runner, st Step) error {
		io, err := r.iolet(st.Iolet)
		if err != nil {
			return err
		}
		r.c.PressIolet(io, io.Centre(), mods(st))
		return nil
	}},
	"drag_iolet": {
		check: func(st Step, known map[string]bool) error {
			if st.To == "" {
				return nil
			}
			return needIolet("to")(st, known)
		},
		run: func(r *Runner, st Step) error {
			pos := image.Pt(st.X, st.Y)
			if st.To != "" {
				io, err := r.iolet(st.To)
				if err != nil {
					return err
				}
				pos = io.Centre()
			}
			r.c.DragIolet(pos)
			return nil
		},
	},
	"release_iolet": {check: none, run: func(r *Runner, st Step) error {
		r.c.ReleaseIolet(mods(st))
		return nil
	}},
	"connect": {
		check: func(st Step, known map[string]bool) error {
			if err := needIolet("iolet")(st, known); err != nil {
				return err
			}
			return needIolet("to")(st, known)
		},
		run: func(r *Runner, st Step) error {
			from, err := r.iolet(st.Iolet)
			if err != nil {
				return err
			}
			to, err := r.iolet(st.To)
			if err != nil {
				return err
			}
			r.c.PressIolet(from, from.Centre(), 0)
			r.c.DragIolet(to.Centre())
			r.c.ReleaseIolet(mods(st))
			return nil
		},
	},
	"create": {
		check: func(st Step, known map[string]bool) error {
			return errors.ValidateUnitText(st.Text)
		},
		run: func(r *Runner, st Step) error {
			n, err := r.c.CreateNode(st.Text, image.Pt(st.X, st.Y))
			if err != nil {
				return err
			}
			if st.ID != "" {
				r.names[st.ID] = n.Handle()
			}
			return nil
		},
	},
	"delete": {check: none, run: func(r *Runner, st Step) error {
		return r.c.DeleteSelection()
	}},
	"connect_selected": {check: none, run: func(r *Runner, st Step) error {
		return r.c.ConnectSelected()
	}},
	"resize": {check: needNode, run: func(r *Runner, st Step) error {
		n, err := r.node(st.Node)
		if err != nil {
			return err
		}
		p := n.Position()
		return r.c.ResizeNode(n, image.Rect(p.X, p.Y, p.X+st.W, p.Y+st.H))
	}},
	"send": {check: needNode, run: func(r *Runner, st Step) error {
		n, err := r.node(st.Node)
		if err != nil {
			return err
		}
		return r.locked(func() error { return r.rt.Send(n.Handle(), st.Symbol, atoms(st.Args)...) })
	}},
	"retext": {check: needNode, run: func(r *Runner, st Step) error {
		n, err := r.node(st.Node)
		if err != nil {
			return err
		}
		return r.locked(func() error { return r.rt.SetText(n.Handle(), st.Text) })
	}},
	"sync": {check: none, run: func(r *Runner, st Step) error {
		r.c.Synchronize(true)
		return nil
	}},
}
