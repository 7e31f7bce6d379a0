// Package scenario loads scripted editing sessions from TOML.
//
// A scenario seeds a [patch.Memory] runtime with named units and
// connections, then replays a list of gesture steps against a canvas:
//
//	name = "fan out"
//
//	[[unit]]
//	id = "a"
//	text = "t b b"
//	x = 0
//	y = 0
//
//	[[unit]]
//	id = "b"
//	text = "print"
//	x = 50
//	y = 100
//
//	[[connect]]
//	from = "a:0"
//	to = "b:0"
//
//	[[step]]
//	action = "select"
//	nodes = ["a", "b"]
//
//	[expect]
//	edges = 1
//
// Connection endpoints are written "id:index"; the "from" index is an
// outlet and the "to" index an inlet. Steps that name a single iolet use
// "id:out:index" or "id:in:index".
package scenario

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name        string       `toml:"name"`
	Description string       `toml:"description"`
	Units       []Unit       `toml:"unit"`
	Connections []Connection `toml:"connect"`
	Steps       []Step       `toml:"step"`
	Expect      Expect       `toml:"expect"`
}

// Unit seeds one runtime unit. Ports come from the runtime catalog unless
// Inlets or Outlets are given as port strings ("d" data, "s" signal).
type Unit struct {
	ID      string  `toml:"id"`
	Text    string  `toml:"text"`
	X       int     `toml:"x"`
	Y       int     `toml:"y"`
	W       int     `toml:"w"`
	H       int     `toml:"h"`
	Inlets  *string `toml:"inlets"`
	Outlets *string `toml:"outlets"`
	Hidden  bool    `toml:"hidden"`
}

// Connection seeds one runtime connection.
type Connection struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Step is one scripted action. Which fields apply depends on Action.
type Step struct {
	Action string   `toml:"action"`
	Node   string   `toml:"node"`
	Nodes  []string `toml:"nodes"`
	Iolet  string   `toml:"iolet"`
	To     string   `toml:"to"`
	ID     string   `toml:"id"`
	Text   string   `toml:"text"`
	X      int      `toml:"x"`
	Y      int      `toml:"y"`
	W      int      `toml:"w"`
	H      int      `toml:"h"`
	Shift  bool     `toml:"shift"`
	Symbol string   `toml:"symbol"`
	Args   []string `toml:"args"`
}

// Expect is checked against the final canvas by [Result.Check]. Nil fields
// are not checked.
type Expect struct {
	Nodes     *int     `toml:"nodes"`
	Edges     *int     `toml:"edges"`
	Selected  []string `toml:"selected"`
	Connected []string `toml:"connected"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates scenario TOML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "parse scenario")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidScenario, "unknown key %q", undecoded[0].String())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that ids are unique and every reference resolves to a
// seeded or created unit.
func (s *Scenario) Validate() error {
	known := make(map[string]bool, len(s.Units))
	for i, u := range s.Units {
		if u.ID == "" {
			return invalid("unit %d has no id", i)
		}
		if known[u.ID] {
			return invalid("duplicate unit id %q", u.ID)
		}
		if err := errors.ValidateUnitText(u.Text); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidScenario, err, "unit %q", u.ID)
		}
		for _, p := range []*string{u.Inlets, u.Outlets} {
			if p != nil && strings.Trim(*p, "ds") != "" {
				return invalid("unit %q: ports must be written with d and s, got %q", u.ID, *p)
			}
		}
		known[u.ID] = true
	}
	for _, c := range s.Connections {
		for _, ref := range []string{c.From, c.To} {
			id, _, err := parsePort(ref)
			if err != nil {
				return err
			}
			if !known[id] {
				return invalid("connection references unknown unit %q", id)
			}
		}
	}
	for i, st := range s.Steps {
		a, ok := actions[st.Action]
		if !ok {
			return invalid("step %d: unknown action %q", i+1, st.Action)
		}
		if err := a.check(st, known); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidScenario, err, "step %d (%s)", i+1, st.Action)
		}
		if st.Action == "create" && st.ID != "" {
			if known[st.ID] {
				return invalid("step %d: duplicate unit id %q", i+1, st.ID)
			}
			known[st.ID] = true
		}
	}
	for _, id := range s.Expect.Selected {
		if !known[id] {
			return invalid("expect.selected references unknown unit %q", id)
		}
	}
	for _, pair := range s.Expect.Connected {
		if _, _, _, _, err := parseConnected(pair); err != nil {
			return err
		}
	}
	return nil
}

// Seed adds the scenario's units and connections to rt and returns the
// handles by id.
func (s *Scenario) Seed(rt *patch.Memory) (Names, error) {
	names := make(Names, len(s.Units))
	catalog := patch.DefaultCatalog()
	for _, u := range s.Units {
		class, ports := catalog.Resolve(u.Text)
		if u.Inlets != nil {
			ports.Inlets = parsePorts(*u.Inlets)
		}
		if u.Outlets != nil {
			ports.Outlets = parsePorts(*u.Outlets)
		}
		names[u.ID] = rt.AddUnit(patch.UnitInfo{
			Class:   class,
			Text:    u.Text,
			Hidden:  u.Hidden,
			Bounds:  image.Rect(u.X, u.Y, u.X+u.W, u.Y+u.H),
			Inlets:  ports.Inlets,
			Outlets: ports.Outlets,
		})
	}
	for _, c := range s.Connections {
		src, outlet, _ := parsePort(c.From)
		dst, inlet, _ := parsePort(c.To)
		conn := patch.ConnectionInfo{Src: names[src], Outlet: outlet, Dst: names[dst], Inlet: inlet}
		if err := rt.Connect(conn); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "connect %s -> %s", c.From, c.To)
		}
	}
	return names, nil
}

// Names maps scenario ids to runtime handles.
type Names map[string]patch.Handle

// ID returns the scenario id of h, or its short form when h was not named.
func (n Names) ID(h patch.Handle) string {
	for id, v := range n {
		if v == h {
			return id
		}
	}
	return h.Short()
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidScenario, format, args...)
}

func parsePorts(s string) []patch.PortType {
	p := make([]patch.PortType, 0, len(s))
	for _, c := range s {
		if c == 's' {
			p = append(p, patch.PortSignal)
		} else {
			p = append(p, patch.PortData)
		}
	}
	return p
}

// parsePort splits "id:index".
func parsePort(ref string) (string, int, error) {
	id, idx, ok := strings.Cut(ref, ":")
	if !ok || id == "" {
		return "", 0, invalid("port reference %q must be id:index", ref)
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return "", 0, invalid("port reference %q has a bad index", ref)
	}
	return id, n, nil
}

// parseIolet splits "id:out:index" or "id:in:index".
func parseIolet(ref string) (string, canvas.Direction, int, error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, invalid("iolet reference %q must be id:in:index or id:out:index", ref)
	}
	var dir canvas.Direction
	switch parts[1] {
	case "in":
		dir = canvas.Inlet
	case "out":
		dir = canvas.Outlet
	default:
		return "", 0, 0, invalid("iolet reference %q: direction must be in or out", ref)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 0 {
		return "", 0, 0, invalid("iolet reference %q has a bad index", ref)
	}
	return parts[0], dir, n, nil
}

// parseConnected splits "a:0 -> b:1".
func parseConnected(s string) (src string, outlet int, dst string, inlet int, err error) {
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return "", 0, "", 0, invalid("expect.connected entry %q must be a:N -> b:M", s)
	}
	if src, outlet, err = parsePort(strings.TrimSpace(from)); err != nil {
		return
	}
	dst, inlet, err = parsePort(strings.TrimSpace(to))
	return
}
