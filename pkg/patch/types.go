package patch

import (
	"fmt"
	"image"
	"strconv"
)

// PortType tags an inlet or outlet as carrying control data or audio signal.
type PortType uint8

const (
	PortData PortType = iota
	PortSignal
)

func (t PortType) String() string {
	if t == PortSignal {
		return "signal"
	}
	return "data"
}

// TextType is the kind of text box a unit was created as.
type TextType uint8

const (
	TextObject  TextType = iota // object box, e.g. [osc~ 440]
	TextMessage                 // message box
	TextComment                 // free comment
	TextAtom                    // number/symbol/list box
)

// AtomFlavor distinguishes the three gatom boxes.
type AtomFlavor uint8

const (
	FlavorNone AtomFlavor = iota
	FlavorFloat
	FlavorSymbol
	FlavorList
)

// UnitInfo is the runtime's description of one unit.
type UnitInfo struct {
	Handle   Handle
	Class    string // runtime class name, e.g. "osc~", "gatom", "canvas"
	Text     string // full box text
	TextType TextType
	Flavor   AtomFlavor

	// Container details, meaningful for the canvas/graph classes.
	IsGraph     bool   // graph-on-parent
	FirstChild  string // class of the first child unit, "array" for array graphs
	Abstraction bool   // loaded from a separate file

	// Hidden units have no box on the canvas and never accept geometry.
	Hidden bool

	Bounds  image.Rectangle
	Inlets  []PortType
	Outlets []PortType
}

// ConnectionInfo names one connection by its endpoints. Two values are equal
// exactly when they describe the same connection.
type ConnectionInfo struct {
	Src    Handle `json:"src"`
	Outlet int    `json:"outlet"`
	Dst    Handle `json:"dst"`
	Inlet  int    `json:"inlet"`
}

func (c ConnectionInfo) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d", c.Src.Short(), c.Outlet, c.Dst.Short(), c.Inlet)
}

// AtomType is the type of a message argument.
type AtomType uint8

const (
	AtomFloat AtomType = iota
	AtomSymbol
)

// Atom is one message argument.
type Atom struct {
	Type   AtomType
	Float  float64
	Symbol string
}

// Float returns a float atom.
func Float(f float64) Atom { return Atom{Type: AtomFloat, Float: f} }

// Symbol returns a symbol atom.
func Symbol(s string) Atom { return Atom{Type: AtomSymbol, Symbol: s} }

func (a Atom) String() string {
	if a.Type == AtomSymbol {
		return a.Symbol
	}
	return strconv.FormatFloat(a.Float, 'g', -1, 64)
}

// Int returns the atom as an int, truncating floats. Symbols yield 0.
func (a Atom) Int() int {
	if a.Type == AtomSymbol {
		return 0
	}
	return int(a.Float)
}

// EventKind classifies change notifications.
type EventKind uint8

const (
	EventGeometry    EventKind = iota + 1 // a unit's bounds changed
	EventText                             // a unit's text, class or ports changed
	EventUnitAdded                        // a unit was created
	EventUnitRemoved                      // a unit was deleted
	EventConnections                      // the connection list changed
	EventMessage                          // a message was delivered to a unit's editor side
	EventReload                           // the whole patch was replaced
)

var eventKindNames = map[EventKind]string{
	EventGeometry:    "geometry",
	EventText:        "text",
	EventUnitAdded:   "unit-added",
	EventUnitRemoved: "unit-removed",
	EventConnections: "connections",
	EventMessage:     "message",
	EventReload:      "reload",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseEventKind is the inverse of [EventKind.String].
func ParseEventKind(s string) (EventKind, bool) {
	for k, name := range eventKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Event is one change notification. Handle is zero for patch-wide events.
// Symbol and Args are set for EventMessage only.
type Event struct {
	Kind   EventKind
	Handle Handle
	Symbol string
	Args   []Atom
}

// Coalescable reports whether two pending copies of e can be merged into one.
// Messages carry payloads and are never merged.
func (e Event) Coalescable() bool {
	return e.Kind != EventMessage
}
