package remote

import (
	"encoding/json"

	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// message is the wire form of a patch.Event.
type message struct {
	Source string       `json:"source"`
	Kind   string       `json:"kind"`
	Handle patch.Handle `json:"handle,omitzero"`
	Symbol string       `json:"symbol,omitempty"`
	Args   []any        `json:"args,omitempty"`
}

// Encode serializes ev tagged with source.
func Encode(ev patch.Event, source string) ([]byte, error) {
	if ev.Kind.String() == "unknown" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot encode event kind %d", ev.Kind)
	}
	m := message{Source: source, Kind: ev.Kind.String(), Handle: ev.Handle, Symbol: ev.Symbol}
	for _, a := range ev.Args {
		if a.Type == patch.AtomSymbol {
			m.Args = append(m.Args, a.Symbol)
		} else {
			m.Args = append(m.Args, a.Float)
		}
	}
	return json.Marshal(m)
}

// Decode parses a message and returns the event and its source.
func Decode(data []byte) (patch.Event, string, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return patch.Event{}, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed event")
	}
	kind, ok := patch.ParseEventKind(m.Kind)
	if !ok {
		return patch.Event{}, "", errors.New(errors.ErrCodeInvalidInput, "unknown event kind %q", m.Kind)
	}
	ev := patch.Event{Kind: kind, Handle: m.Handle, Symbol: m.Symbol}
	for i, raw := range m.Args {
		switch v := raw.(type) {
		case float64:
			ev.Args = append(ev.Args, patch.Float(v))
		case string:
			ev.Args = append(ev.Args, patch.Symbol(v))
		default:
			return patch.Event{}, "", errors.New(errors.ErrCodeInvalidInput, "argument %d has unsupported type %T", i, raw)
		}
	}
	return ev, m.Source, nil
}
