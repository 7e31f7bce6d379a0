package canvas

import (
	"image"
	"slices"
)

// Item is anything that can be selected: *Node or *Edge.
type Item interface {
	Alive() bool
	setSelected(bool)
}

func (n *Node) setSelected(v bool) { n.selected = v }
func (e *Edge) setSelected(v bool) { e.selected = v }

// SelectionSet holds weak references to selected nodes and edges. It never
// keeps an item alive: destroying an item evicts it before anything else
// can observe it.
type SelectionSet struct {
	items    []Item
	onChange func([]Item)
}

// NewSelectionSet returns an empty set. onChange, if not nil, receives the
// contents after every change.
func NewSelectionSet(onChange func([]Item)) *SelectionSet {
	return &SelectionSet{onChange: onChange}
}

// Add selects it and reports whether the set changed.
func (s *SelectionSet) Add(it Item) bool {
	if !s.add(it) {
		return false
	}
	s.changed()
	return true
}

func (s *SelectionSet) add(it Item) bool {
	if it == nil || !it.Alive() || s.index(it) >= 0 {
		return false
	}
	s.items = append(s.items, it)
	it.setSelected(true)
	return true
}

// Remove deselects it and reports whether the set changed.
func (s *SelectionSet) Remove(it Item) bool {
	if !s.remove(it) {
		return false
	}
	s.changed()
	return true
}

func (s *SelectionSet) remove(it Item) bool {
	i := s.index(it)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	it.setSelected(false)
	return true
}

// Toggle flips the membership of it.
func (s *SelectionSet) Toggle(it Item) {
	if s.Contains(it) {
		s.Remove(it)
		return
	}
	s.Add(it)
}

// Clear deselects everything.
func (s *SelectionSet) Clear() {
	if len(s.items) == 0 {
		return
	}
	s.clear()
	s.changed()
}

func (s *SelectionSet) clear() {
	for _, it := range s.items {
		it.setSelected(false)
	}
	s.items = nil
}

// Contains reports whether it is selected and still alive.
func (s *SelectionSet) Contains(it Item) bool {
	return it != nil && it.Alive() && s.index(it) >= 0
}

// Len returns the number of live selected items.
func (s *SelectionSet) Len() int {
	n := 0
	for _, it := range s.items {
		if it.Alive() {
			n++
		}
	}
	return n
}

// Items returns the live selected items in insertion order.
func (s *SelectionSet) Items() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if it.Alive() {
			out = append(out, it)
		}
	}
	return out
}

// ItemsOf returns the live selected items of type T in insertion order.
func ItemsOf[T Item](s *SelectionSet) []T {
	var out []T
	for _, it := range s.items {
		if t, ok := it.(T); ok && it.Alive() {
			out = append(out, t)
		}
	}
	return out
}

// Nodes returns the selected nodes in left-to-right order, ties broken top
// to bottom. This is the order batch operations use.
func (s *SelectionSet) Nodes() []*Node {
	nodes := ItemsOf[*Node](s)
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		pa, pb := a.Position(), b.Position()
		if pa.X != pb.X {
			return pa.X - pb.X
		}
		return pa.Y - pb.Y
	})
	return nodes
}

// Edges returns the selected edges in insertion order.
func (s *SelectionSet) Edges() []*Edge { return ItemsOf[*Edge](s) }

// Lasso selects every node whose bounds intersect r. Unless additive, the
// previous selection is replaced.
func (s *SelectionSet) Lasso(r image.Rectangle, nodes []*Node, additive bool) {
	r = r.Canon()
	// A flat lasso still hits what it crosses.
	if r.Dx() == 0 {
		r.Max.X++
	}
	if r.Dy() == 0 {
		r.Max.Y++
	}
	before := slices.Clone(s.items)
	if !additive {
		s.clear()
	}
	for _, n := range nodes {
		if n.Alive() && n.Bounds().Overlaps(r) {
			s.add(n)
		}
	}
	if !slices.Equal(before, s.items) {
		s.changed()
	}
}

// evict drops a destroyed item without waiting for a later pass.
func (s *SelectionSet) evict(it Item) {
	s.Remove(it)
}

func (s *SelectionSet) index(it Item) int {
	return slices.IndexFunc(s.items, func(x Item) bool { return x == it })
}

func (s *SelectionSet) changed() {
	if s.onChange != nil {
		s.onChange(s.Items())
	}
}
