package patch

import (
	"context"
	"image"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchcanvas/pkg/errors"
)

const defaultBoxHeight = 21

// Memory is an in-process [Runtime]. Its data is guarded internally, so it is
// safe for concurrent use; the callback lock from [Memory.Acquire] is a
// separate, cooperative lock that models the execution thread's lock.
type Memory struct {
	lock chan struct{}

	mu      sync.Mutex
	units   []*UnitInfo
	index   map[Handle]*UnitInfo
	conns   []ConnectionInfo
	catalog Catalog
	subs    map[int]func(Event)
	nextSub int
	ticks   uint64

	logger *log.Logger
}

// NewMemory creates an empty runtime. A nil catalog means [DefaultCatalog];
// a nil logger means log.Default().
func NewMemory(catalog Catalog, logger *log.Logger) *Memory {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Memory{
		lock:    make(chan struct{}, 1),
		index:   make(map[Handle]*UnitInfo),
		catalog: catalog,
		subs:    make(map[int]func(Event)),
		logger:  logger.With("component", "runtime"),
	}
}

// =============================================================================
// Locking
// =============================================================================

// Acquire takes the callback lock, waiting at most timeout. A zero timeout
// tries exactly once.
func (m *Memory) Acquire(timeout time.Duration) (func(), bool) {
	if timeout <= 0 {
		select {
		case m.lock <- struct{}{}:
			return m.releaser(), true
		default:
			return nil, false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m.lock <- struct{}{}:
		return m.releaser(), true
	case <-timer.C:
		return nil, false
	}
}

func (m *Memory) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-m.lock }) }
}

// Run simulates the execution thread: every interval it takes the callback
// lock, advances one tick and releases it. Run blocks until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case m.lock <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			m.mu.Lock()
			m.ticks++
			m.mu.Unlock()
			<-m.lock
		}
	}
}

// Ticks returns the number of execution ticks run so far.
func (m *Memory) Ticks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

// =============================================================================
// Notifications
// =============================================================================

// Subscribe registers fn for change notifications.
func (m *Memory) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// emit delivers events after m.mu has been released.
func (m *Memory) emit(events ...Event) {
	m.mu.Lock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, id := range slices.Sorted(maps.Keys(m.subs)) {
		subs = append(subs, m.subs[id])
	}
	m.mu.Unlock()

	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}

// =============================================================================
// Queries
// =============================================================================

// Units returns every unit in creation order.
func (m *Memory) Units() []UnitInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]UnitInfo, len(m.units))
	for i, u := range m.units {
		out[i] = cloneUnit(u)
	}
	return out
}

// Unit returns the unit named by h.
func (m *Memory) Unit(h Handle) (UnitInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.index[h]
	if !ok {
		return UnitInfo{}, false
	}
	return cloneUnit(u), true
}

// Valid reports whether h still names a unit.
func (m *Memory) Valid(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[h]
	return ok
}

// Connections returns every connection in creation order.
func (m *Memory) Connections() []ConnectionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.conns)
}

// HasConnection reports whether c exists.
func (m *Memory) HasConnection(c ConnectionInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.conns, c)
}

// CanConnect reports whether Connect(c) would succeed.
func (m *Memory) CanConnect(c ConnectionInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkConnect(c) == nil
}

func (m *Memory) checkConnect(c ConnectionInfo) error {
	src, ok := m.index[c.Src]
	if !ok {
		return errors.New(errors.ErrCodeStaleHandle, "source unit %s does not exist", c.Src.Short())
	}
	dst, ok := m.index[c.Dst]
	if !ok {
		return errors.New(errors.ErrCodeStaleHandle, "destination unit %s does not exist", c.Dst.Short())
	}
	if c.Src == c.Dst {
		return errors.New(errors.ErrCodeInvalidConnection, "cannot connect a unit to itself")
	}
	if c.Outlet < 0 || c.Outlet >= len(src.Outlets) {
		return errors.New(errors.ErrCodeInvalidConnection, "outlet %d out of range", c.Outlet)
	}
	if c.Inlet < 0 || c.Inlet >= len(dst.Inlets) {
		return errors.New(errors.ErrCodeInvalidConnection, "inlet %d out of range", c.Inlet)
	}
	if src.Outlets[c.Outlet] == PortSignal && dst.Inlets[c.Inlet] != PortSignal {
		return errors.New(errors.ErrCodeInvalidConnection, "signal outlet into data inlet")
	}
	if slices.Contains(m.conns, c) {
		return errors.New(errors.ErrCodeInvalidConnection, "already connected")
	}
	return nil
}

// =============================================================================
// Mutations
// =============================================================================

// AddUnit inserts a fully described unit, assigning a handle when info has
// none. Missing bounds are derived from the text.
func (m *Memory) AddUnit(info UnitInfo) Handle {
	if info.Handle.IsZero() {
		info.Handle = NewHandle()
	}
	if info.Bounds.Dx() <= 0 || info.Bounds.Dy() <= 0 {
		at := info.Bounds.Min
		info.Bounds = image.Rect(at.X, at.Y, at.X+boxWidth(info.Text), at.Y+defaultBoxHeight)
	}
	u := cloneUnit(&info)

	m.mu.Lock()
	m.units = append(m.units, &u)
	m.index[u.Handle] = &u
	m.mu.Unlock()

	m.logger.Debug("unit added", "handle", u.Handle.Short(), "class", u.Class)
	m.emit(Event{Kind: EventUnitAdded, Handle: u.Handle})
	return u.Handle
}

// CreateUnit creates an object box from text at the given canvas position.
func (m *Memory) CreateUnit(text string, at image.Point) (Handle, error) {
	if err := errors.ValidateUnitText(text); err != nil {
		return Handle{}, err
	}
	class, p := m.catalog.Resolve(text)
	return m.AddUnit(UnitInfo{
		Class:   class,
		Text:    text,
		Bounds:  image.Rect(at.X, at.Y, at.X+boxWidth(text), at.Y+defaultBoxHeight),
		Inlets:  p.Inlets,
		Outlets: p.Outlets,
	}), nil
}

// RemoveUnits deletes units and every connection touching them. Unknown
// handles are skipped.
func (m *Memory) RemoveUnits(hs []Handle) error {
	m.mu.Lock()
	var events []Event
	removed := make(map[Handle]bool, len(hs))
	for _, h := range hs {
		if _, ok := m.index[h]; ok {
			removed[h] = true
			delete(m.index, h)
			events = append(events, Event{Kind: EventUnitRemoved, Handle: h})
		}
	}
	m.units = slices.DeleteFunc(m.units, func(u *UnitInfo) bool { return removed[u.Handle] })
	before := len(m.conns)
	m.conns = slices.DeleteFunc(m.conns, func(c ConnectionInfo) bool { return removed[c.Src] || removed[c.Dst] })
	if len(m.conns) != before {
		events = append(events, Event{Kind: EventConnections})
	}
	m.mu.Unlock()

	m.emit(events...)
	return nil
}

// Connect creates a connection.
func (m *Memory) Connect(c ConnectionInfo) error {
	m.mu.Lock()
	if err := m.checkConnect(c); err != nil {
		m.mu.Unlock()
		return err
	}
	m.conns = append(m.conns, c)
	m.mu.Unlock()

	m.logger.Debug("connected", "connection", c.String())
	m.emit(Event{Kind: EventConnections})
	return nil
}

// Disconnect removes a connection.
func (m *Memory) Disconnect(c ConnectionInfo) error {
	m.mu.Lock()
	i := slices.Index(m.conns, c)
	if i < 0 {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "connection %s does not exist", c)
	}
	m.conns = slices.Delete(m.conns, i, i+1)
	m.mu.Unlock()

	m.emit(Event{Kind: EventConnections})
	return nil
}

// MoveUnits translates every listed unit by (dx, dy) as one batch.
func (m *Memory) MoveUnits(hs []Handle, dx, dy int) error {
	d := image.Pt(dx, dy)
	m.mu.Lock()
	var events []Event
	for _, h := range hs {
		u, ok := m.index[h]
		if !ok {
			continue
		}
		u.Bounds = u.Bounds.Add(d)
		events = append(events, Event{Kind: EventGeometry, Handle: h})
	}
	m.mu.Unlock()

	m.emit(events...)
	return nil
}

// SetBounds replaces a unit's bounds.
func (m *Memory) SetBounds(h Handle, r image.Rectangle) error {
	m.mu.Lock()
	u, ok := m.index[h]
	if !ok {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeStaleHandle, "unit %s does not exist", h.Short())
	}
	u.Bounds = r
	m.mu.Unlock()

	m.emit(Event{Kind: EventGeometry, Handle: h})
	return nil
}

// SetText retypes a unit. The class and ports are re-derived from the text,
// and connections to ports that no longer exist are dropped.
func (m *Memory) SetText(h Handle, text string) error {
	if err := errors.ValidateUnitText(text); err != nil {
		return err
	}
	class, p := m.catalog.Resolve(text)

	m.mu.Lock()
	u, ok := m.index[h]
	if !ok {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeStaleHandle, "unit %s does not exist", h.Short())
	}
	u.Class, u.Text, u.Inlets, u.Outlets = class, text, p.Inlets, p.Outlets
	u.Bounds.Max.X = u.Bounds.Min.X + boxWidth(text)
	before := len(m.conns)
	m.conns = slices.DeleteFunc(m.conns, func(c ConnectionInfo) bool {
		return (c.Src == h && c.Outlet >= len(u.Outlets)) || (c.Dst == h && c.Inlet >= len(u.Inlets))
	})
	events := []Event{{Kind: EventText, Handle: h}}
	if len(m.conns) != before {
		events = append(events, Event{Kind: EventConnections})
	}
	m.mu.Unlock()

	m.emit(events...)
	return nil
}

// Send delivers a message to a unit's editor side. Geometry messages
// (pos, delta, size, dim, width, height) are applied to the unit first.
func (m *Memory) Send(h Handle, symbol string, args ...Atom) error {
	m.mu.Lock()
	u, ok := m.index[h]
	if !ok {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeStaleHandle, "unit %s does not exist", h.Short())
	}
	applyGeometryMessage(u, symbol, args)
	m.mu.Unlock()

	m.emit(Event{Kind: EventMessage, Handle: h, Symbol: symbol, Args: slices.Clone(args)})
	return nil
}

// Reload replaces the whole graph, issuing fresh handles for every unit.
// Connections are carried over to the new handles.
func (m *Memory) Reload() {
	m.mu.Lock()
	remap := make(map[Handle]Handle, len(m.units))
	m.index = make(map[Handle]*UnitInfo, len(m.units))
	for _, u := range m.units {
		nh := NewHandle()
		remap[u.Handle] = nh
		u.Handle = nh
		m.index[nh] = u
	}
	for i, c := range m.conns {
		m.conns[i].Src, m.conns[i].Dst = remap[c.Src], remap[c.Dst]
	}
	m.mu.Unlock()

	m.emit(Event{Kind: EventReload})
}

func applyGeometryMessage(u *UnitInfo, symbol string, args []Atom) {
	arg := func(i int) int {
		if i < len(args) {
			return args[i].Int()
		}
		return 0
	}
	b := u.Bounds
	switch symbol {
	case "pos":
		u.Bounds = b.Add(image.Pt(arg(0), arg(1)).Sub(b.Min))
	case "delta":
		u.Bounds = b.Add(image.Pt(arg(0), arg(1)))
	case "size":
		if len(args) == 1 {
			u.Bounds.Max = b.Min.Add(image.Pt(arg(0), arg(0)))
		} else if len(args) > 1 {
			u.Bounds.Max = b.Min.Add(image.Pt(arg(0), arg(1)))
		}
	case "dim":
		u.Bounds.Max = b.Min.Add(image.Pt(arg(0), arg(1)))
	case "width":
		u.Bounds.Max.X = b.Min.X + arg(0)
	case "height":
		u.Bounds.Max.Y = b.Min.Y + arg(0)
	}
}

func cloneUnit(u *UnitInfo) UnitInfo {
	c := *u
	c.Inlets = slices.Clone(u.Inlets)
	c.Outlets = slices.Clone(u.Outlets)
	return c
}

var _ Runtime = (*Memory)(nil)
