package server

import (
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
)

// Store holds the latest published snapshot. The canvas goroutine publishes;
// HTTP handlers read concurrently.
type Store struct {
	mu       sync.RWMutex
	snap     canvas.Snapshot
	version  uint64
	modified time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{snap: canvas.Snapshot{Nodes: []canvas.NodeView{}, Edges: []canvas.EdgeView{}, State: canvas.Idle.String()}}
}

// Publish replaces the stored snapshot and bumps the version.
func (s *Store) Publish(snap canvas.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.version++
	s.modified = time.Now()
	s.mu.Unlock()
}

// Load returns the current snapshot and its version. The slices in the
// snapshot must not be modified.
func (s *Store) Load() (canvas.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.version
}

// Version returns the number of publishes so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Modified returns the time of the last publish.
func (s *Store) Modified() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// SelectionView is the payload of GET /api/selection.
type SelectionView struct {
	Version uint64            `json:"version"`
	Nodes   []canvas.NodeView `json:"nodes"`
	Edges   []canvas.EdgeView `json:"edges"`
}

func selectionOf(snap canvas.Snapshot, version uint64) SelectionView {
	v := SelectionView{Version: version, Nodes: []canvas.NodeView{}, Edges: []canvas.EdgeView{}}
	// Selection order is geometric; keep it.
	for _, h := range snap.Selection {
		i := slices.IndexFunc(snap.Nodes, func(n canvas.NodeView) bool { return n.Handle == h })
		if i >= 0 {
			v.Nodes = append(v.Nodes, snap.Nodes[i])
		}
	}
	for _, e := range snap.Edges {
		if e.Selected {
			v.Edges = append(v.Edges, e)
		}
	}
	return v
}
