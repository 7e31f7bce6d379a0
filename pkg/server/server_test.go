package server

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// newTestCanvas builds a canvas with two connected units, the second one
// selected.
func newTestCanvas(t *testing.T) (*canvas.Canvas, patch.Handle, patch.Handle) {
	t.Helper()
	rt := patch.NewMemory(nil, log.New(io.Discard))
	a := rt.AddUnit(patch.UnitInfo{Class: "osc~", Text: "osc~ 440", Bounds: image.Rect(0, 0, 60, 20),
		Inlets: []patch.PortType{patch.PortSignal}, Outlets: []patch.PortType{patch.PortSignal}})
	b := rt.AddUnit(patch.UnitInfo{Class: "dac~", Text: "dac~", Bounds: image.Rect(0, 80, 40, 100),
		Inlets: []patch.PortType{patch.PortSignal, patch.PortSignal}})
	require.NoError(t, rt.Connect(patch.ConnectionInfo{Src: a, Dst: b}))

	cfg := canvas.DefaultConfig()
	cfg.GridEnabled = false
	c := canvas.New(rt, canvas.Options{Config: cfg, Logger: log.New(io.Discard)})
	t.Cleanup(c.Close)
	c.Selection().Add(c.Node(b))
	return c, a, b
}

func newTestServer(t *testing.T) (*httptest.Server, *Store, patch.Handle, patch.Handle) {
	t.Helper()
	c, a, b := newTestCanvas(t)
	store := NewStore()
	store.Publish(c.Snapshot())
	ts := httptest.NewServer(New(store, log.New(io.Discard)).Handler())
	t.Cleanup(ts.Close)
	return ts, store, a, b
}

func get(t *testing.T, url string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _, _, _ := newTestServer(t)
	resp := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["version"])
}

func TestGraph(t *testing.T) {
	ts, _, a, b := newTestServer(t)
	resp := get(t, ts.URL+"/api/graph")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `"v1"`, resp.Header.Get("ETag"))

	var snap canvas.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, a, snap.Nodes[0].Handle)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, patch.ConnectionInfo{Src: a, Dst: b}, snap.Edges[0].Connection)
	assert.Equal(t, []patch.Handle{b}, snap.Selection)
	assert.Equal(t, "idle", snap.State)
}

func TestGraphNotModified(t *testing.T) {
	ts, store, _, _ := newTestServer(t)
	resp := get(t, ts.URL+"/api/graph", "If-None-Match", `"v1"`)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	store.Publish(canvas.Snapshot{})
	resp = get(t, ts.URL+"/api/graph", "If-None-Match", `"v1"`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"v2"`, resp.Header.Get("ETag"))
}

func TestSelection(t *testing.T) {
	ts, _, _, b := newTestServer(t)
	resp := get(t, ts.URL+"/api/selection")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sel SelectionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sel))
	require.Len(t, sel.Nodes, 1)
	assert.Equal(t, b, sel.Nodes[0].Handle)
	assert.True(t, sel.Nodes[0].Selected)
	assert.Empty(t, sel.Edges)
	assert.EqualValues(t, 1, sel.Version)
}

func TestDOT(t *testing.T) {
	ts, _, a, _ := newTestServer(t)
	resp := get(t, ts.URL+"/api/graph.dot?detailed=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/vnd.graphviz"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "digraph G")
	assert.Contains(t, string(body), a.Short())
}

func TestNode(t *testing.T) {
	ts, _, a, _ := newTestServer(t)

	resp := get(t, ts.URL+"/api/nodes/"+a.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var n canvas.NodeView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&n))
	assert.Equal(t, "osc~ 440", n.Text)

	tests := []struct {
		name   string
		handle string
		status int
	}{
		{"unknown", patch.NewHandle().String(), http.StatusNotFound},
		{"malformed", "not-a-handle", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/nodes/"+tt.handle)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	ts, _, _, _ := newTestServer(t)
	resp := get(t, ts.URL+"/api/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoreConcurrentReads(t *testing.T) {
	c, _, _ := newTestCanvas(t)
	store := NewStore()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			snap, _ := store.Load()
			_ = len(snap.Nodes)
		}
	}()
	for i := 0; i < 100; i++ {
		store.Publish(c.Snapshot())
	}
	<-done
	assert.EqualValues(t, 100, store.Version())
	assert.False(t, store.Modified().IsZero())
}

func TestListenAndServe(t *testing.T) {
	store := NewStore()
	srv := New(store, log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())

	addrc := make(chan net.Addr, 1)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrc <- a }) }()

	var addr net.Addr
	select {
	case addr = <-addrc:
	case err := <-errc:
		t.Fatalf("ListenAndServe: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp := get(t, "http://"+addr.String()+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
