package canvas

import (
	"slices"
	"time"

	"github.com/matzehuels/patchcanvas/pkg/observability"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// SyncResult counts what one synchronization pass changed.
type SyncResult struct {
	Created        int
	Updated        int
	Destroyed      int
	EdgesCreated   int
	EdgesDestroyed int
	// Skipped is set when the runtime lock could not be taken; nothing was
	// changed and a later pass will catch up.
	Skipped bool
}

// Changed reports whether the pass altered anything.
func (r SyncResult) Changed() bool {
	return r.Created+r.Updated+r.Destroyed+r.EdgesCreated+r.EdgesDestroyed > 0
}

// Synchronize makes nodes and edges an exact, order-preserving mirror of the
// runtime. With preservePositions, existing nodes keep their current
// geometry; new nodes always take the runtime's. Calling it twice without
// an intervening runtime change changes nothing the second time.
func (c *Canvas) Synchronize(preservePositions bool) SyncResult {
	start := time.Now()
	release, ok := c.acquire("synchronize")
	if !ok {
		observability.Sync().OnSyncSkipped("lock")
		return SyncResult{Skipped: true}
	}
	units := c.rt.Units()
	conns := c.rt.Connections()
	release()

	var res SyncResult
	var created []*Node
	var createdEdges []*Edge

	// Nodes, in runtime order.
	seen := make(map[patch.Handle]bool, len(units))
	order := make([]*Node, 0, len(units))
	for _, u := range units {
		if u.Handle.IsZero() || seen[u.Handle] {
			continue
		}
		seen[u.Handle] = true
		if n := c.byHandle[u.Handle]; n.Alive() {
			changed, dropped := n.apply(u, preservePositions, c.cfg.MinNodeSize)
			for _, io := range dropped {
				res.EdgesDestroyed += c.destroyEdgesAt(io)
			}
			if changed {
				res.Updated++
			}
			order = append(order, n)
			continue
		}
		n := newNode(u, c.cfg.MinNodeSize)
		c.byHandle[u.Handle] = n
		order = append(order, n)
		created = append(created, n)
		res.Created++
	}
	for _, n := range c.nodes {
		if !seen[n.handle] && n.Alive() {
			res.EdgesDestroyed += c.destroyNode(n)
			res.Destroyed++
		}
	}
	c.nodes = order

	// Edges, in runtime order. Edges whose endpoints are unknown or out of
	// range are left for a later pass.
	confirmed := make(map[patch.ConnectionInfo]bool, len(conns))
	edges := make([]*Edge, 0, len(conns))
	for _, conn := range conns {
		if confirmed[conn] {
			continue
		}
		if e := c.byConn[conn]; e.Alive() {
			confirmed[conn] = true
			edges = append(edges, e)
			continue
		}
		src := c.byHandle[conn.Src].Outlet(conn.Outlet)
		dst := c.byHandle[conn.Dst].Inlet(conn.Inlet)
		if !src.Alive() || !dst.Alive() || src.node == dst.node {
			continue
		}
		confirmed[conn] = true
		e := newEdge(conn, src, dst)
		c.byConn[conn] = e
		edges = append(edges, e)
		createdEdges = append(createdEdges, e)
		res.EdgesCreated++
	}
	for _, e := range c.edges {
		if !e.destroyed && (!confirmed[e.conn] || c.byConn[e.conn] != e) {
			c.destroyEdge(e)
			res.EdgesDestroyed++
		}
	}
	c.edges = edges

	for _, n := range created {
		c.notify(func(o Observer) { o.NodeCreated(n) })
	}
	for _, e := range createdEdges {
		c.notify(func(o Observer) { o.EdgeCreated(e) })
	}
	c.connect.prune()

	d := time.Since(start)
	if res.Changed() {
		c.logger.Debug("synchronized",
			"created", res.Created, "updated", res.Updated, "destroyed", res.Destroyed,
			"edges_created", res.EdgesCreated, "edges_destroyed", res.EdgesDestroyed,
			"duration", d)
	}
	observability.Sync().OnSyncComplete(res.Created, res.Updated, res.Destroyed, d)
	return res
}

// destroyNode removes n and every edge attached to it. The selection and any
// drag forget the node before observers hear about it. The caller drops n
// from the node list.
func (c *Canvas) destroyNode(n *Node) int {
	destroyed := 0
	for _, e := range c.edges {
		if !e.destroyed && e.touches(n) {
			c.destroyEdge(e)
			destroyed++
		}
	}
	c.selection.evict(n)
	if c.drag.Active() {
		c.drag.forget(n)
	}
	if c.press.node == n {
		c.press = nodePress{}
	}
	n.destroy()
	delete(c.byHandle, n.handle)
	c.notify(func(o Observer) { o.NodeDestroyed(n) })
	return destroyed
}

// destroyEdgesAt removes every edge ending at io.
func (c *Canvas) destroyEdgesAt(io *Iolet) int {
	destroyed := 0
	for _, e := range c.edges {
		if !e.destroyed && (e.src == io || e.dst == io) {
			c.destroyEdge(e)
			destroyed++
		}
	}
	c.edges = slices.DeleteFunc(c.edges, func(e *Edge) bool { return e.destroyed })
	return destroyed
}

func (c *Canvas) destroyEdge(e *Edge) {
	c.selection.evict(e)
	e.destroy()
	if c.byConn[e.conn] == e {
		delete(c.byConn, e.conn)
	}
	c.notify(func(o Observer) { o.EdgeDestroyed(e) })
}
