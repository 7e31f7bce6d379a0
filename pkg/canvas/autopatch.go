package canvas

// autopatch connects many selected nodes from one shift-released pending
// connection. source is the fixed end of the pending connection and target
// the iolet it was released toward. The cases are positional and evaluated
// in order; the first whose preconditions hold is used. It returns the
// number of edges created.
func (cc *ConnectionController) autopatch(source, target *Iolet) int {
	if !source.Alive() || !target.Alive() {
		return 0
	}
	// Normalize so that from is an outlet and to an inlet. A pending
	// connection held at an inlet is patched as its mirror image.
	from, to := source, target
	if from.dir == Inlet {
		from, to = to, from
	}
	if from.dir == to.dir {
		return 0
	}
	src, dst := from.node, to.node
	if src == dst {
		return 0
	}

	// Left to right.
	sel := cc.c.selection.Nodes()
	tol := cc.c.cfg.OverlapTolerance
	srcBottom := src.Bounds().Max.Y

	made := 0
	connect := func(a, b *Iolet) bool {
		if cc.commit(a, b) == nil {
			return false
		}
		made++
		return true
	}

	switch {
	case src.NumOutlets() > 1 && src.selected && dst.selected:
		// One source, many receivers: successive outlets fan out left to right.
		idx := from.index
		for _, n := range sel {
			if n == src || n.NumInlets() == 0 {
				continue
			}
			if idx >= src.NumOutlets() {
				break
			}
			p := n.Position()
			if p.X >= dst.Position().X && p.Y > srcBottom-tol {
				// Refused pairs keep the outlet for the next receiver.
				if connect(src.Outlet(idx), n.Inlet(0)) {
					idx++
				}
			}
		}

	case dst.NumInlets() > 1 && dst.selected:
		// Many senders, one receiver: successive inlets collect left to right.
		idx := to.index
		dstTop := dst.Position().Y
		for _, n := range sel {
			if n == dst || n.NumOutlets() == 0 {
				continue
			}
			if idx >= dst.NumInlets() {
				break
			}
			b := n.Bounds()
			if dstTop > srcBottom-tol && dstTop > b.Max.Y-tol && b.Min.X >= src.Position().X {
				if connect(n.LastOutlet(), dst.Inlet(idx)) {
					idx++
				}
			}
		}

	case dst.selected:
		// Single receiver: nodes below the source take the pending outlet,
		// nodes above feed the receiver.
		for _, n := range sel {
			if n.Position().Y > srcBottom-tol {
				if n != src && n.NumInlets() > 0 {
					connect(from, n.Inlet(0))
				}
				continue
			}
			if n != dst && n.NumOutlets() > 0 {
				connect(n.LastOutlet(), to)
			}
		}

	default:
		// The source is one of the selection: every selected node feeds the
		// resolved target.
		for _, n := range sel {
			if n == dst || n.NumOutlets() == 0 {
				continue
			}
			connect(n.LastOutlet(), to)
		}
	}

	cc.c.logger.Debug("auto-patched", "edges", made, "selected", len(sel))
	return made
}
