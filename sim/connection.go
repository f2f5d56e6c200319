package sim

import "sort"

// Epsilon is the floating-point tolerance used for completion and capacity
// checks.
const Epsilon = 1e-9

// Connection is a logical transfer demand from a source endpoint to a
// destination endpoint, owned by exactly one job. It holds the set of flows
// currently carrying its traffic (possibly several under multi-path routing).
type Connection struct {
	ID        int
	JobID     int
	Src       int
	Dst       int
	TotalSize float64

	Sent      float64
	StartTime int64
	EndTime   int64
	Completed bool

	flows map[int]*Flow

	// rate is the aggregate bandwidth over all flows, maintained by the
	// aftermath pass.
	rate float64
	// lastProgress marks the simulation time up to which Sent is accurate.
	lastProgress int64
	// endVersion invalidates previously scheduled end events; events cannot
	// be cancelled, so stale ones are recognized and dropped on dispatch.
	endVersion uint64
}

// NewConnection creates an unstarted connection.
func NewConnection(id, jobID, src, dst int, size float64) *Connection {
	return &Connection{
		ID:        id,
		JobID:     jobID,
		Src:       src,
		Dst:       dst,
		TotalSize: size,
		flows:     make(map[int]*Flow),
	}
}

// Commodity returns the (source, destination) pair the connection demands.
func (c *Connection) Commodity() Commodity { return Commodity{Src: c.Src, Dst: c.Dst} }

// Flows returns the connection's active flows sorted by flow ID.
func (c *Connection) Flows() []*Flow {
	out := make([]*Flow, 0, len(c.flows))
	for _, f := range c.flows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NumFlows returns the number of active flows.
func (c *Connection) NumFlows() int { return len(c.flows) }

// Rate returns the aggregate allocated bandwidth across the connection's
// flows.
func (c *Connection) Rate() float64 { return c.rate }

// Remaining returns the amount still to be sent.
func (c *Connection) Remaining() float64 { return c.TotalSize - c.Sent }

// advanceProgress accrues the amount sent up to now at the current rate.
// Sent never exceeds TotalSize.
func (c *Connection) advanceProgress(now int64) {
	dt := now - c.lastProgress
	if dt > 0 && c.rate > 0 {
		c.Sent += c.rate * float64(dt)
		if c.Sent > c.TotalSize {
			c.Sent = c.TotalSize
		}
	}
	for _, f := range c.flows {
		f.advanceProgress(now)
	}
	c.lastProgress = now
}

// refreshRate recomputes the aggregate rate from the current flow
// allocations.
func (c *Connection) refreshRate() {
	total := 0.0
	for _, f := range c.flows {
		total += f.Bandwidth
	}
	c.rate = total
}

// Duration returns the connection's lifetime, valid once completed.
func (c *Connection) Duration() int64 { return c.EndTime - c.StartTime }
