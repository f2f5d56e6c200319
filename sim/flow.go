package sim

import "fmt"

// Path is an ordered, acyclic sequence of links from a source node to a
// destination node.
type Path []*Link

// NewPath validates that the links form a contiguous, acyclic walk.
func NewPath(links ...*Link) (Path, error) {
	if len(links) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	visited := map[int]bool{links[0].From: true}
	for i, l := range links {
		if i > 0 && links[i-1].To != l.From {
			return nil, fmt.Errorf("path discontinuity at link %d: %d -> %d follows %d -> %d",
				i, l.From, l.To, links[i-1].From, links[i-1].To)
		}
		if visited[l.To] {
			return nil, fmt.Errorf("path revisits node %d", l.To)
		}
		visited[l.To] = true
	}
	return Path(links), nil
}

// Src returns the path's source node ID.
func (p Path) Src() int { return p[0].From }

// Dst returns the path's destination node ID.
func (p Path) Dst() int { return p[len(p)-1].To }

// Equal reports whether two paths traverse the same links in order.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i].ID != q[i].ID {
			return false
		}
	}
	return true
}

// String renders the node sequence, e.g. "3 -> 0 -> 8 -> 1 -> 5".
func (p Path) String() string {
	if len(p) == 0 {
		return "<empty>"
	}
	s := fmt.Sprintf("%d", p.Src())
	for _, l := range p {
		s += fmt.Sprintf(" -> %d", l.To)
	}
	return s
}

// Flow is a single path-bound bandwidth carrier belonging to exactly one
// connection. Its bandwidth is set by the aftermath engine; bytes accrue at
// that rate between reallocation points.
type Flow struct {
	ID        int
	Conn      *Connection
	Path      Path
	Bandwidth float64
	Bytes     float64

	StartTime    int64
	lastProgress int64
}

// advanceProgress accrues bytes carried up to now at the current bandwidth.
func (f *Flow) advanceProgress(now int64) {
	dt := now - f.lastProgress
	if dt > 0 && f.Bandwidth > 0 {
		f.Bytes += f.Bandwidth * float64(dt)
	}
	f.lastProgress = now
}

// MeanBandwidth returns the average rate achieved over the flow's lifetime
// up to the given time.
func (f *Flow) MeanBandwidth(now int64) float64 {
	dt := now - f.StartTime
	if dt <= 0 {
		return 0
	}
	return f.Bytes / float64(dt)
}
