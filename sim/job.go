package sim

import "sort"

// Commodity is a (source, destination) node pair, the unit of centralized
// routing decisions.
type Commodity struct {
	Src int
	Dst int
}

// Job groups the connections of one distributed-training iteration. It owns
// the commodity-to-path map consulted by centralized routing strategies so
// that repeated commodities keep a stable assignment across decision rounds.
type Job struct {
	ID          int
	Connections map[int]*Connection

	// CommodityPaths maps each commodity to its currently assigned path.
	CommodityPaths map[Commodity]Path

	StartTime int64
	EndTime   int64
	Completed bool

	started   bool
	remaining int
}

// Started reports whether any of the job's connections has started.
func (j *Job) Started() bool { return j.started }

// NewJob creates a job with no connections.
func NewJob(id int) *Job {
	return &Job{
		ID:             id,
		Connections:    make(map[int]*Connection),
		CommodityPaths: make(map[Commodity]Path),
	}
}

// AddConnection attaches a connection to the job.
func (j *Job) AddConnection(c *Connection) {
	j.Connections[c.ID] = c
	j.remaining++
}

// ConnectionIDs returns the job's connection IDs in ascending order.
func (j *Job) ConnectionIDs() []int {
	ids := make([]int, 0, len(j.Connections))
	for id := range j.Connections {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// connectionFinished records one completed connection and reports whether
// the whole job just finished.
func (j *Job) connectionFinished(now int64) bool {
	j.remaining--
	if j.remaining == 0 && !j.Completed {
		j.Completed = true
		j.EndTime = now
		return true
	}
	return false
}
