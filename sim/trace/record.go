// Package trace records per-entity simulation output: summary rows for
// flows, connections, links, and jobs, plus assignment-round accounting,
// written as CSV files after the run.
package trace

// FlowRecord is one completed (or torn down) flow's summary row.
type FlowRecord struct {
	FlowID    int
	ConnID    int
	Src       int
	Dst       int
	Path      string
	StartTime int64
	EndTime   int64
	Duration  int64
	Bytes     float64
	MeanBW    float64
}

// ConnectionRecord is one connection's summary row. Completed is false for
// connections still pending (e.g. unroutable) when the run ended.
type ConnectionRecord struct {
	ConnID    int
	JobID     int
	Src       int
	Dst       int
	TotalSize float64
	Sent      float64
	StartTime int64
	EndTime   int64
	Duration  int64
	MeanBW    float64
	Completed bool
}

// LinkRecord is one link's summary row with its time-averaged utilization.
type LinkRecord struct {
	LinkID   int
	From     int
	To       int
	Capacity float64
	MeanUtil float64
	Failures int
}

// JobRecord is one job's summary row.
type JobRecord struct {
	JobID     int
	StartTime int64
	EndTime   int64
	Duration  int64
	Completed bool
}

// AssignmentRecord captures one centralized decision round: the simulated
// time it fired at, the wall-clock cost of the solver exchange, and whether
// it failed.
type AssignmentRecord struct {
	SimTime     int64
	WallMillis  float64
	Commodities int
	Error       string
}
