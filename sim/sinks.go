package sim

import "time"

// The sink interfaces are per-entity observers notified of lifecycle and
// state-change events. Implementations live outside the engine (see
// sim/trace for CSV sinks); NopSinks lets the core run with zero I/O.

// NodeSink observes node failure state changes.
type NodeSink interface {
	NodeFailed(now int64, node *Node)
	NodeRecovered(now int64, node *Node)
}

// LinkSink observes link failure state and utilization changes.
type LinkSink interface {
	LinkFailed(now int64, link *Link)
	LinkRecovered(now int64, link *Link)
	LinkUtilization(now int64, link *Link, allocated float64)
}

// FlowSink observes flow creation, bandwidth changes, and removal.
type FlowSink interface {
	FlowCreated(now int64, flow *Flow)
	FlowBandwidth(now int64, flow *Flow, bandwidth float64)
	FlowRemoved(now int64, flow *Flow)
}

// ConnectionSink observes the connection lifecycle, including the reported
// non-fatal conditions (rejection, unroutable pending).
type ConnectionSink interface {
	ConnectionStarted(now int64, conn *Connection)
	ConnectionRejected(now int64, conn *Connection, err error)
	ConnectionPending(now int64, conn *Connection)
	ConnectionCompleted(now int64, conn *Connection)
}

// JobSink observes job start and completion.
type JobSink interface {
	JobStarted(now int64, job *Job)
	JobCompleted(now int64, job *Job)
}

// AssignmentSink observes centralized decision rounds: the wall-clock cost
// of the solver exchange (simulated time does not advance during it) and any
// solver error.
type AssignmentSink interface {
	AssignmentRound(now int64, wall time.Duration, commodities int, err error)
}

// Sinks bundles one sink per entity family.
type Sinks struct {
	Node       NodeSink
	Link       LinkSink
	Flow       FlowSink
	Connection ConnectionSink
	Job        JobSink
	Assignment AssignmentSink
}

// NopSinks returns a Sinks bundle whose members all discard notifications.
func NopSinks() Sinks {
	n := &nopSink{}
	return Sinks{Node: n, Link: n, Flow: n, Connection: n, Job: n, Assignment: n}
}

type nopSink struct{}

func (*nopSink) NodeFailed(int64, *Node)                            {}
func (*nopSink) NodeRecovered(int64, *Node)                         {}
func (*nopSink) LinkFailed(int64, *Link)                            {}
func (*nopSink) LinkRecovered(int64, *Link)                         {}
func (*nopSink) LinkUtilization(int64, *Link, float64)              {}
func (*nopSink) FlowCreated(int64, *Flow)                           {}
func (*nopSink) FlowBandwidth(int64, *Flow, float64)                {}
func (*nopSink) FlowRemoved(int64, *Flow)                           {}
func (*nopSink) ConnectionStarted(int64, *Connection)               {}
func (*nopSink) ConnectionRejected(int64, *Connection, error)       {}
func (*nopSink) ConnectionPending(int64, *Connection)               {}
func (*nopSink) ConnectionCompleted(int64, *Connection)             {}
func (*nopSink) JobStarted(int64, *Job)                             {}
func (*nopSink) JobCompleted(int64, *Job)                           {}
func (*nopSink) AssignmentRound(int64, time.Duration, int, error)   {}
