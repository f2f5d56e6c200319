package sim

import (
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
)

// RoutingStrategy assigns paths to connections. Two families exist:
// distributed strategies route each connection independently at start time;
// centralized strategies defer assignment to periodic decision rounds they
// schedule themselves from Install.
type RoutingStrategy interface {
	// Install gives the strategy a chance to schedule its own events
	// (e.g. decision rounds) before the run starts.
	Install(s *Simulator) error

	// AssignStartFlows routes a connection when it starts. It must reject
	// invalid endpoints with ErrInvalidConnection before creating any flow.
	// Returning ErrUnroutable, or returning nil without creating flows,
	// leaves the connection pending.
	AssignStartFlows(s *Simulator, conn *Connection) error

	// ConnectionFinished releases any per-connection strategy state.
	ConnectionFinished(s *Simulator, conn *Connection)

	// TopologyChanged runs after a failure or recovery has been applied and
	// affected flows evicted. Distributed strategies re-route evicted and
	// pending connections immediately; centralized ones wait for the next
	// decision round.
	TopologyChanged(s *Simulator)
}

// Simulator drives one single-threaded discrete-event run: it owns the
// clock, the pending-event heap, the network, and the entity model. All
// model mutation happens inside event dispatch.
type Simulator struct {
	Clock int64

	network  *Network
	strategy RoutingStrategy
	sinks    Sinks
	rng      *PartitionedRNG

	queue   *EventHeap
	nextSeq uint64

	jobs    map[int]*Job
	active  map[int]*Connection
	pending map[int]*Connection

	nextFlowID int
}

// NewSimulator wires a simulator from its collaborators. Nil sink members
// are replaced with no-ops. The strategy's Install hook runs immediately.
func NewSimulator(network *Network, strategy RoutingStrategy, sinks Sinks, key SimulationKey) (*Simulator, error) {
	nop := &nopSink{}
	if sinks.Node == nil {
		sinks.Node = nop
	}
	if sinks.Link == nil {
		sinks.Link = nop
	}
	if sinks.Flow == nil {
		sinks.Flow = nop
	}
	if sinks.Connection == nil {
		sinks.Connection = nop
	}
	if sinks.Job == nil {
		sinks.Job = nop
	}
	if sinks.Assignment == nil {
		sinks.Assignment = nop
	}

	s := &Simulator{
		network:  network,
		strategy: strategy,
		sinks:    sinks,
		rng:      NewPartitionedRNG(key),
		queue:    NewEventHeap(),
		jobs:     make(map[int]*Job),
		active:   make(map[int]*Connection),
		pending:  make(map[int]*Connection),
	}
	if strategy != nil {
		if err := strategy.Install(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Network returns the network model owned by this run.
func (s *Simulator) Network() *Network { return s.network }

// Sinks returns the observer bundle.
func (s *Simulator) Sinks() Sinks { return s.sinks }

// RNG returns the run's partitioned random source.
func (s *Simulator) RNG() *PartitionedRNG { return s.rng }

// QueueLen returns the number of pending events.
func (s *Simulator) QueueLen() int { return s.queue.Len() }

// AddJob registers a job and its connections with the run.
func (s *Simulator) AddJob(job *Job) {
	s.jobs[job.ID] = job
}

// Job returns the job with the given ID, or nil.
func (s *Simulator) Job(id int) *Job { return s.jobs[id] }

// Jobs returns all registered jobs sorted by ID.
func (s *Simulator) Jobs() []*Job {
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Schedule inserts an event at now + delay. A negative delay fails with
// ErrInvalidSchedule: the clock only moves forward.
func (s *Simulator) Schedule(ev Event, delay int64) error {
	if delay < 0 {
		return &InvalidScheduleError{Now: s.Clock, Delay: delay}
	}
	s.nextSeq++
	ev.schedule(s.Clock+delay, s.nextSeq)
	s.queue.Schedule(ev)
	return nil
}

// mustSchedule is for internally generated events whose delays are known
// non-negative; an error here is an engine bug.
func (s *Simulator) mustSchedule(ev Event, delay int64) {
	if err := s.Schedule(ev, delay); err != nil {
		panic(err)
	}
}

// Run pops and dispatches pending events in time order until the queue is
// empty — the sole termination condition. The clock never moves backwards.
func (s *Simulator) Run() {
	for s.queue.Len() > 0 {
		ev := s.queue.PopNext()
		if ev.Timestamp() < s.Clock {
			panic("event queue produced an event in the past")
		}
		s.Clock = ev.Timestamp()
		ev.Execute(s)
	}
	logrus.Infof("[t=%d] simulation ended: %d connections still pending", s.Clock, len(s.pending))
}

// ActiveConnections returns the connections with at least one flow, sorted
// by connection ID.
func (s *Simulator) ActiveConnections() []*Connection {
	return sortedConns(s.active)
}

// PendingConnections returns the started but currently unroutable
// connections (zero flows), sorted by connection ID.
func (s *Simulator) PendingConnections() []*Connection {
	return sortedConns(s.pending)
}

// HasOpenConnections reports whether any started connection has not yet
// completed.
func (s *Simulator) HasOpenConnections() bool {
	return len(s.active)+len(s.pending) > 0
}

// NumActive returns the number of connections with at least one flow.
func (s *Simulator) NumActive() int { return len(s.active) }

// NumPending returns the number of started connections with zero flows.
func (s *Simulator) NumPending() int { return len(s.pending) }

func sortedConns(m map[int]*Connection) []*Connection {
	out := make([]*Connection, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// startConnection runs when a ConnectionStartEvent fires.
func (s *Simulator) startConnection(conn *Connection) {
	conn.StartTime = s.Clock
	conn.lastProgress = s.Clock

	job := s.jobs[conn.JobID]
	if job != nil && !job.started {
		job.started = true
		job.StartTime = s.Clock
		s.sinks.Job.JobStarted(s.Clock, job)
	}

	err := s.strategy.AssignStartFlows(s, conn)
	if errors.Is(err, ErrInvalidConnection) {
		logrus.Warnf("[t=%d] connection %d rejected: %v", s.Clock, conn.ID, err)
		s.sinks.Connection.ConnectionRejected(s.Clock, conn, err)
		return
	}
	s.sinks.Connection.ConnectionStarted(s.Clock, conn)

	switch {
	case errors.Is(err, ErrUnroutable):
		logrus.Debugf("[t=%d] connection %d unroutable, left pending", s.Clock, conn.ID)
		s.pending[conn.ID] = conn
		s.sinks.Connection.ConnectionPending(s.Clock, conn)
	case err != nil:
		// Strategy-internal failures (e.g. a solver error surfaced at
		// start time) also leave the connection pending.
		logrus.Warnf("[t=%d] connection %d start assignment failed: %v", s.Clock, conn.ID, err)
		s.pending[conn.ID] = conn
		s.sinks.Connection.ConnectionPending(s.Clock, conn)
	case conn.NumFlows() == 0:
		// Deferred assignment (centralized): pending until the next round.
		s.pending[conn.ID] = conn
		s.sinks.Connection.ConnectionPending(s.Clock, conn)
	default:
		s.Reallocate()
	}
}

// AddFlowToConnection creates a flow on the given path and attaches it to
// the connection, activating the connection if it was pending. The caller
// runs Reallocate once its batch of membership changes is complete.
func (s *Simulator) AddFlowToConnection(conn *Connection, path Path) *Flow {
	f := &Flow{
		ID:           s.nextFlowID,
		Conn:         conn,
		Path:         path,
		StartTime:    s.Clock,
		lastProgress: s.Clock,
	}
	s.nextFlowID++
	conn.flows[f.ID] = f
	for _, l := range path {
		l.addFlow(f)
	}
	delete(s.pending, conn.ID)
	s.active[conn.ID] = conn
	s.sinks.Flow.FlowCreated(s.Clock, f)
	return f
}

// removeFlow detaches a flow from its links and its connection. A
// connection left with zero flows (and not completed) becomes pending.
func (s *Simulator) removeFlow(f *Flow) {
	conn := f.Conn
	conn.advanceProgress(s.Clock)
	for _, l := range f.Path {
		l.removeFlow(f)
		if l.NumFlows() == 0 {
			// The link drops out of the aftermath working set, so report
			// its utilization going to zero here.
			s.sinks.Link.LinkUtilization(s.Clock, l, 0)
		}
	}
	delete(conn.flows, f.ID)
	conn.refreshRate()
	s.sinks.Flow.FlowRemoved(s.Clock, f)

	if conn.NumFlows() == 0 && !conn.Completed {
		delete(s.active, conn.ID)
		s.pending[conn.ID] = conn
		conn.rate = 0
		conn.endVersion++ // any scheduled end event is now stale
		s.sinks.Connection.ConnectionPending(s.Clock, conn)
	}
}

// ReroutePath transparently moves an active connection onto a new path: the
// old flows are withdrawn, a new flow is created, and bandwidth shares are
// recomputed.
func (s *Simulator) ReroutePath(conn *Connection, path Path) {
	for _, f := range conn.Flows() {
		s.removeFlow(f)
	}
	s.AddFlowToConnection(conn, path)
	s.Reallocate()
}

// Reallocate is the aftermath pass: settle every connection's progress at
// the current rates, recompute max-min fair shares from the current link
// memberships, then reschedule completion events at the new rates.
func (s *Simulator) Reallocate() {
	for _, conn := range s.ActiveConnections() {
		conn.advanceProgress(s.Clock)
	}

	links := s.network.linksWithFlows()
	alloc := maxMinFair(links)

	for _, conn := range s.ActiveConnections() {
		for _, f := range conn.Flows() {
			bw := alloc[f.ID]
			if bw != f.Bandwidth {
				f.Bandwidth = bw
				s.sinks.Flow.FlowBandwidth(s.Clock, f, bw)
			}
		}
		conn.refreshRate()
		s.scheduleEnd(conn)
	}

	for _, l := range links {
		s.sinks.Link.LinkUtilization(s.Clock, l, l.AllocatedBandwidth())
	}
}

// scheduleEnd (re)schedules the connection's completion event at the time
// remaining/rate elapses. The version bump invalidates any earlier end
// event.
func (s *Simulator) scheduleEnd(conn *Connection) {
	conn.endVersion++
	if conn.rate <= 0 {
		return
	}
	remaining := conn.Remaining()
	delay := int64(0)
	if remaining > 0 {
		delay = ceilDiv(remaining, conn.rate)
	}
	s.mustSchedule(&ConnectionEndEvent{ConnID: conn.ID, Version: conn.endVersion}, delay)
}

// ceilDiv returns ceil(amount / rate) as a whole number of ticks, at least 1
// for any positive amount.
func ceilDiv(amount, rate float64) int64 {
	ticks := int64(amount / rate)
	if float64(ticks)*rate < amount-Epsilon {
		ticks++
	}
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// finishConnection completes a connection once its remaining size has
// drained, tears down its flows, and re-runs the aftermath pass.
func (s *Simulator) finishConnection(conn *Connection) {
	conn.advanceProgress(s.Clock)
	tol := Epsilon * (1 + conn.TotalSize)
	if conn.Remaining() > tol {
		// Rounding left a sliver; run to the corrected end time.
		s.scheduleEnd(conn)
		return
	}

	conn.Sent = conn.TotalSize
	conn.Completed = true
	conn.EndTime = s.Clock
	conn.endVersion++

	for _, f := range conn.Flows() {
		for _, l := range f.Path {
			l.removeFlow(f)
			if l.NumFlows() == 0 {
				s.sinks.Link.LinkUtilization(s.Clock, l, 0)
			}
		}
		delete(conn.flows, f.ID)
		s.sinks.Flow.FlowRemoved(s.Clock, f)
	}
	conn.rate = 0
	delete(s.active, conn.ID)

	s.strategy.ConnectionFinished(s, conn)
	s.sinks.Connection.ConnectionCompleted(s.Clock, conn)
	logrus.Debugf("[t=%d] connection %d completed (%.0f bytes)", s.Clock, conn.ID, conn.Sent)

	if job := s.jobs[conn.JobID]; job != nil && job.connectionFinished(s.Clock) {
		s.sinks.Job.JobCompleted(s.Clock, job)
	}

	s.Reallocate()
}

// applyLinkFailure fails both directed links between the pair and evicts
// every flow that crossed them.
func (s *Simulator) applyLinkFailure(from, to int) {
	for _, pair := range [][2]int{{from, to}, {to, from}} {
		l := s.network.LinkBetween(pair[0], pair[1])
		if l == nil || l.Failed {
			continue
		}
		evicted := s.network.FailLink(l)
		s.sinks.Link.LinkFailed(s.Clock, l)
		for _, f := range evicted {
			s.removeFlow(f)
		}
	}
	s.Reallocate()
	s.strategy.TopologyChanged(s)
}

// applyLinkRecovery restores both directed links between the pair.
func (s *Simulator) applyLinkRecovery(from, to int) {
	for _, pair := range [][2]int{{from, to}, {to, from}} {
		l := s.network.LinkBetween(pair[0], pair[1])
		if l == nil || !l.Failed {
			continue
		}
		s.network.RecoverLink(l)
		s.sinks.Link.LinkRecovered(s.Clock, l)
	}
	s.strategy.TopologyChanged(s)
}

// applyNodeFailure fails a node; its incident links become unusable and
// their flows are evicted.
func (s *Simulator) applyNodeFailure(nodeID int) {
	evicted := s.network.FailNode(nodeID)
	s.sinks.Node.NodeFailed(s.Clock, s.network.Node(nodeID))
	for _, f := range evicted {
		s.removeFlow(f)
	}
	s.Reallocate()
	s.strategy.TopologyChanged(s)
}

// applyNodeRecovery restores a node.
func (s *Simulator) applyNodeRecovery(nodeID int) {
	s.network.RecoverNode(nodeID)
	s.sinks.Node.NodeRecovered(s.Clock, s.network.Node(nodeID))
	s.strategy.TopologyChanged(s)
}
