package sim

import "github.com/sirupsen/logrus"

// Event is a scheduled action in the simulation. Concrete events embed
// BaseEvent, which carries the trigger time and the schedule-order sequence
// number used for FIFO tie-breaking. Events are consumed exactly once when
// dispatched and are never reused.
type Event interface {
	Timestamp() int64
	SeqNo() uint64
	Execute(*Simulator)

	// schedule stamps time and sequence; only Simulator.Schedule calls it,
	// so external packages build events by embedding BaseEvent.
	schedule(at int64, seq uint64)
}

// BaseEvent provides the common timing fields for events. Its zero value is
// ready to use; Simulator.Schedule fills it in.
type BaseEvent struct {
	time int64
	seq  uint64
}

// Timestamp returns the absolute simulation time at which the event fires.
func (e *BaseEvent) Timestamp() int64 { return e.time }

// SeqNo returns the schedule-order sequence number (FIFO tie-break).
func (e *BaseEvent) SeqNo() uint64 { return e.seq }

func (e *BaseEvent) schedule(at int64, seq uint64) {
	e.time = at
	e.seq = seq
}

// ConnectionStartEvent introduces a connection into the simulation. The
// routing strategy assigns its initial flows; an invalid endpoint rejects the
// connection, and an unroutable one leaves it pending with zero flows.
type ConnectionStartEvent struct {
	BaseEvent
	Conn *Connection
}

func (e *ConnectionStartEvent) Execute(s *Simulator) {
	logrus.Debugf("[t=%d] connection %d start (%d -> %d, size %.0f)",
		s.Clock, e.Conn.ID, e.Conn.Src, e.Conn.Dst, e.Conn.TotalSize)
	s.startConnection(e.Conn)
}

// ConnectionEndEvent fires when a connection is projected to finish sending
// at its current aggregate rate. Every rate change reschedules the end with a
// bumped version; an event whose version no longer matches is stale and is
// dropped without effect.
type ConnectionEndEvent struct {
	BaseEvent
	ConnID  int
	Version uint64
}

func (e *ConnectionEndEvent) Execute(s *Simulator) {
	conn, ok := s.active[e.ConnID]
	if !ok || conn.endVersion != e.Version {
		return // stale
	}
	s.finishConnection(conn)
}

// LinkFailureEvent fails both directed links between a node pair, evicting
// every flow routed over them.
type LinkFailureEvent struct {
	BaseEvent
	From int
	To   int
}

func (e *LinkFailureEvent) Execute(s *Simulator) {
	logrus.Debugf("[t=%d] link failure %d <-> %d", s.Clock, e.From, e.To)
	s.applyLinkFailure(e.From, e.To)
}

// LinkRecoveryEvent clears the failed state of both directed links between a
// node pair. Pending connections are retried; live connections keep their
// paths.
type LinkRecoveryEvent struct {
	BaseEvent
	From int
	To   int
}

func (e *LinkRecoveryEvent) Execute(s *Simulator) {
	logrus.Debugf("[t=%d] link recovery %d <-> %d", s.Clock, e.From, e.To)
	s.applyLinkRecovery(e.From, e.To)
}

// NodeFailureEvent fails a node and, implicitly, all of its incident links.
type NodeFailureEvent struct {
	BaseEvent
	NodeID int
}

func (e *NodeFailureEvent) Execute(s *Simulator) {
	logrus.Debugf("[t=%d] node failure %d", s.Clock, e.NodeID)
	s.applyNodeFailure(e.NodeID)
}

// NodeRecoveryEvent clears a node's failed state along with its incident
// links (unless an outstanding link failure still holds a link down).
type NodeRecoveryEvent struct {
	BaseEvent
	NodeID int
}

func (e *NodeRecoveryEvent) Execute(s *Simulator) {
	logrus.Debugf("[t=%d] node recovery %d", s.Clock, e.NodeID)
	s.applyNodeRecovery(e.NodeID)
}
