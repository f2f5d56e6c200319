package routing

import (
	"fmt"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/topology"
)

// ECMP is the distributed strategy: each connection is routed independently
// and synchronously at start time by an equal-cost choice among the live
// candidate cores for its commodity. Evicted and pending connections are
// re-routed immediately on every topology change.
type ECMP struct {
	topo *topology.Topology
}

// NewECMP creates the distributed equal-cost strategy over a topology.
func NewECMP(topo *topology.Topology) *ECMP {
	return &ECMP{topo: topo}
}

// Install implements sim.RoutingStrategy. ECMP schedules no events of its
// own.
func (e *ECMP) Install(*sim.Simulator) error { return nil }

// AssignStartFlows implements sim.RoutingStrategy.
func (e *ECMP) AssignStartFlows(s *sim.Simulator, conn *sim.Connection) error {
	if err := validateEndpoints(e.topo, conn); err != nil {
		return err
	}
	path, err := e.pickPath(s, conn)
	if err != nil {
		return err
	}
	s.AddFlowToConnection(conn, path)
	return nil
}

func (e *ECMP) pickPath(s *sim.Simulator, conn *sim.Connection) (sim.Path, error) {
	if e.topo.SameTor(conn.Src, conn.Dst) {
		path, err := e.topo.SameTorPath(conn.Src, conn.Dst)
		if err != nil {
			return nil, err
		}
		if !e.topo.LivePath(path) {
			return nil, fmt.Errorf("connection %d: %w", conn.ID, sim.ErrUnroutable)
		}
		return path, nil
	}

	cores := e.topo.CandidateCores(conn.Src, conn.Dst)
	if len(cores) == 0 {
		return nil, fmt.Errorf("connection %d: %w", conn.ID, sim.ErrUnroutable)
	}
	rng := s.RNG().ForSubsystem(sim.SubsystemRouting)
	core := cores[rng.Intn(len(cores))]
	return livePathThroughCore(e.topo, conn.Src, conn.Dst, core)
}

// ConnectionFinished implements sim.RoutingStrategy. ECMP keeps no
// per-connection state.
func (e *ECMP) ConnectionFinished(*sim.Simulator, *sim.Connection) {}

// TopologyChanged implements sim.RoutingStrategy: pending connections get an
// immediate local re-route attempt.
func (e *ECMP) TopologyChanged(s *sim.Simulator) {
	routed := false
	for _, conn := range s.PendingConnections() {
		if err := e.AssignStartFlows(s, conn); err == nil && conn.NumFlows() > 0 {
			routed = true
		}
	}
	if routed {
		s.Reallocate()
	}
}
