package routing

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/topology"
)

// Centralized defers path assignment to periodic decision rounds. At each
// round boundary it collects the active commodities plus the current failed
// sets, issues one synchronous solver exchange (the simulated clock does not
// advance while waiting; the wall-clock cost is reported to the assignment
// sink), and maps each returned path index to a core by index modulo the
// number of live cores in ascending-ID order. Connections whose commodity
// moved are transparently rerouted.
//
// A solver timeout or malformed response skips the round: prior assignments
// stay in effect and the next round is attempted at the next interval.
type Centralized struct {
	topo     *topology.Topology
	client   SolverClient
	interval int64

	commodities map[int]sim.Commodity
	conns       map[int]*sim.Connection
}

// NewCentralized creates a centralized strategy with the given decision
// interval (in ticks).
func NewCentralized(topo *topology.Topology, client SolverClient, interval int64) *Centralized {
	return &Centralized{
		topo:        topo,
		client:      client,
		interval:    interval,
		commodities: make(map[int]sim.Commodity),
		conns:       make(map[int]*sim.Connection),
	}
}

// Install implements sim.RoutingStrategy: it seeds the first decision round.
func (c *Centralized) Install(s *sim.Simulator) error {
	if c.interval <= 0 {
		return fmt.Errorf("centralized routing interval must be > 0, got %d", c.interval)
	}
	return s.Schedule(&roundEvent{strat: c}, c.interval)
}

// AssignStartFlows implements sim.RoutingStrategy. The connection's
// commodity is registered for the next round; if its job already carries a
// live path for the commodity, the connection reuses it immediately,
// otherwise it stays pending with zero flows until a round assigns one.
func (c *Centralized) AssignStartFlows(s *sim.Simulator, conn *sim.Connection) error {
	if err := validateEndpoints(c.topo, conn); err != nil {
		return err
	}

	comm := conn.Commodity()
	c.commodities[conn.ID] = comm
	c.conns[conn.ID] = conn

	if job := s.Job(conn.JobID); job != nil {
		if path, ok := job.CommodityPaths[comm]; ok && c.topo.LivePath(path) {
			s.AddFlowToConnection(conn, path)
			return nil
		}
	}
	return nil
}

// ConnectionFinished implements sim.RoutingStrategy.
func (c *Centralized) ConnectionFinished(_ *sim.Simulator, conn *sim.Connection) {
	delete(c.commodities, conn.ID)
	delete(c.conns, conn.ID)
}

// TopologyChanged implements sim.RoutingStrategy. Re-routing after failures
// is deferred to the next decision round, which sees the updated failed
// sets in its request.
func (c *Centralized) TopologyChanged(*sim.Simulator) {}

// roundEvent fires at each decision-round boundary. It reschedules itself
// while the run still has work: remaining events, active connections, or
// pending connections whose round failed and deserves a retry.
type roundEvent struct {
	sim.BaseEvent
	strat *Centralized
}

func (e *roundEvent) Execute(s *sim.Simulator) {
	err := e.strat.runRound(s)
	c := e.strat
	if s.QueueLen() > 0 || s.NumActive() > 0 || (s.NumPending() > 0 && err != nil) {
		if serr := s.Schedule(&roundEvent{strat: c}, c.interval); serr != nil {
			panic(serr)
		}
	}
}

func (c *Centralized) runRound(s *sim.Simulator) error {
	if len(c.commodities) == 0 {
		return nil
	}

	req := c.buildRequest(s)
	start := time.Now()
	assignments, err := c.client.Solve(req)
	wall := time.Since(start)
	s.Sinks().Assignment.AssignmentRound(s.Clock, wall, len(c.commodities), err)
	if err != nil {
		logrus.Warnf("[t=%d] routing round skipped, prior assignments retained: %v", s.Clock, err)
		return err
	}

	cores := c.topo.LiveCoreIDs()

	connIDs := make([]int, 0, len(assignments))
	for id := range assignments {
		connIDs = append(connIDs, id)
	}
	sort.Ints(connIDs)

	for _, connID := range connIDs {
		comm, ok := c.commodities[connID]
		if !ok {
			continue // completed or unknown; response entry is ignored
		}
		conn := c.conns[connID]

		var path sim.Path
		if c.topo.SameTor(comm.Src, comm.Dst) {
			p, perr := c.topo.SameTorPath(comm.Src, comm.Dst)
			if perr != nil || !c.topo.LivePath(p) {
				continue
			}
			path = p
		} else {
			if len(cores) == 0 {
				continue
			}
			core := cores[assignments[connID]%len(cores)]
			p, perr := livePathThroughCore(c.topo, comm.Src, comm.Dst, core)
			if perr != nil {
				continue
			}
			path = p
		}

		if job := s.Job(conn.JobID); job != nil {
			job.CommodityPaths[comm] = path
		}

		switch {
		case conn.Completed:
		case conn.NumFlows() > 0:
			if !currentPath(conn).Equal(path) {
				s.ReroutePath(conn, path)
			}
		default:
			s.AddFlowToConnection(conn, path)
			s.Reallocate()
		}
	}
	return nil
}

// buildRequest snapshots the commodities and failed equipment for the
// solver. Failed links are reported as node-ID pairs in both directions.
func (c *Centralized) buildRequest(s *sim.Simulator) SolveRequest {
	req := SolveRequest{
		Commodities: make(map[string][2]int, len(c.commodities)),
		FailedLinks: make([][2]int, 0),
		FailedCores: s.Network().FailedNodes(),
		NumTors:     c.topo.NumTors(),
	}
	for id, comm := range c.commodities {
		req.Commodities[fmt.Sprintf("%d", id)] = [2]int{comm.Src, comm.Dst}
	}
	seen := make(map[[2]int]bool)
	for _, l := range s.Network().FailedLinks() {
		for _, pair := range [][2]int{{l.From, l.To}, {l.To, l.From}} {
			if !seen[pair] {
				seen[pair] = true
				req.FailedLinks = append(req.FailedLinks, pair)
			}
		}
	}
	sort.Slice(req.FailedLinks, func(i, j int) bool {
		if req.FailedLinks[i][0] != req.FailedLinks[j][0] {
			return req.FailedLinks[i][0] < req.FailedLinks[j][0]
		}
		return req.FailedLinks[i][1] < req.FailedLinks[j][1]
	})
	if req.FailedCores == nil {
		req.FailedCores = []int{}
	}
	return req
}

func currentPath(conn *sim.Connection) sim.Path {
	flows := conn.Flows()
	if len(flows) == 0 {
		return nil
	}
	return flows[0].Path
}
