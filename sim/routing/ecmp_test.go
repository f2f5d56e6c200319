package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/topology"
)

// buildFabric returns a 2-ToR, 2-core fabric with 2 servers per ToR.
// Node IDs: ToRs 0-1, cores 2-3, servers 4-7 (4,5 on ToR 0; 6,7 on ToR 1).
func buildFabric(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.Build(&topology.Config{
		NumTors: 2, NumCores: 2, ServersPerTor: 2, LinkCapacity: 10,
	})
	require.NoError(t, err)
	return topo
}

func newECMPSim(t *testing.T, seed int64) (*sim.Simulator, *topology.Topology) {
	t.Helper()
	topo := buildFabric(t)
	s, err := sim.NewSimulator(topo.Network(), NewECMP(topo), sim.Sinks{}, sim.NewSimulationKey(seed))
	require.NoError(t, err)
	return s, topo
}

func startConn(t *testing.T, s *sim.Simulator, id, src, dst int, size float64, at int64) *sim.Connection {
	t.Helper()
	conn := sim.NewConnection(id, 0, src, dst, size)
	require.NoError(t, s.Schedule(&sim.ConnectionStartEvent{Conn: conn}, at))
	return conn
}

func TestECMP_CrossTorConnection_RoutedAndCompleted(t *testing.T) {
	s, _ := newECMPSim(t, 1)
	conn := startConn(t, s, 0, 4, 6, 100, 0)

	s.Run()

	require.True(t, conn.Completed)
	assert.Equal(t, int64(10), conn.EndTime)
}

func TestECMP_SameTorConnection_AvoidsCores(t *testing.T) {
	s, topo := newECMPSim(t, 1)
	conn := startConn(t, s, 0, 4, 5, 100, 0)

	// Down both cores entirely; a same-ToR pair must still route.
	topo.Network().FailNode(2)
	topo.Network().FailNode(3)

	s.Run()
	assert.True(t, conn.Completed)
}

func TestECMP_SwitchEndpoint_Rejected(t *testing.T) {
	s, _ := newECMPSim(t, 1)
	conn := startConn(t, s, 0, 0, 6, 100, 0) // src is a ToR

	s.Run()

	assert.False(t, conn.Completed)
	assert.Equal(t, 0, s.NumActive())
	assert.Equal(t, 0, s.NumPending())
}

func TestECMP_ValidateBeforeFlows(t *testing.T) {
	s, topo := newECMPSim(t, 1)
	conn := sim.NewConnection(0, 0, 2, 6, 100) // src is a core

	err := NewECMP(topo).AssignStartFlows(s, conn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrInvalidConnection))
	assert.Equal(t, 0, conn.NumFlows())
}

func TestECMP_FailedCore_NeverPicked(t *testing.T) {
	s, topo := newECMPSim(t, 7)
	topo.Network().FailNode(2)

	conns := make([]*sim.Connection, 8)
	for i := range conns {
		conns[i] = startConn(t, s, i, 4, 6, 10, int64(i))
	}
	s.Run()

	for _, conn := range conns {
		require.True(t, conn.Completed)
	}
}

func TestECMP_AllPathsDown_PendingThenRetriedOnRecovery(t *testing.T) {
	s, _ := newECMPSim(t, 1)
	conn := startConn(t, s, 0, 4, 6, 100, 2)

	// The server uplink fails before the connection starts and recovers
	// later; the connection must wait, then complete.
	require.NoError(t, s.Schedule(&sim.LinkFailureEvent{From: 4, To: 0}, 1))
	require.NoError(t, s.Schedule(&sim.LinkRecoveryEvent{From: 4, To: 0}, 6))

	s.Run()

	assert.True(t, conn.Completed)
	assert.Equal(t, int64(16), conn.EndTime)
}

func TestECMP_CoreFailure_EvictsAndReroutesImmediately(t *testing.T) {
	s, _ := newECMPSim(t, 1)
	// Two connections across ToRs; whichever cores they picked, a mid-run
	// core failure must not strand them while the other core lives.
	a := startConn(t, s, 0, 4, 6, 100, 0)
	b := startConn(t, s, 1, 5, 7, 100, 0)
	require.NoError(t, s.Schedule(&sim.NodeFailureEvent{NodeID: 2}, 3))

	s.Run()

	assert.True(t, a.Completed)
	assert.True(t, b.Completed)
}

func TestECMP_Deterministic_SameSeedSamePicks(t *testing.T) {
	runOnce := func() []int64 {
		s, _ := newECMPSim(t, 99)
		conns := make([]*sim.Connection, 6)
		for i := range conns {
			conns[i] = startConn(t, s, i, 4+i%2, 6+i%2, 50, int64(i))
		}
		s.Run()
		times := make([]int64, len(conns))
		for i, c := range conns {
			times[i] = c.EndTime
		}
		return times
	}

	first := runOnce()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, runOnce())
	}
}
