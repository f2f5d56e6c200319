package trace

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsim/flowsim/sim"
)

func TestSummarize_NilRecorder_ZeroValues(t *testing.T) {
	s := Summarize(nil)
	require.NotNil(t, s)
	assert.Zero(t, s.Connections)
	assert.Zero(t, s.MeanDuration)
}

func TestSummarize_ConnectionStats(t *testing.T) {
	r := NewRecorder()
	for i, d := range []int64{100, 200, 300} {
		conn := sim.NewConnection(i, 0, 10, 11, 1000)
		r.ConnectionStarted(0, conn)
		conn.Sent = 1000
		r.ConnectionCompleted(d, conn)
	}
	pending := sim.NewConnection(3, 0, 10, 12, 1000)
	r.ConnectionStarted(0, pending)

	s := Summarize(r)
	assert.Equal(t, 4, s.Connections)
	assert.Equal(t, 3, s.CompletedConnections)
	assert.Equal(t, 1, s.PendingConnections)
	assert.InDelta(t, 200.0, s.MeanDuration, 1e-12)
	assert.InDelta(t, 200.0, s.P50Duration, 1e-12)
}

func TestSummarize_CountsFailedRounds(t *testing.T) {
	r := NewRecorder()
	r.AssignmentRound(100, time.Millisecond, 2, nil)
	r.AssignmentRound(200, time.Millisecond, 2, errors.New("solver timeout"))
	r.AssignmentRound(300, time.Millisecond, 2, nil)

	s := Summarize(r)
	assert.Equal(t, 3, s.AssignmentRounds)
	assert.Equal(t, 1, s.FailedRounds)
}
