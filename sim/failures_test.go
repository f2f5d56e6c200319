package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFailurePlan(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "failures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadFailurePlan_ValidYAML(t *testing.T) {
	path := writeFailurePlan(t, `
failures:
  - link: [0, 1]
    at: 10
    duration: 5
  - node: 3
    at: 20
    duration: 100
`)
	plan, err := LoadFailurePlan(path)
	require.NoError(t, err)
	require.Len(t, plan.Failures, 2)
	assert.Equal(t, []int{0, 1}, plan.Failures[0].Link)
	require.NotNil(t, plan.Failures[1].Node)
	assert.Equal(t, 3, *plan.Failures[1].Node)
}

func TestLoadFailurePlan_BothLinkAndNode_ReturnsError(t *testing.T) {
	path := writeFailurePlan(t, `
failures:
  - link: [0, 1]
    node: 2
    at: 10
    duration: 5
`)
	_, err := LoadFailurePlan(path)
	assert.Error(t, err)
}

func TestLoadFailurePlan_ZeroDuration_ReturnsError(t *testing.T) {
	path := writeFailurePlan(t, `
failures:
  - link: [0, 1]
    at: 10
    duration: 0
`)
	_, err := LoadFailurePlan(path)
	assert.Error(t, err)
}

func TestLoadFailurePlan_BadLinkPair_ReturnsError(t *testing.T) {
	path := writeFailurePlan(t, `
failures:
  - link: [0]
    at: 10
    duration: 5
`)
	_, err := LoadFailurePlan(path)
	assert.Error(t, err)
}

func TestFailurePlan_Install_SchedulesPairedEvents(t *testing.T) {
	s, _ := lineSim(t, 10)
	node := 1
	plan := &FailurePlan{Failures: []FailureSpec{
		{Link: []int{0, 1}, At: 10, Duration: 5},
		{Node: &node, At: 20, Duration: 5},
	}}

	require.NoError(t, plan.Install(s))
	assert.Equal(t, 4, s.QueueLen())
}

func TestRun_NodeFailure_EvictsAndRecovers(t *testing.T) {
	s, addConn := lineSim(t, 10)
	conn := addConn(0, 100, 0)
	node := 1
	plan := &FailurePlan{Failures: []FailureSpec{{Node: &node, At: 5, Duration: 3}}}
	require.NoError(t, plan.Install(s))

	s.Run()

	// 50 sent before the node failure, the rest after its recovery at t=8.
	assert.True(t, conn.Completed)
	assert.Equal(t, int64(13), conn.EndTime)
}
