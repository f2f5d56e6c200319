package trace

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RunSummary aggregates statistics over a finished run's records.
type RunSummary struct {
	Connections          int
	CompletedConnections int
	PendingConnections   int
	Jobs                 int
	CompletedJobs        int
	AssignmentRounds     int
	FailedRounds         int

	MeanDuration float64
	P50Duration  float64
	P99Duration  float64
	MeanBW       float64
	P50BW        float64

	MeanLinkUtil float64
	MaxLinkUtil  float64
}

// Summarize computes aggregate statistics from a recorder.
// Safe for empty recorders (returns zero-value fields).
func Summarize(r *Recorder) *RunSummary {
	summary := &RunSummary{}
	if r == nil {
		return summary
	}

	var durations, bandwidths []float64
	for _, c := range r.ConnectionRecords() {
		summary.Connections++
		if c.Completed {
			summary.CompletedConnections++
			durations = append(durations, float64(c.Duration))
			bandwidths = append(bandwidths, c.MeanBW)
		} else {
			summary.PendingConnections++
		}
	}
	if len(durations) > 0 {
		sort.Float64s(durations)
		sort.Float64s(bandwidths)
		summary.MeanDuration = stat.Mean(durations, nil)
		summary.P50Duration = stat.Quantile(0.5, stat.Empirical, durations, nil)
		summary.P99Duration = stat.Quantile(0.99, stat.Empirical, durations, nil)
		summary.MeanBW = stat.Mean(bandwidths, nil)
		summary.P50BW = stat.Quantile(0.5, stat.Empirical, bandwidths, nil)
	}

	for _, j := range r.JobRecords() {
		summary.Jobs++
		if j.Completed {
			summary.CompletedJobs++
		}
	}

	var utils []float64
	for _, l := range r.LinkRecords() {
		utils = append(utils, l.MeanUtil)
		if l.MeanUtil > summary.MaxLinkUtil {
			summary.MaxLinkUtil = l.MeanUtil
		}
	}
	if len(utils) > 0 {
		summary.MeanLinkUtil = stat.Mean(utils, nil)
	}

	for _, a := range r.AssignmentRecords() {
		summary.AssignmentRounds++
		if a.Error != "" {
			summary.FailedRounds++
		}
	}

	return summary
}
