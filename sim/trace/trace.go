package trace

import (
	"sort"
	"time"

	"github.com/flowsim/flowsim/sim"
)

// Recorder implements every sim sink interface and accumulates summary
// records in memory. Call Finalize once the run ends, then WriteCSV or
// Summarize.
type Recorder struct {
	flows       []FlowRecord
	connections map[int]*ConnectionRecord
	jobs        map[int]*JobRecord
	assignments []AssignmentRecord

	links map[int]*linkState

	finalTime int64
}

type linkState struct {
	rec       LinkRecord
	lastTime  int64
	lastUtil  float64
	utilDotDt float64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		connections: make(map[int]*ConnectionRecord),
		jobs:        make(map[int]*JobRecord),
		links:       make(map[int]*linkState),
	}
}

// Sinks returns the sink bundle wired to this recorder.
func (r *Recorder) Sinks() sim.Sinks {
	return sim.Sinks{
		Node:       r,
		Link:       r,
		Flow:       r,
		Connection: r,
		Job:        r,
		Assignment: r,
	}
}

// NodeFailed implements sim.NodeSink.
func (r *Recorder) NodeFailed(int64, *sim.Node) {}

// NodeRecovered implements sim.NodeSink.
func (r *Recorder) NodeRecovered(int64, *sim.Node) {}

// LinkFailed implements sim.LinkSink.
func (r *Recorder) LinkFailed(now int64, link *sim.Link) {
	st := r.linkState(link)
	st.sample(now, 0)
	st.rec.Failures++
}

// LinkRecovered implements sim.LinkSink.
func (r *Recorder) LinkRecovered(now int64, link *sim.Link) {
	r.linkState(link).sample(now, 0)
}

// LinkUtilization implements sim.LinkSink: utilization is integrated over
// simulated time between samples.
func (r *Recorder) LinkUtilization(now int64, link *sim.Link, allocated float64) {
	util := 0.0
	if link.Capacity > 0 {
		util = allocated / link.Capacity
	}
	r.linkState(link).sample(now, util)
}

func (r *Recorder) linkState(link *sim.Link) *linkState {
	st, ok := r.links[link.ID]
	if !ok {
		st = &linkState{rec: LinkRecord{
			LinkID:   link.ID,
			From:     link.From,
			To:       link.To,
			Capacity: link.Capacity,
		}}
		r.links[link.ID] = st
	}
	return st
}

func (st *linkState) sample(now int64, util float64) {
	if now > st.lastTime {
		st.utilDotDt += st.lastUtil * float64(now-st.lastTime)
		st.lastTime = now
	}
	st.lastUtil = util
}

// FlowCreated implements sim.FlowSink.
func (r *Recorder) FlowCreated(int64, *sim.Flow) {}

// FlowBandwidth implements sim.FlowSink.
func (r *Recorder) FlowBandwidth(int64, *sim.Flow, float64) {}

// FlowRemoved implements sim.FlowSink: every flow ends by removal
// (completion, reroute, or failure), so this is where its row is cut.
func (r *Recorder) FlowRemoved(now int64, flow *sim.Flow) {
	r.flows = append(r.flows, FlowRecord{
		FlowID:    flow.ID,
		ConnID:    flow.Conn.ID,
		Src:       flow.Path.Src(),
		Dst:       flow.Path.Dst(),
		Path:      flow.Path.String(),
		StartTime: flow.StartTime,
		EndTime:   now,
		Duration:  now - flow.StartTime,
		Bytes:     flow.Bytes,
		MeanBW:    flow.MeanBandwidth(now),
	})
}

// ConnectionStarted implements sim.ConnectionSink.
func (r *Recorder) ConnectionStarted(now int64, conn *sim.Connection) {
	r.connections[conn.ID] = &ConnectionRecord{
		ConnID:    conn.ID,
		JobID:     conn.JobID,
		Src:       conn.Src,
		Dst:       conn.Dst,
		TotalSize: conn.TotalSize,
		StartTime: now,
	}
}

// ConnectionRejected implements sim.ConnectionSink.
func (r *Recorder) ConnectionRejected(now int64, conn *sim.Connection, _ error) {
	r.connections[conn.ID] = &ConnectionRecord{
		ConnID:    conn.ID,
		JobID:     conn.JobID,
		Src:       conn.Src,
		Dst:       conn.Dst,
		TotalSize: conn.TotalSize,
		StartTime: now,
		EndTime:   now,
	}
}

// ConnectionPending implements sim.ConnectionSink.
func (r *Recorder) ConnectionPending(int64, *sim.Connection) {}

// ConnectionCompleted implements sim.ConnectionSink.
func (r *Recorder) ConnectionCompleted(now int64, conn *sim.Connection) {
	rec := r.connections[conn.ID]
	if rec == nil {
		return
	}
	rec.Sent = conn.Sent
	rec.EndTime = now
	rec.Duration = now - rec.StartTime
	if rec.Duration > 0 {
		rec.MeanBW = conn.Sent / float64(rec.Duration)
	}
	rec.Completed = true
}

// JobStarted implements sim.JobSink.
func (r *Recorder) JobStarted(now int64, job *sim.Job) {
	r.jobs[job.ID] = &JobRecord{JobID: job.ID, StartTime: now}
}

// JobCompleted implements sim.JobSink.
func (r *Recorder) JobCompleted(now int64, job *sim.Job) {
	rec := r.jobs[job.ID]
	if rec == nil {
		return
	}
	rec.EndTime = now
	rec.Duration = now - rec.StartTime
	rec.Completed = true
}

// AssignmentRound implements sim.AssignmentSink.
func (r *Recorder) AssignmentRound(now int64, wall time.Duration, commodities int, err error) {
	rec := AssignmentRecord{
		SimTime:     now,
		WallMillis:  float64(wall.Microseconds()) / 1000.0,
		Commodities: commodities,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	r.assignments = append(r.assignments, rec)
}

// Finalize closes open records at the run's end time: incomplete
// connections keep Completed=false with their amount sent so far, and link
// utilization integrals are extended to the end of the run.
func (r *Recorder) Finalize(s *sim.Simulator) {
	r.finalTime = s.Clock
	for _, conn := range append(s.ActiveConnections(), s.PendingConnections()...) {
		rec := r.connections[conn.ID]
		if rec == nil || rec.Completed {
			continue
		}
		rec.Sent = conn.Sent
		rec.EndTime = s.Clock
		rec.Duration = s.Clock - rec.StartTime
		if rec.Duration > 0 {
			rec.MeanBW = conn.Sent / float64(rec.Duration)
		}
	}
	for _, st := range r.links {
		st.sample(s.Clock, 0)
		if s.Clock > 0 {
			st.rec.MeanUtil = st.utilDotDt / float64(s.Clock)
		}
	}
}

// FlowRecords returns flow rows ordered by flow ID.
func (r *Recorder) FlowRecords() []FlowRecord {
	out := append([]FlowRecord(nil), r.flows...)
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out
}

// ConnectionRecords returns connection rows ordered by connection ID.
func (r *Recorder) ConnectionRecords() []ConnectionRecord {
	out := make([]ConnectionRecord, 0, len(r.connections))
	for _, rec := range r.connections {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}

// LinkRecords returns link rows ordered by link ID.
func (r *Recorder) LinkRecords() []LinkRecord {
	out := make([]LinkRecord, 0, len(r.links))
	for _, st := range r.links {
		out = append(out, st.rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out
}

// JobRecords returns job rows ordered by job ID.
func (r *Recorder) JobRecords() []JobRecord {
	out := make([]JobRecord, 0, len(r.jobs))
	for _, rec := range r.jobs {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// AssignmentRecords returns assignment-round rows in firing order.
func (r *Recorder) AssignmentRecords() []AssignmentRecord {
	return append([]AssignmentRecord(nil), r.assignments...)
}
