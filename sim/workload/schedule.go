// Package workload loads and generates the job/connection schedules that
// drive a simulation run.
package workload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowsim/flowsim/sim"
)

// ConnectionSpec is one transfer demand inside a job.
type ConnectionSpec struct {
	Src   int     `yaml:"src"`
	Dst   int     `yaml:"dst"`
	Size  float64 `yaml:"size"`
	Start int64   `yaml:"start"`
}

// JobSpec groups the connections of one distributed-training iteration.
type JobSpec struct {
	ID          int              `yaml:"id"`
	Connections []ConnectionSpec `yaml:"connections"`
}

// Schedule is the full demand description for one run.
type Schedule struct {
	Jobs []JobSpec `yaml:"jobs"`
}

// Load reads a YAML schedule from disk.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	var sched Schedule
	if err := yaml.Unmarshal(data, &sched); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return &sched, nil
}

// Validate checks the schedule for internal consistency.
func (s *Schedule) Validate() error {
	seenJobs := make(map[int]bool)
	for _, job := range s.Jobs {
		if seenJobs[job.ID] {
			return fmt.Errorf("duplicate job id %d", job.ID)
		}
		seenJobs[job.ID] = true
		if len(job.Connections) == 0 {
			return fmt.Errorf("job %d has no connections", job.ID)
		}
		for i, c := range job.Connections {
			if c.Src == c.Dst {
				return fmt.Errorf("job %d connection %d: src equals dst (%d)", job.ID, i, c.Src)
			}
			if c.Size <= 0 {
				return fmt.Errorf("job %d connection %d: size must be > 0, got %f", job.ID, i, c.Size)
			}
			if c.Start < 0 {
				return fmt.Errorf("job %d connection %d: start must be >= 0, got %d", job.ID, i, c.Start)
			}
		}
	}
	return nil
}

// Install registers the schedule's jobs with the simulator and schedules a
// start event per connection. Connection IDs are assigned in schedule
// order, so a fixed schedule always yields the same IDs.
func (s *Schedule) Install(sm *sim.Simulator) error {
	connID := 0
	for _, jobSpec := range s.Jobs {
		job := sim.NewJob(jobSpec.ID)
		for _, cs := range jobSpec.Connections {
			conn := sim.NewConnection(connID, jobSpec.ID, cs.Src, cs.Dst, cs.Size)
			connID++
			job.AddConnection(conn)
			if err := sm.Schedule(&sim.ConnectionStartEvent{Conn: conn}, cs.Start); err != nil {
				return err
			}
		}
		sm.AddJob(job)
	}
	return nil
}

// NumConnections returns the total connection count across jobs.
func (s *Schedule) NumConnections() int {
	n := 0
	for _, j := range s.Jobs {
		n += len(j.Connections)
	}
	return n
}
