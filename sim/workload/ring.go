package workload

import (
	"fmt"
	"math/rand"
)

// RingSpec parameterizes generated ring-allreduce style jobs: each job picks
// a ring of distinct servers and every participant sends a fixed amount of
// data to its successor.
type RingSpec struct {
	NumJobs     int     `yaml:"num_jobs"`
	RingSize    int     `yaml:"ring_size"`
	DataSize    float64 `yaml:"data_size"`
	StartSpread int64   `yaml:"start_spread"` // job start times drawn uniformly from [0, StartSpread]

	// Arrival, when set, replaces the uniform spread: job start times follow
	// the given inter-arrival process instead.
	Arrival *ArrivalSpec `yaml:"arrival,omitempty"`
}

// Validate checks the generation parameters.
func (r *RingSpec) Validate(numServers int) error {
	if r.NumJobs <= 0 {
		return fmt.Errorf("num_jobs must be > 0, got %d", r.NumJobs)
	}
	if r.RingSize < 2 {
		return fmt.Errorf("ring_size must be >= 2, got %d", r.RingSize)
	}
	if r.RingSize > numServers {
		return fmt.Errorf("ring_size %d exceeds server count %d", r.RingSize, numServers)
	}
	if r.DataSize <= 0 {
		return fmt.Errorf("data_size must be > 0, got %f", r.DataSize)
	}
	if r.StartSpread < 0 {
		return fmt.Errorf("start_spread must be >= 0, got %d", r.StartSpread)
	}
	if r.Arrival != nil {
		if err := r.Arrival.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GenerateRings builds a schedule of ring jobs over the given servers.
// Deterministic for a fixed spec, server list, and RNG state.
func GenerateRings(spec *RingSpec, servers []int, rng *rand.Rand) (*Schedule, error) {
	if err := spec.Validate(len(servers)); err != nil {
		return nil, err
	}

	var sampler ArrivalSampler
	if spec.Arrival != nil {
		sampler = NewArrivalSampler(*spec.Arrival)
	}

	sched := &Schedule{}
	arrivalClock := int64(0)
	for jobID := 0; jobID < spec.NumJobs; jobID++ {
		members := sampleServers(servers, spec.RingSize, rng)
		var start int64
		switch {
		case sampler != nil:
			start = arrivalClock
			arrivalClock += sampler.SampleIAT(rng)
		case spec.StartSpread > 0:
			start = rng.Int63n(spec.StartSpread + 1)
		}

		job := JobSpec{ID: jobID}
		for i, src := range members {
			dst := members[(i+1)%len(members)]
			job.Connections = append(job.Connections, ConnectionSpec{
				Src:   src,
				Dst:   dst,
				Size:  spec.DataSize,
				Start: start,
			})
		}
		sched.Jobs = append(sched.Jobs, job)
	}
	return sched, nil
}

// sampleServers draws k distinct servers via a partial Fisher-Yates shuffle.
func sampleServers(servers []int, k int, rng *rand.Rand) []int {
	pool := append([]int(nil), servers...)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
