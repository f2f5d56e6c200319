package workload

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestArrivalSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    ArrivalSpec
		wantErr string
	}{
		{"valid poisson", ArrivalSpec{Process: "poisson", Rate: 0.01}, ""},
		{"valid constant", ArrivalSpec{Process: "constant", Rate: 0.5}, ""},
		{"valid gamma with cv", ArrivalSpec{Process: "gamma", Rate: 0.1, CV: floatPtr(2.0)}, ""},
		{"unknown process", ArrivalSpec{Process: "pareto", Rate: 0.1}, "unknown arrival process"},
		{"zero rate", ArrivalSpec{Process: "poisson", Rate: 0}, "positive finite"},
		{"negative rate", ArrivalSpec{Process: "poisson", Rate: -1}, "positive finite"},
		{"nan rate", ArrivalSpec{Process: "poisson", Rate: math.NaN()}, "positive finite"},
		{"zero cv", ArrivalSpec{Process: "weibull", Rate: 0.1, CV: floatPtr(0)}, "cv must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConstantSamplerInterval(t *testing.T) {
	s := NewArrivalSampler(ArrivalSpec{Process: "constant", Rate: 0.01})
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.Equal(t, int64(100), s.SampleIAT(rng))
	}
}

func TestSamplersArePositive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samplers := map[string]ArrivalSampler{
		"poisson": NewArrivalSampler(ArrivalSpec{Process: "poisson", Rate: 10.0}),
		"gamma":   NewArrivalSampler(ArrivalSpec{Process: "gamma", Rate: 10.0, CV: floatPtr(3.0)}),
		"weibull": NewArrivalSampler(ArrivalSpec{Process: "weibull", Rate: 10.0, CV: floatPtr(0.5)}),
	}
	for name, s := range samplers {
		for i := 0; i < 1000; i++ {
			iat := s.SampleIAT(rng)
			if iat < 1 {
				t.Fatalf("%s sampler returned %d, want >= 1", name, iat)
			}
		}
	}
}

func TestPoissonSamplerMean(t *testing.T) {
	// Mean IAT should be close to 1/rate = 1000 ticks.
	s := NewArrivalSampler(ArrivalSpec{Process: "poisson", Rate: 0.001})
	rng := rand.New(rand.NewSource(42))

	const n = 20000
	var sum int64
	for i := 0; i < n; i++ {
		sum += s.SampleIAT(rng)
	}
	mean := float64(sum) / n
	assert.InDelta(t, 1000.0, mean, 50.0)
}

func TestGammaSamplerMeanAndBurstiness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewArrivalSampler(ArrivalSpec{Process: "gamma", Rate: 0.001, CV: floatPtr(3.0)})

	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := float64(s.SampleIAT(rng))
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	cv := math.Sqrt(variance) / mean

	assert.InDelta(t, 1000.0, mean, 100.0)
	// CV=3 arrivals are much burstier than Poisson.
	assert.Greater(t, cv, 2.0)
}

func TestWeibullShapeFromCV(t *testing.T) {
	// CV=1 corresponds to the exponential distribution (k=1).
	assert.InDelta(t, 1.0, weibullShapeFromCV(1.0), 0.05)
	// Smoother-than-Poisson arrivals need k > 1.
	assert.Greater(t, weibullShapeFromCV(0.5), 1.0)
	// Burstier arrivals need k < 1.
	assert.Less(t, weibullShapeFromCV(2.0), 1.0)
}

func TestWeibullSamplerMean(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewArrivalSampler(ArrivalSpec{Process: "weibull", Rate: 0.001, CV: floatPtr(0.5)})

	const n = 20000
	var sum int64
	for i := 0; i < n; i++ {
		sum += s.SampleIAT(rng)
	}
	mean := float64(sum) / n
	assert.InDelta(t, 1000.0, mean, 100.0)
}

func TestGenerateRingsWithArrivalProcess(t *testing.T) {
	servers := []int{4, 5, 6, 7}
	spec := &RingSpec{
		NumJobs:  5,
		RingSize: 2,
		DataSize: 100,
		Arrival:  &ArrivalSpec{Process: "constant", Rate: 0.1},
	}
	sched, err := GenerateRings(spec, servers, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, sched.Jobs, 5)

	// Constant rate 0.1 spaces job starts exactly 10 ticks apart.
	for i, job := range sched.Jobs {
		require.NotEmpty(t, job.Connections)
		for _, conn := range job.Connections {
			assert.Equal(t, int64(i*10), conn.Start)
		}
	}
}

func TestGenerateRingsRejectsBadArrival(t *testing.T) {
	spec := &RingSpec{
		NumJobs:  1,
		RingSize: 2,
		DataSize: 100,
		Arrival:  &ArrivalSpec{Process: "poisson", Rate: -1},
	}
	_, err := GenerateRings(spec, []int{4, 5}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
