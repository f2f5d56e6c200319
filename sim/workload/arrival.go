package workload

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ArrivalSpec selects the inter-arrival process for generated job start
// times. Rate is in jobs per tick; CV (coefficient of variation) shapes the
// burstiness of the gamma and weibull processes.
type ArrivalSpec struct {
	Process string   `yaml:"process"` // constant, poisson, gamma, weibull
	Rate    float64  `yaml:"rate"`
	CV      *float64 `yaml:"cv,omitempty"`
}

// Validate checks the arrival parameters.
func (a *ArrivalSpec) Validate() error {
	switch a.Process {
	case "constant", "poisson", "gamma", "weibull":
	default:
		return fmt.Errorf("unknown arrival process %q", a.Process)
	}
	if a.Rate <= 0 || math.IsNaN(a.Rate) || math.IsInf(a.Rate, 0) {
		return fmt.Errorf("arrival rate must be a positive finite number, got %f", a.Rate)
	}
	if a.CV != nil && *a.CV <= 0 {
		return fmt.Errorf("arrival cv must be > 0, got %f", *a.CV)
	}
	return nil
}

// ArrivalSampler generates job inter-arrival times.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks.
	// Always returns a positive value (>= 1).
	SampleIAT(rng *rand.Rand) int64
}

// ConstantSampler spaces arrivals exactly 1/rate ticks apart.
type ConstantSampler struct {
	interval int64
}

func (s *ConstantSampler) SampleIAT(*rand.Rand) int64 {
	return s.interval
}

// PoissonSampler generates exponentially-distributed inter-arrival times
// (CV=1).
type PoissonSampler struct {
	rate float64 // jobs per tick
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) int64 {
	iat := int64(rng.ExpFloat64() / s.rate)
	if iat < 1 {
		return 1
	}
	return iat
}

// GammaSampler generates Gamma-distributed inter-arrival times. CV > 1
// produces bursty arrivals. Implemented with Marsaglia-Tsang's method for
// shape >= 1, with the Ahrens-Dieter transformation for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV² (alpha parameter)
	scale float64 // CV²/rate in ticks (beta parameter)
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) int64 {
	iat := int64(gammaRand(rng, s.shape, s.scale))
	if iat < 1 {
		return 1
	}
	return iat
}

func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		// Ahrens-Dieter: Gamma(a) = Gamma(a+1) * U^(1/a)
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	// Marsaglia-Tsang for shape >= 1
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler generates Weibull-distributed inter-arrival times.
type WeibullSampler struct {
	shape float64 // Weibull k parameter
	scale float64 // Weibull λ parameter (in ticks)
}

func (s *WeibullSampler) SampleIAT(rng *rand.Rand) int64 {
	// Inverse CDF: scale * (-ln(U))^(1/shape)
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64 // prevent -ln(0) = +Inf
	}
	iat := int64(s.scale * math.Pow(-math.Log(u), 1.0/s.shape))
	if iat < 1 {
		return 1
	}
	return iat
}

// NewArrivalSampler creates an ArrivalSampler from a validated spec.
func NewArrivalSampler(spec ArrivalSpec) ArrivalSampler {
	rate := spec.Rate
	if rate < 1e-15 {
		rate = 1e-15
	}
	switch spec.Process {
	case "constant":
		interval := int64(1.0 / rate)
		if interval < 1 {
			interval = 1
		}
		return &ConstantSampler{interval: interval}

	case "gamma":
		cv := 1.0
		if spec.CV != nil {
			cv = *spec.CV
		}
		// shape = 1/CV², scale = mean * CV² = (1/rate) * CV²
		shape := 1.0 / (cv * cv)
		scale := cv * cv / rate
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{rate: rate}
		}
		return &GammaSampler{shape: shape, scale: scale}

	case "weibull":
		cv := 1.0
		if spec.CV != nil {
			cv = *spec.CV
		}
		k := weibullShapeFromCV(cv)
		// scale = mean / Γ(1 + 1/k)
		scale := (1.0 / rate) / math.Gamma(1.0+1.0/k)
		return &WeibullSampler{shape: k, scale: scale}

	default:
		return &PoissonSampler{rate: rate}
	}
}

// weibullShapeFromCV finds the Weibull shape k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, by bisection over k ∈ [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV computes the coefficient of variation for Weibull(k).
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
