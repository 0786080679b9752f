package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrShortSeries is returned when an explicit price series does not cover
// the horizon.
var ErrShortSeries = errors.New("pricing: series shorter than horizon")

// Profile yields the demand-independent base price for each hour.
type Profile interface {
	Name() string
	Series(horizon int) ([]float64, error)
}

// Constant prices every hour the same.
type Constant struct {
	Price float64
}

func (Constant) Name() string { return "constant" }

func (c Constant) Series(horizon int) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("pricing: invalid horizon %d", horizon)
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = c.Price
	}
	return out, nil
}

// Peak is a Gaussian bump on top of a flat offset:
// offset + amplitude·exp(-(h-mu)²/(2σ²)).
type Peak struct {
	Offset    float64
	Amplitude float64
	Mu        float64
	Sigma     float64
}

// DefaultPeak peaks at 18:00 with a wide shoulder.
func DefaultPeak() Peak {
	return Peak{Offset: 5, Amplitude: 5, Mu: 17, Sigma: 26}
}

func (Peak) Name() string { return "peak" }

func (p Peak) Series(horizon int) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("pricing: invalid horizon %d", horizon)
	}
	if p.Sigma <= 0 {
		return nil, fmt.Errorf("pricing: peak sigma must be positive, got %g", p.Sigma)
	}
	out := make([]float64, horizon)
	for h := range out {
		d := float64(h) - p.Mu
		out[h] = p.Offset + p.Amplitude*math.Exp(-d*d/(2*p.Sigma*p.Sigma))
	}
	return out, nil
}

// Series uses explicit per hour prices. Extra entries are ignored.
type Series struct {
	Values []float64
}

func (Series) Name() string { return "series" }

func (s Series) Series(horizon int) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("pricing: invalid horizon %d", horizon)
	}
	if len(s.Values) < horizon {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrShortSeries, len(s.Values), horizon)
	}
	out := make([]float64, horizon)
	copy(out, s.Values)
	for h, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("pricing: non-finite price at hour %d", h)
		}
	}
	return out, nil
}
