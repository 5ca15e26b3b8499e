package orbit

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CurveSamples is the number of model evaluations behind a rendered curve.
const CurveSamples = 200

// PhaseMargin is how far beyond [0,1] phase-folded curves and data are
// extended so that the wrap boundary reads continuously.
const PhaseMargin = 0.15

// RVCurve samples an absolute orbit's radial velocity model on n phases
// spanning [-margin, 1+margin].
func RVCurve(o *AbsoluteOrbit, n int, margin float64) (phases, rvs []float64, err error) {
	phases = floats.Span(make([]float64, n), -margin, 1+margin)
	rvs, err = o.RadialVelocitiesOfPhases(phases)
	if err != nil {
		return nil, nil, err
	}
	return phases, rvs, nil
}

// SkyCurve samples the relative orbit on n eccentric anomalies covering
// one full revolution, periastron to periastron.
func SkyCurve(o *RelativeOrbit, n int) []SkyPos {
	eccAnoms := floats.Span(make([]float64, n), 0, 2*math.Pi)
	out := make([]SkyPos, n)
	for k, eccAnom := range eccAnoms {
		out[k] = o.PosOfEccentricAnomaly(eccAnom)
	}
	return out
}

// PhasePoint is one phase-folded measurement with its error.
type PhasePoint struct {
	Phase float64
	Value float64
	Err   float64
}

// ExtendPhases duplicates points near the fold boundary on the other side
// of it, so a phase-folded series plots continuously across the wrap.
// Points with phase above 1-margin reappear at phase-1 ahead of the
// originals and points with phase below margin reappear at phase+1 after
// them. The input slice is not modified.
func ExtendPhases(points []PhasePoint, margin float64) []PhasePoint {
	out := make([]PhasePoint, 0, len(points)+len(points)/2)
	for _, p := range points {
		if p.Phase > 1-margin {
			p.Phase--
			out = append(out, p)
		}
	}
	out = append(out, points...)
	for _, p := range points {
		if p.Phase < margin {
			p.Phase++
			out = append(out, p)
		}
	}
	return out
}

// RepeatUntilTime tiles one period's worth of sampled curve forward in
// time until maxTime is covered. The input is repeated shifted by whole
// periods, so times must span at most one period for the result to be
// monotonic. Inputs are not modified.
func RepeatUntilTime(times, values []float64, period, maxTime float64) ([]float64, []float64) {
	if len(times) == 0 {
		return nil, nil
	}
	n := int(math.Floor((maxTime - times[0]) / period))
	if n < 0 {
		n = 0
	}
	outT := make([]float64, 0, (n+1)*len(times))
	outV := make([]float64, 0, (n+1)*len(values))
	for rep := 0; rep <= n; rep++ {
		shift := float64(rep) * period
		for _, t := range times {
			outT = append(outT, t+shift)
		}
		outV = append(outV, values...)
	}
	return outT, outV
}
