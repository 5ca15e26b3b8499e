package fit

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/astrokit/binfit/pkg/orbit"
)

// objective evaluates weighted residual vectors for candidate free
// parameter vectors against one immutable observation set. It is safe
// for concurrent evaluation: all state is read-only after construction.
type objective struct {
	ps     *ParamSet
	obs    Observations
	lo, hi []float64

	needRV   bool
	rvFactor float64
	asFactor float64
}

// newObjective fixes the stream weighting factors. With weight w the RV
// entries are scaled by (1-w)*(L_AS+L_RV)/L_RV and the astrometric ones
// by w*(L_AS+L_RV)/L_AS, redistributing residual mass between the two
// stream families; a nil weight leaves the natural per-point weighting.
func newObjective(ps *ParamSet, obs Observations, weight *float64) *objective {
	f := &objective{ps: ps, obs: obs, rvFactor: 1, asFactor: 1}
	f.lo, f.hi = ps.FreeBounds()
	f.needRV = obs.HasRV1() || obs.HasRV2()
	if weight != nil {
		w := *weight
		lrv := float64(obs.rvEntries())
		las := float64(obs.astroEntries())
		if lrv > 0 {
			f.rvFactor = (1 - w) * (las + lrv) / lrv
		}
		if las > 0 {
			f.asFactor = w * (las + lrv) / las
		}
	}
	return f
}

func (f *objective) clamp(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = clip(v, f.lo[j], f.hi[j])
	}
	return out
}

func (f *objective) inBounds(x []float64) bool {
	for j, v := range x {
		if v < f.lo[j] || v > f.hi[j] {
			return false
		}
	}
	return true
}

// residualsAt evaluates the weighted residual vector at a free vector x,
// concatenated in the fixed order [rv1, rv2, east, north]. x is clamped
// into the bounds first so finite-difference probing cannot step outside
// the model domain.
func (f *objective) residualsAt(x []float64) ([]float64, error) {
	vals := f.ps.valuesAt(f.clamp(x))
	op := orbitParamsOf(vals)
	if f.needRV {
		if err := op.ValidateRV(); err != nil {
			return nil, err
		}
	}
	sys, err := orbit.NewSystem(op)
	if err != nil {
		return nil, err
	}

	res := make([]float64, 0, f.obs.NumEntries())
	for _, pt := range f.obs.RV1 {
		model, err := sys.Primary.RadialVelocityOfEpoch(pt.Epoch)
		if err != nil {
			return nil, err
		}
		res = append(res, (model-pt.RV)/pt.Err*f.rvFactor)
	}
	for _, pt := range f.obs.RV2 {
		model, err := sys.Secondary.RadialVelocityOfEpoch(pt.Epoch)
		if err != nil {
			return nil, err
		}
		res = append(res, (model-pt.RV)/pt.Err*f.rvFactor)
	}
	if f.obs.HasAstro() {
		positions := make([]orbit.SkyPos, len(f.obs.Astro))
		for i, pt := range f.obs.Astro {
			pos, err := sys.Relative.PosOfEpoch(pt.Epoch)
			if err != nil {
				return nil, err
			}
			positions[i] = pos
		}
		for i, pt := range f.obs.Astro {
			res = append(res, (positions[i].East-pt.East)/pt.EastErr*f.asFactor)
		}
		for i, pt := range f.obs.Astro {
			res = append(res, (positions[i].North-pt.North)/pt.NorthErr*f.asFactor)
		}
	}
	return res, nil
}

// chiSquaredAt is the sum of squared weighted residuals at x.
func (f *objective) chiSquaredAt(x []float64) (float64, error) {
	res, err := f.residualsAt(x)
	if err != nil {
		return 0, err
	}
	return floats.Dot(res, res), nil
}

// penaltyAt is the chi-square with box constraints enforced by an
// infinite penalty, for use by unconstrained scalar minimizers. Model
// errors inside the box also map to an infinite penalty so the minimizer
// backs away from them; callers must verify the final point evaluates
// finite.
func (f *objective) penaltyAt(x []float64) float64 {
	if !f.inBounds(x) {
		return math.Inf(1)
	}
	chi, err := f.chiSquaredAt(x)
	if err != nil {
		return math.Inf(1)
	}
	return chi
}

// logProbAt is the Gaussian log-probability -chi2/2 with a flat prior
// inside the bounds and -Inf outside, for the posterior sampler.
func (f *objective) logProbAt(x []float64) float64 {
	if !f.inBounds(x) {
		return math.Inf(-1)
	}
	chi, err := f.chiSquaredAt(x)
	if err != nil {
		return math.Inf(-1)
	}
	return -0.5 * chi
}
