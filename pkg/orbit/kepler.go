// Package orbit models the orbits of a double-lined spectroscopic and/or
// astrometric binary: Kepler's equation, anomaly conversions, the radial
// velocity and Thiele-Innes sky-plane models, and the derived physical
// quantities of the system.
package orbit

import (
	"errors"
	"math"
)

const (
	keplerTol     = 1e-12
	keplerMaxIter = 100
)

var (
	errBracket    = errors.New("root not bracketed")
	errIterations = errors.New("iteration budget exhausted")
)

// EccentricAnomalyOfPhase solves Kepler's equation M = E - e sin E for the
// eccentric anomaly at the given orbital phase. The phase is folded into
// [0,1) first. The left side minus the mean anomaly is strictly increasing
// in E on [0, 2pi] for e < 1, so the root is located there with a
// bracketed bisection-secant-inverse-quadratic hybrid.
func EccentricAnomalyOfPhase(phase, e float64) (float64, error) {
	if e < 0 || e >= 1 || math.IsNaN(e) {
		return 0, &InvalidEccentricityError{Ecc: e}
	}
	ph := math.Mod(phase, 1)
	if ph < 0 {
		ph++
	}
	m := 2 * math.Pi * ph
	f := func(ecc float64) float64 {
		return ecc - e*math.Sin(ecc) - m
	}
	root, err := brent(f, 0, 2*math.Pi, keplerTol, keplerMaxIter)
	if err != nil {
		return 0, &SolverConvergenceError{Ecc: e, Phase: phase, Iterations: keplerMaxIter}
	}
	return root, nil
}

// EccentricAnomaliesOfPhases solves Kepler's equation for every phase in
// phases. Each solve is independent; results are returned in input order.
func EccentricAnomaliesOfPhases(phases []float64, e float64) ([]float64, error) {
	if e < 0 || e >= 1 || math.IsNaN(e) {
		return nil, &InvalidEccentricityError{Ecc: e}
	}
	out := make([]float64, len(phases))
	for k, ph := range phases {
		ecc, err := EccentricAnomalyOfPhase(ph, e)
		if err != nil {
			return nil, err
		}
		out[k] = ecc
	}
	return out, nil
}

// brent locates a root of f on [a,b] by Brent's method. The caller must
// supply a bracketing interval: f(a) and f(b) with opposite signs.
func brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	fa := f(a)
	fb := f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.IsNaN(fa) || math.IsNaN(fb) || fa*fb > 0 {
		return 0, errBracket
	}
	c, fc := b, fb
	var d, e float64
	for i := 0; i < maxIter; i++ {
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*machEps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// interpolation step: secant if two points, inverse
			// quadratic if three are distinct
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}
	return 0, errIterations
}

const machEps = 2.220446049250313e-16
