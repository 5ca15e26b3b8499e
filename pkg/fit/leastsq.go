package fit

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	lmMaxIter    = 500
	lmFtol       = 1e-10
	lmXtol       = 1e-10
	lmGtol       = 1e-10
	lmLambdaInit = 1e-3
	lmLambdaMax  = 1e12
	lmLambdaMin  = 1e-12
)

// lmResult carries the optimum of one local least squares run.
type lmResult struct {
	x     []float64
	chisq float64
	covar *mat.Dense // nil when the curvature matrix cannot be inverted
	iters int
	nfev  int
}

// levenbergMarquardt minimizes the sum of squared residuals from x0 using
// damped normal equations with central-difference Jacobians. Bounds are
// enforced by projecting trial steps back into the box. The context is
// checked once per iteration. Model errors during any evaluation abort
// the run.
func levenbergMarquardt(ctx context.Context, f *objective, x0 []float64) (*lmResult, error) {
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("no free parameters to fit")
	}
	x := f.clamp(x0)
	r, err := f.residualsAt(x)
	if err != nil {
		return nil, fmt.Errorf("initial residual evaluation: %w", err)
	}
	m := len(r)
	if m == 0 {
		return nil, ErrNoData
	}

	res := &lmResult{nfev: 1}
	chisq := floats.Dot(r, r)
	lambda := lmLambdaInit
	jac := mat.NewDense(m, n, nil)

	var jacErr error
	jacFunc := func(y, xx []float64) {
		rr, err := f.residualsAt(xx)
		if err != nil {
			if jacErr == nil {
				jacErr = err
			}
			for i := range y {
				y[i] = 0
			}
			return
		}
		copy(y, rr)
	}
	jacobian := func(at []float64) error {
		jacErr = nil
		fd.Jacobian(jac, jacFunc, at, &fd.JacobianSettings{Formula: fd.Central})
		res.nfev += 2 * n
		if jacErr != nil {
			return fmt.Errorf("jacobian evaluation: %w", jacErr)
		}
		return nil
	}

	converged := false
	for iter := 0; iter < lmMaxIter && !converged; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res.iters = iter + 1

		if err := jacobian(x); err != nil {
			return nil, err
		}
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		grad := mat.NewVecDense(n, nil)
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))

		if mat.Norm(grad, math.Inf(1)) < lmGtol {
			break
		}

		accepted := false
		for lambda <= lmLambdaMax {
			a := mat.DenseCopyOf(&jtj)
			for j := 0; j < n; j++ {
				d := jtj.At(j, j)
				if d <= 0 {
					d = 1
				}
				a.Set(j, j, jtj.At(j, j)+lambda*d)
			}
			var delta mat.VecDense
			if err := delta.SolveVec(a, grad); err != nil {
				if !isCondition(err) {
					lambda *= 10
					continue
				}
			}

			xNew := make([]float64, n)
			for j := 0; j < n; j++ {
				xNew[j] = clip(x[j]-delta.AtVec(j), f.lo[j], f.hi[j])
			}
			rNew, err := f.residualsAt(xNew)
			res.nfev++
			if err != nil {
				return nil, fmt.Errorf("residual evaluation: %w", err)
			}
			chisqNew := floats.Dot(rNew, rNew)
			if chisqNew < chisq {
				step := 0.0
				for j := 0; j < n; j++ {
					step = math.Max(step, math.Abs(xNew[j]-x[j]))
				}
				dchi := chisq - chisqNew
				x, r, chisq = xNew, rNew, chisqNew
				lambda /= 10
				if lambda < lmLambdaMin {
					lambda = lmLambdaMin
				}
				if dchi <= lmFtol*chisq || step <= lmXtol*(lmXtol+maxAbs(x)) {
					converged = true
				}
				accepted = true
				break
			}
			lambda *= 10
		}
		if !accepted {
			// damping exhausted without improvement
			break
		}
	}

	res.x = x
	res.chisq = chisq

	// covariance from the curvature at the optimum, scaled by the reduced
	// chi-square as lmfit does
	if dof := m - n; dof > 0 {
		if err := jacobian(x); err == nil {
			var jtj mat.Dense
			jtj.Mul(jac.T(), jac)
			var inv mat.Dense
			if err := inv.Inverse(&jtj); err == nil || isCondition(err) {
				inv.Scale(chisq/float64(dof), &inv)
				res.covar = &inv
			}
		}
	}
	return res, nil
}

// isCondition reports whether err only flags poor conditioning, in which
// case the computed result is still usable.
func isCondition(err error) bool {
	_, ok := err.(mat.Condition)
	return ok
}

func maxAbs(x []float64) float64 {
	out := 0.0
	for _, v := range x {
		out = math.Max(out, math.Abs(v))
	}
	return out
}
