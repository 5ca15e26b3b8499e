package fit

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	basinTemperature = 5.0
	basinStepSize    = 0.5
)

// basinHopping explores the chi-square landscape with random restarts:
// each hop displaces the current point, polishes it with a Nelder-Mead
// simplex and accepts or rejects the polished point by a Metropolis rule
// on the chi-square. The best point seen gets a final damped least
// squares polish so the result carries a covariance estimate.
func basinHopping(ctx context.Context, f *objective, x0 []float64, hops int, rng *rand.Rand, logger *slog.Logger) (*lmResult, error) {
	if hops < 1 {
		return nil, fmt.Errorf("basin hopping needs at least one hop, got %d", hops)
	}
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("no free parameters to fit")
	}

	displace := distuv.Uniform{Min: -basinStepSize, Max: basinStepSize, Src: rng}

	polish := func(start []float64) ([]float64, float64, error) {
		problem := optimize.Problem{Func: f.penaltyAt}
		settings := &optimize.Settings{MajorIterations: 1000}
		result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
		if result == nil {
			return nil, 0, fmt.Errorf("simplex polish: %w", err)
		}
		pt := f.clamp(result.X)
		return pt, f.penaltyAt(pt), nil
	}

	xCur, chiCur, err := polish(f.clamp(x0))
	if err != nil {
		return nil, err
	}
	if math.IsInf(chiCur, 1) || math.IsNaN(chiCur) {
		return nil, fmt.Errorf("initial polish did not reach a finite chi-square")
	}
	xBest := append([]float64(nil), xCur...)
	chiBest := chiCur

	for hop := 1; hop <= hops; hop++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		trial := make([]float64, n)
		for j := range trial {
			scale := math.Max(1, math.Abs(xCur[j]))
			trial[j] = clip(xCur[j]+displace.Rand()*scale, f.lo[j], f.hi[j])
		}
		xTrial, chiTrial, err := polish(trial)
		if err != nil {
			return nil, err
		}

		accept := chiTrial <= chiCur
		if !accept && !math.IsInf(chiTrial, 1) {
			accept = rng.Float64() < math.Exp(-(chiTrial-chiCur)/basinTemperature)
		}
		if accept {
			xCur, chiCur = xTrial, chiTrial
		}
		if chiTrial < chiBest {
			xBest = append(xBest[:0], xTrial...)
			chiBest = chiTrial
		}
		logger.Debug("basin hop complete",
			"hop", hop, "chi2", chiTrial, "best", chiBest, "accepted", accept)
	}

	// final local polish restores the covariance estimate
	return levenbergMarquardt(ctx, f, xBest)
}
