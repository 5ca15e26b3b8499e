// Package fit estimates the orbital parameters of a spectroscopic and/or
// astrometric binary from observed data. It wraps the orbit package in a
// weighted least-squares objective and offers three minimization methods:
// a damped least-squares fit, basin hopping for multimodal problems, and
// affine-invariant MCMC sampling for posterior error estimates.
package fit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/exp/rand"

	"github.com/astrokit/binfit/pkg/orbit"
)

// Method selects the minimization strategy.
type Method string

const (
	MethodLeastSq      Method = "leastsq"
	MethodBasinHopping Method = "basinhopping"
	MethodMCMC         Method = "emcee"
)

// Default sampler and hopping settings, used when the corresponding
// Options fields are left zero.
const (
	DefaultHops    = 10
	DefaultSteps   = 1000
	DefaultWalkers = 100
	DefaultBurn    = 100
	DefaultThin    = 1
)

// Options configures a fit. The zero value selects a plain least-squares
// fit with default settings. Burn is taken as given (zero keeps every
// sampled step); the other sampler fields fall back to their defaults
// when zero or negative.
type Options struct {
	Method    Method
	Hops      int      // basin hops before the final polish
	Steps     int      // mcmc steps per walker
	Walkers   int      // mcmc ensemble size, must be even
	Burn      int      // mcmc steps discarded from the front of the chain
	Thin      int      // keep every thin-th mcmc step
	Weight    *float64 // astrometric weight in [0,1], nil for natural weighting
	LockGamma bool     // tie gamma2 to gamma1
	LockQ     bool     // fit the mass ratio q = k1/k2 instead of k2
	Workers   int      // parallel model evaluations during sampling
	Seed      uint64   // random seed, 0 draws one from the clock
	Logger    *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Method == "" {
		o.Method = MethodLeastSq
	}
	if o.Hops <= 0 {
		o.Hops = DefaultHops
	}
	if o.Steps <= 0 {
		o.Steps = DefaultSteps
	}
	if o.Walkers <= 0 {
		o.Walkers = DefaultWalkers
	}
	if o.Thin <= 0 {
		o.Thin = DefaultThin
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Fit minimizes the orbital model against the observations, starting from
// the supplied guesses. Parameters the data cannot constrain are fixed
// automatically before the fit.
func Fit(ctx context.Context, guesses map[string]Guess, obs Observations, opts Options) (*Result, error) {
	opts.setDefaults()
	logger := opts.Logger

	switch opts.Method {
	case MethodLeastSq, MethodBasinHopping, MethodMCMC:
	default:
		return nil, fmt.Errorf("unsupported method: %s (use: leastsq, basinhopping, emcee)", opts.Method)
	}
	if opts.Weight != nil && (*opts.Weight < 0 || *opts.Weight > 1) {
		return nil, fmt.Errorf("astrometric weight must lie in [0,1], got %g", *opts.Weight)
	}
	if opts.Method == MethodMCMC {
		if opts.Burn < 0 {
			return nil, fmt.Errorf("burn-in must not be negative, got %d", opts.Burn)
		}
		if opts.Burn >= opts.Steps {
			return nil, fmt.Errorf("burn-in of %d discards the whole chain, use a value below the step count %d", opts.Burn, opts.Steps)
		}
	}

	ps, err := NewParamSet(guesses, opts.LockGamma, opts.LockQ)
	if err != nil {
		return nil, err
	}
	for _, w := range ps.Warnings() {
		logger.Warn(w)
	}
	if err := ps.ApplyFreedom(obs); err != nil {
		return nil, err
	}
	free := ps.FreeNames()
	if len(free) == 0 {
		return nil, fmt.Errorf("no free parameters left to fit")
	}

	f := newObjective(ps, obs, opts.Weight)
	x0 := ps.FreeValues()
	if _, err := f.residualsAt(x0); err != nil {
		return nil, fmt.Errorf("initial guesses do not produce a valid model: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	logger.Info("starting minimization",
		"method", opts.Method,
		"points", obs.NumEntries(),
		"free", len(free),
		"rv1", len(obs.RV1),
		"rv2", len(obs.RV2),
		"astrometry", len(obs.Astro))

	start := time.Now()
	var (
		lm       *lmResult
		chain    *Chain
		mcmcErrs []float64
	)
	switch opts.Method {
	case MethodLeastSq:
		lm, err = levenbergMarquardt(ctx, f, x0)
	case MethodBasinHopping:
		lm, err = basinHopping(ctx, f, x0, opts.Hops, rng, logger)
	case MethodMCMC:
		lm, err = levenbergMarquardt(ctx, f, x0)
		if err != nil {
			break
		}
		logger.Info("local optimum found, starting sampler", "chi2", lm.chisq)
		mopt := mcmcOptions{
			steps:   opts.Steps,
			walkers: opts.Walkers,
			burn:    opts.Burn,
			thin:    opts.Thin,
			workers: opts.Workers,
		}
		var medians []float64
		chain, medians, mcmcErrs, err = sampleEnsemble(ctx, f, lm.x, free, mopt, rng, logger)
		if err != nil {
			break
		}
		chi, cerr := f.chiSquaredAt(medians)
		if cerr != nil {
			err = fmt.Errorf("posterior medians do not produce a valid model: %w", cerr)
			break
		}
		if math.IsInf(chi, 0) || math.IsNaN(chi) {
			err = fmt.Errorf("posterior medians have a non-finite chi-square")
			break
		}
		lm = &lmResult{
			x:     medians,
			chisq: chi,
			iters: opts.Steps,
			nfev:  lm.nfev + opts.Steps*opts.Walkers,
		}
	}
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	stderrs := make([]float64, len(free))
	if mcmcErrs != nil {
		copy(stderrs, mcmcErrs)
	} else if lm.covar != nil {
		for j := range stderrs {
			if v := lm.covar.At(j, j); v > 0 {
				stderrs[j] = math.Sqrt(v)
			}
		}
	}
	ps.SetFree(lm.x)
	ps.SetStderrs(stderrs)

	sys, err := orbit.NewSystem(ps.OrbitParams())
	if err != nil {
		return nil, fmt.Errorf("best-fit parameters do not produce a valid model: %w", err)
	}
	rms1, rms2, rmsAstro, err := StreamRMS(sys, obs)
	if err != nil {
		return nil, err
	}

	npoints := obs.NumEntries()
	dof := npoints - len(free)
	redchi := math.NaN()
	if dof > 0 {
		redchi = lm.chisq / float64(dof)
	}

	res := &Result{
		Method:      opts.Method,
		Params:      ps.Params(),
		FreeNames:   free,
		ChiSquared:  lm.chisq,
		RedChi:      redchi,
		NPoints:     npoints,
		NFree:       len(free),
		Dof:         dof,
		RMSRV1:      rms1,
		RMSRV2:      rms2,
		RMSAstro:    rmsAstro,
		Iterations:  lm.iters,
		Evaluations: lm.nfev,
		Duration:    duration,
		Chain:       chain,
		Warnings:    ps.Warnings(),
	}
	logger.Info("minimization complete",
		"chi2", lm.chisq,
		"redchi", redchi,
		"dof", dof,
		"evaluations", lm.nfev,
		"duration", duration)
	return res, nil
}
