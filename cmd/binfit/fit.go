package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/astrokit/binfit/internal/types"
	"github.com/astrokit/binfit/pkg/fit"
	"github.com/astrokit/binfit/pkg/obsio"
	"github.com/astrokit/binfit/pkg/orbit"
)

var (
	fitInput     string
	fitPlotOnly  bool
	fitSepPA     bool
	fitMCMC      bool
	fitMethod    string
	fitSteps     int
	fitWalkers   int
	fitBurn      int
	fitThin      int
	fitHops      int
	fitWeight    float64
	fitDefWeight bool
	fitLockGamma bool
	fitLockQ     bool
	fitSeed      uint64
	fitOutDir    string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the orbital elements to the data named by a pointer file",
	Long: `Fit the orbital elements of a binary to the observations.

The pointer file lists the guess file and the data files, one "key
filename" pair per line with paths relative to the pointer file:

    guessfile guesses.txt
    RV1file primary_vels.txt
    RV2file secondary_vels.txt
    ASfile relative_astrometry.txt

Unwanted data files can be commented out with #. Parameters the present
data cannot constrain are fixed automatically before the minimization.
The fitted solution, its report and the model curves are written to the
output directory.

Examples:
  # local least squares fit
  binfit fit -i pointer.txt

  # separation/position-angle astrometry, posterior errors from MCMC
  binfit fit -i pointer.txt --seppa --mcmc --steps 2000

  # global search with 20 basin hops, astrometry upweighted
  binfit fit -i pointer.txt --method basinhopping --hops 20 --weight 0.7
`,
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.StringVarP(&fitInput, "input", "i", "", "pointer file naming the guess and data files")
	f.BoolVarP(&fitPlotOnly, "plot-only", "p", false, "skip the minimization, dump the model of the guesses")
	f.BoolVarP(&fitSepPA, "seppa", "s", false, "astrometry columns hold separation and position angle")
	f.BoolVarP(&fitMCMC, "mcmc", "m", false, "sample the posterior after the local fit")
	f.StringVar(&fitMethod, "method", "", "minimization method: leastsq, basinhopping or emcee (default from config)")
	f.IntVarP(&fitSteps, "steps", "t", 0, "MCMC steps per walker (default from config)")
	f.IntVar(&fitWalkers, "walkers", 0, "MCMC ensemble size, even (default from config)")
	f.IntVar(&fitBurn, "burn", 0, "MCMC steps discarded from the chain front (default from config)")
	f.IntVar(&fitThin, "thin", 0, "keep every thin-th MCMC step (default from config)")
	f.IntVar(&fitHops, "hops", 0, "basin hops before the final polish (default from config)")
	f.Float64VarP(&fitWeight, "weight", "w", 0, "astrometric weight in [0,1]; redistributes residual mass between streams")
	f.BoolVar(&fitDefWeight, "default-weight", false, "redistribute with the natural astrometric share")
	f.BoolVar(&fitLockGamma, "lock-gamma", false, "tie gamma2 to gamma1")
	f.BoolVar(&fitLockQ, "lock-q", false, "fit the mass ratio q = k1/k2 instead of k2")
	f.Uint64Var(&fitSeed, "seed", 0, "random seed for the stochastic methods (0 draws from the clock)")
	f.StringVarP(&fitOutDir, "output", "o", "", "output directory (default from config)")
	fitCmd.MarkFlagRequired("input")
}

func runFit(cmd *cobra.Command, args []string) error {
	ptr, err := obsio.ParsePointer(fitInput)
	if err != nil {
		return err
	}
	guesses, err := obsio.LoadGuesses(ptr.GuessFile)
	if err != nil {
		return err
	}
	obs, err := obsio.LoadObservations(ptr, fitSepPA)
	if err != nil {
		return err
	}

	outDir := fitOutDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if fitPlotOnly {
		return runPlotOnly(guesses, obs, outDir)
	}

	opts := fitOptions(cmd, obs)
	res, err := fit.Fit(cmd.Context(), guesses, obs, opts)
	if err != nil {
		return err
	}

	fmt.Print(res.Report())
	return writeFitOutputs(res, obs, outDir)
}

// fitOptions merges the config defaults with the flags; a changed flag
// wins over the file value.
func fitOptions(cmd *cobra.Command, obs fit.Observations) fit.Options {
	opts := fit.Options{
		Method:    fit.Method(cfg.Fit.Method),
		Hops:      cfg.Fit.Hops,
		Steps:     cfg.MCMC.Steps,
		Walkers:   cfg.MCMC.Walkers,
		Burn:      cfg.MCMC.Burn,
		Thin:      cfg.MCMC.Thin,
		Workers:   cfg.Fit.Workers,
		LockGamma: fitLockGamma,
		LockQ:     fitLockQ,
		Seed:      fitSeed,
		Logger:    logger,
	}
	if fitMethod != "" {
		opts.Method = fit.Method(fitMethod)
	}
	if fitMCMC {
		opts.Method = fit.MethodMCMC
	}
	flags := cmd.Flags()
	if flags.Changed("steps") {
		opts.Steps = fitSteps
	}
	if flags.Changed("walkers") {
		opts.Walkers = fitWalkers
	}
	if flags.Changed("burn") {
		opts.Burn = fitBurn
	}
	if flags.Changed("thin") {
		opts.Thin = fitThin
	}
	if flags.Changed("hops") {
		opts.Hops = fitHops
	}
	switch {
	case flags.Changed("weight"):
		w := fitWeight
		opts.Weight = &w
	case fitDefWeight:
		w := obs.DefaultWeight()
		opts.Weight = &w
	}
	return opts
}

// runPlotOnly dumps the model of the guesses without minimizing, the way
// a user inspects an initial solution before committing to a fit.
func runPlotOnly(guesses map[string]fit.Guess, obs fit.Observations, outDir string) error {
	ps, err := fit.NewParamSet(guesses, fitLockGamma, fitLockQ)
	if err != nil {
		return err
	}
	for _, w := range ps.Warnings() {
		logger.Warn(w)
	}
	sys, err := orbit.NewSystem(ps.OrbitParams())
	if err != nil {
		return fmt.Errorf("guesses do not produce a valid model: %w", err)
	}

	fmt.Printf("model of the supplied guesses (no minimization)\n")
	fmt.Printf("  M1              %.6g Msun\n", sys.PrimaryMass())
	fmt.Printf("  M2              %.6g Msun\n", sys.SecondaryMass())
	fmt.Printf("  a (from RVs)    %.6g AU\n", sys.SemiMajorAxisFromRV())
	fmt.Printf("  apparent a      %.6g mas\n", sys.Relative.A)
	if obs.NumEntries() > 0 {
		rms1, rms2, rmsAstro, err := fit.StreamRMS(sys, obs)
		if err != nil {
			return err
		}
		if obs.HasRV1() {
			fmt.Printf("  rms primary RV  %.6g km/s\n", rms1)
		}
		if obs.HasRV2() {
			fmt.Printf("  rms secondary RV %.6g km/s\n", rms2)
		}
		if obs.HasAstro() {
			fmt.Printf("  rms astrometry  %.6g mas\n", rmsAstro)
		}
	}
	if err := writeCurves(sys, obs, outDir); err != nil {
		return err
	}
	fmt.Printf("model curves written to %s\n", outDir)
	return nil
}

// writeFitOutputs dumps the fitted solution: model curves, the refitted
// guess file, the JSON report and the posterior chain when one exists.
func writeFitOutputs(res *fit.Result, obs fit.Observations, outDir string) error {
	sys, err := res.System()
	if err != nil {
		return err
	}
	if err := writeCurves(sys, obs, outDir); err != nil {
		return err
	}

	if cfg.Output.SaveGuesses {
		path := filepath.Join(outDir, "fitted_guesses.txt")
		if err := obsio.SaveGuesses(path, res.GuessMap()); err != nil {
			return err
		}
		logger.Info("fitted guesses written", "path", path)
	}

	chainFile := ""
	if res.Chain != nil && cfg.Output.SaveChain {
		chainFile = filepath.Join(outDir, "chain.csv")
		if err := writeChain(chainFile, res.Chain); err != nil {
			return err
		}
		logger.Info("posterior chain written", "path", chainFile, "samples", len(res.Chain.Samples))
	}

	if cfg.Output.SaveReport {
		report := buildReport(res, sys, chainFile)
		data, err := report.ToJSON()
		if err != nil {
			return fmt.Errorf("marshal fit report: %w", err)
		}
		path := filepath.Join(outDir, "fit_report.json")
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("write fit report: %w", err)
		}
		logger.Info("fit report written", "path", path)
	}
	return nil
}

func buildReport(res *fit.Result, sys *orbit.System, chainFile string) *types.FitReport {
	report := &types.FitReport{
		GeneratedAt: time.Now().UTC(),
		Version:     version,
		Method:      string(res.Method),
		PointerFile: fitInput,
		Statistics: types.FitStatistics{
			ChiSquared:       res.ChiSquared,
			ReducedChi:       res.RedChi,
			DataPoints:       res.NPoints,
			FreeParameters:   res.NFree,
			DegreesOfFreedom: res.Dof,
			RMSPrimaryRV:     res.RMSRV1,
			RMSSecondaryRV:   res.RMSRV2,
			RMSAstrometry:    res.RMSAstro,
			Iterations:       res.Iterations,
			Evaluations:      res.Evaluations,
			DurationSeconds:  res.Duration.Seconds(),
		},
		Derived: &types.DerivedReport{
			PrimaryMass:       sys.PrimaryMass(),
			SecondaryMass:     sys.SecondaryMass(),
			TotalMassRV:       sys.TotalMass(),
			TotalMassDistance: sys.TotalMassFromDistance(),
			SemiMajorAxisRV:   sys.SemiMajorAxisFromRV(),
			SemiMajorAxisMass: sys.SemiMajorAxisFromDistance(),
			ApparentSemiMajor: sys.Relative.A,
		},
		Warnings:  res.Warnings,
		ChainFile: chainFile,
	}
	for _, p := range res.Params {
		report.Parameters = append(report.Parameters, types.ParameterReport{
			Name:    p.Name,
			Value:   p.Value,
			Stderr:  p.Stderr,
			Vary:    p.Vary,
			Derived: p.Derived,
			Unit:    fit.ParamUnit(p.Name),
		})
	}
	return report
}

// writeChain dumps the flattened posterior samples, one column per free
// parameter, for external corner plotting.
func writeChain(path string, chain *fit.Chain) error {
	rows := make([][]string, len(chain.Samples))
	for i, sample := range chain.Samples {
		row := make([]string, len(sample))
		for j, v := range sample {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rows[i] = row
	}
	return writeCSV(path, chain.Names, rows)
}
