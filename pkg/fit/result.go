package fit

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/astrokit/binfit/pkg/orbit"
)

// Result is the outcome of one minimization run. Params holds the full
// ordered parameter list with best-fit values and standard errors; the
// Chain is set for posterior sampling runs only.
type Result struct {
	Method      Method
	Params      []Param
	FreeNames   []string
	ChiSquared  float64
	RedChi      float64
	NPoints     int
	NFree       int
	Dof         int
	RMSRV1      float64
	RMSRV2      float64
	RMSAstro    float64
	Iterations  int
	Evaluations int
	Duration    time.Duration
	Chain       *Chain
	Warnings    []string
}

// OrbitParams maps the best-fit values back onto an orbital element set.
func (r *Result) OrbitParams() orbit.Params {
	vals := make([]float64, numParams)
	for _, p := range r.Params {
		for i, name := range paramNames {
			if p.Name == name {
				vals[i] = p.Value
				break
			}
		}
	}
	return orbitParamsOf(vals)
}

// System rebuilds the best-fit binary model.
func (r *Result) System() (*orbit.System, error) {
	return orbit.NewSystem(r.OrbitParams())
}

// GuessMap converts the best-fit values and vary flags back into the
// guess file representation, so a fit can seed the next one.
func (r *Result) GuessMap() map[string]Guess {
	out := make(map[string]Guess, len(r.Params))
	for _, p := range r.Params {
		out[p.Name] = Guess{Value: p.Value, Vary: p.Vary}
	}
	return out
}

// StreamRMS computes the unweighted per-stream root mean square residuals
// of a system against the observations, in physical units (km/s for the
// RV streams, mas for astrometry). Streams that are absent report zero.
func StreamRMS(sys *orbit.System, obs Observations) (rmsRV1, rmsRV2, rmsAstro float64, err error) {
	if obs.HasRV1() {
		sum := 0.0
		for _, pt := range obs.RV1 {
			model, err := sys.Primary.RadialVelocityOfEpoch(pt.Epoch)
			if err != nil {
				return 0, 0, 0, err
			}
			d := model - pt.RV
			sum += d * d
		}
		rmsRV1 = math.Sqrt(sum / float64(len(obs.RV1)))
	}
	if obs.HasRV2() {
		sum := 0.0
		for _, pt := range obs.RV2 {
			model, err := sys.Secondary.RadialVelocityOfEpoch(pt.Epoch)
			if err != nil {
				return 0, 0, 0, err
			}
			d := model - pt.RV
			sum += d * d
		}
		rmsRV2 = math.Sqrt(sum / float64(len(obs.RV2)))
	}
	if obs.HasAstro() {
		sum := 0.0
		for _, pt := range obs.Astro {
			pos, err := sys.Relative.PosOfEpoch(pt.Epoch)
			if err != nil {
				return 0, 0, 0, err
			}
			de := pos.East - pt.East
			dn := pos.North - pt.North
			sum += de*de + dn*dn
		}
		rmsAstro = math.Sqrt(sum / float64(obs.astroEntries()))
	}
	return rmsRV1, rmsRV2, rmsAstro, nil
}

// ParamUnit returns the physical unit of a named parameter, empty for
// dimensionless ones.
func ParamUnit(name string) string {
	switch name {
	case "p", "t0":
		return "day"
	case "i", "omega", "Omega":
		return "deg"
	case "d":
		return "pc"
	case "k1", "k2", "gamma1", "gamma2":
		return "km/s"
	case "mt":
		return "Msun"
	default:
		return ""
	}
}

// Report renders a human-readable summary of the fit: the statistics, the
// parameter table with standard errors, and the derived physical
// quantities of the best-fit system.
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "minimization complete (%s) in %s\n",
		r.Method, r.Duration.Round(time.Millisecond))
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	fmt.Fprintf(&b, "  chi-square          %.6g\n", r.ChiSquared)
	fmt.Fprintf(&b, "  reduced chi-square  %.6g\n", r.RedChi)
	fmt.Fprintf(&b, "  data points         %d\n", r.NPoints)
	fmt.Fprintf(&b, "  free parameters     %d\n", r.NFree)
	fmt.Fprintf(&b, "  degrees of freedom  %d\n", r.Dof)
	if r.RMSRV1 > 0 {
		fmt.Fprintf(&b, "  rms primary RV      %.6g km/s\n", r.RMSRV1)
	}
	if r.RMSRV2 > 0 {
		fmt.Fprintf(&b, "  rms secondary RV    %.6g km/s\n", r.RMSRV2)
	}
	if r.RMSAstro > 0 {
		fmt.Fprintf(&b, "  rms astrometry      %.6g mas\n", r.RMSAstro)
	}

	b.WriteString("parameters:\n")
	for _, p := range r.Params {
		state := "fixed"
		switch {
		case p.Derived:
			state = "derived"
		case p.Vary:
			state = fmt.Sprintf("+/- %-12.6g", p.Stderr)
		}
		fmt.Fprintf(&b, "  %-7s = %-14.8g %-18s %s\n", p.Name, p.Value, state, ParamUnit(p.Name))
	}

	if sys, err := r.System(); err == nil {
		b.WriteString("derived quantities:\n")
		fmt.Fprintf(&b, "  M1                  %.6g Msun\n", sys.PrimaryMass())
		fmt.Fprintf(&b, "  M2                  %.6g Msun\n", sys.SecondaryMass())
		fmt.Fprintf(&b, "  Mtot (from RVs)     %.6g Msun\n", sys.TotalMass())
		fmt.Fprintf(&b, "  Mtot (from d)       %.6g Msun\n", sys.TotalMassFromDistance())
		fmt.Fprintf(&b, "  a (from RVs)        %.6g AU\n", sys.SemiMajorAxisFromRV())
		fmt.Fprintf(&b, "  a (from Mtot)       %.6g AU\n", sys.SemiMajorAxisFromDistance())
		fmt.Fprintf(&b, "  apparent a          %.6g mas\n", sys.Relative.A)
	}
	return b.String()
}
