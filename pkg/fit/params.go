package fit

import (
	"fmt"
	"math"

	"github.com/astrokit/binfit/pkg/orbit"
)

// Canonical parameter order used for guess files, reports and free
// vectors. The locked mass ratio q, when enabled, is appended after mt.
const (
	idxP = iota
	idxE
	idxI
	idxOmega
	idxBigOmega
	idxT0
	idxD
	idxK1
	idxK2
	idxGamma1
	idxGamma2
	idxMT
	numParams
)

var paramNames = [numParams]string{
	"p", "e", "i", "omega", "Omega", "t0", "d", "k1", "k2", "gamma1", "gamma2", "mt",
}

// eccFloor is the value a zero eccentricity guess is raised to. Exactly
// circular guesses make omega unobservable and the Jacobian degenerate.
const eccFloor = 1e-8

// Guess is one initial parameter value with its vary flag, as read from a
// guess file.
type Guess struct {
	Value float64
	Vary  bool
}

// Param is one named model parameter with its bounds and fit state.
type Param struct {
	Name   string
	Value  float64
	Vary   bool
	Min    float64
	Max    float64
	Stderr float64
	// Derived marks a parameter whose value tracks a locked expression
	// (gamma2 under a gamma lock, k2 under a mass ratio lock).
	Derived bool
}

// ParamSet holds the ordered parameter vector of one fit, the lock modes
// and the per-parameter bounds. The free subset of the vector is what the
// minimizers actually move.
type ParamSet struct {
	params    []Param
	byName    map[string]int
	lockGamma bool
	lockQ     bool
	warnings  []string
}

// bounds returns the lmfit-compatible box for a parameter name. The
// eccentricity is kept strictly below 1 so Kepler's equation stays
// solvable under finite-difference probing.
func bounds(name string) (lo, hi float64) {
	switch name {
	case "e":
		return 0, 1 - 1e-5
	case "p", "d", "k1", "k2", "mt", "q":
		return 0, math.Inf(1)
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

// NewParamSet builds the parameter vector from named guesses. All twelve
// parameters must be present. Guesses outside their bounds are clipped,
// a zero eccentricity is raised to a small floor, and the optional locks
// rewire gamma2 and k2 as derived quantities.
func NewParamSet(guesses map[string]Guess, lockGamma, lockQ bool) (*ParamSet, error) {
	for name := range guesses {
		if name == "q" {
			if !lockQ {
				return nil, fmt.Errorf("guess for q requires the mass ratio lock")
			}
			continue
		}
		if !isParamName(name) {
			return nil, fmt.Errorf("unknown parameter %q in guesses", name)
		}
	}

	ps := &ParamSet{
		params:    make([]Param, 0, numParams+1),
		byName:    make(map[string]int, numParams+1),
		lockGamma: lockGamma,
		lockQ:     lockQ,
	}
	for _, name := range paramNames {
		g, ok := guesses[name]
		if !ok {
			return nil, fmt.Errorf("missing guess for parameter %q", name)
		}
		lo, hi := bounds(name)
		ps.byName[name] = len(ps.params)
		ps.params = append(ps.params, Param{
			Name:  name,
			Value: clip(g.Value, lo, hi),
			Vary:  g.Vary,
			Min:   lo,
			Max:   hi,
		})
	}

	if ps.params[idxE].Value < eccFloor {
		ps.params[idxE].Value = eccFloor
		ps.warnings = append(ps.warnings,
			fmt.Sprintf("eccentricity raised to %g to avoid conditioning issues", eccFloor))
	}

	if lockGamma {
		ps.params[idxGamma2].Vary = false
		ps.params[idxGamma2].Derived = true
	}
	if lockQ {
		var qVal float64
		var qVary bool
		if g, ok := guesses["q"]; ok {
			if g.Value == 0 {
				return nil, fmt.Errorf("mass ratio guess must be nonzero")
			}
			qVal, qVary = g.Value, g.Vary
		} else {
			k1, k2 := ps.params[idxK1].Value, ps.params[idxK2].Value
			if k2 == 0 {
				return nil, fmt.Errorf("cannot lock mass ratio: k2 guess is zero")
			}
			qVal, qVary = k1/k2, ps.params[idxK2].Vary
		}
		lo, hi := bounds("q")
		ps.byName["q"] = len(ps.params)
		ps.params = append(ps.params, Param{
			Name:  "q",
			Value: clip(qVal, lo, hi),
			Vary:  qVary,
			Min:   lo,
			Max:   hi,
		})
		ps.params[idxK2].Vary = false
		ps.params[idxK2].Derived = true
	}
	ps.resolveLinks()
	return ps, nil
}

// ParamNames returns the twelve model parameter names in canonical order.
func ParamNames() []string {
	out := make([]string, numParams)
	copy(out, paramNames[:])
	return out
}

// IsParamName reports whether name is one of the twelve model parameters.
func IsParamName(name string) bool { return isParamName(name) }

func isParamName(name string) bool {
	for _, n := range paramNames {
		if n == name {
			return true
		}
	}
	return false
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Warnings reports non-fatal adjustments made while building the set.
func (ps *ParamSet) Warnings() []string { return ps.warnings }

// LockedGamma reports whether gamma2 tracks gamma1.
func (ps *ParamSet) LockedGamma() bool { return ps.lockGamma }

// LockedQ reports whether k2 is derived from the fitted mass ratio.
func (ps *ParamSet) LockedQ() bool { return ps.lockQ }

// fix force-fixes a parameter. Under a mass ratio lock, fixing k2 fixes
// the ratio instead, since k2 itself is already derived.
func (ps *ParamSet) fix(name string) {
	if name == "k2" && ps.lockQ {
		name = "q"
	}
	ps.params[ps.byName[name]].Vary = false
}

// ApplyFreedom force-fixes the parameters the supplied observations
// cannot constrain. Which streams are present decides the table; vary
// flags from the guesses are honored for everything left free.
func (ps *ParamSet) ApplyFreedom(obs Observations) error {
	hasRV1, hasRV2, hasAS := obs.HasRV1(), obs.HasRV2(), obs.HasAstro()
	switch {
	case !hasRV1 && !hasRV2 && !hasAS:
		return ErrNoData
	case hasRV1 && hasRV2:
		if !hasAS {
			ps.fix("i")
			ps.fix("Omega")
			ps.fix("d")
			ps.fix("mt")
		}
	case hasRV1 || hasRV2:
		// single-lined: the unseen component's amplitude and systemic
		// velocity are unconstrained
		if hasRV1 {
			ps.fix("k2")
			ps.fix("gamma2")
		} else {
			ps.fix("k1")
			ps.fix("gamma1")
		}
		if !hasAS {
			ps.fix("i")
			ps.fix("Omega")
			ps.fix("d")
			ps.fix("mt")
		}
	default:
		ps.fix("k1")
		ps.fix("k2")
		ps.fix("gamma1")
		ps.fix("gamma2")
	}
	return nil
}

// Len returns the total number of parameters, counting an appended q.
func (ps *ParamSet) Len() int { return len(ps.params) }

// Params returns a copy of the full ordered parameter list.
func (ps *ParamSet) Params() []Param {
	out := make([]Param, len(ps.params))
	copy(out, ps.params)
	return out
}

// Get returns the named parameter.
func (ps *ParamSet) Get(name string) (Param, bool) {
	i, ok := ps.byName[name]
	if !ok {
		return Param{}, false
	}
	return ps.params[i], true
}

// Value returns the current value of a named parameter, zero when absent.
func (ps *ParamSet) Value(name string) float64 {
	i, ok := ps.byName[name]
	if !ok {
		return 0
	}
	return ps.params[i].Value
}

// SetValue overwrites a parameter value, clipped into its bounds.
func (ps *ParamSet) SetValue(name string, v float64) error {
	i, ok := ps.byName[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	ps.params[i].Value = clip(v, ps.params[i].Min, ps.params[i].Max)
	ps.resolveLinks()
	return nil
}

// SetVary flips the vary flag of a parameter. Derived parameters stay
// fixed regardless.
func (ps *ParamSet) SetVary(name string, vary bool) error {
	i, ok := ps.byName[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	if !ps.params[i].Derived {
		ps.params[i].Vary = vary
	}
	return nil
}

// FreeNames lists the varied parameters in canonical order.
func (ps *ParamSet) FreeNames() []string {
	var names []string
	for _, p := range ps.params {
		if p.Vary {
			names = append(names, p.Name)
		}
	}
	return names
}

// FreeValues returns the current values of the varied parameters.
func (ps *ParamSet) FreeValues() []float64 {
	var vals []float64
	for _, p := range ps.params {
		if p.Vary {
			vals = append(vals, p.Value)
		}
	}
	return vals
}

// FreeBounds returns the box constraints of the varied parameters.
func (ps *ParamSet) FreeBounds() (lo, hi []float64) {
	for _, p := range ps.params {
		if p.Vary {
			lo = append(lo, p.Min)
			hi = append(hi, p.Max)
		}
	}
	return lo, hi
}

// valuesAt materializes the full parameter vector with the free entries
// replaced by x, resolving locked links. It does not mutate the set and
// is safe for concurrent use.
func (ps *ParamSet) valuesAt(x []float64) []float64 {
	vals := make([]float64, len(ps.params))
	k := 0
	for i, p := range ps.params {
		if p.Vary {
			vals[i] = x[k]
			k++
		} else {
			vals[i] = p.Value
		}
	}
	resolveLinkValues(vals, ps.lockGamma, ps.lockQ, ps.byName)
	return vals
}

func resolveLinkValues(vals []float64, lockGamma, lockQ bool, byName map[string]int) {
	if lockGamma {
		vals[idxGamma2] = vals[idxGamma1]
	}
	if lockQ {
		vals[idxK2] = vals[idxK1] / vals[byName["q"]]
	}
}

// resolveLinks recomputes the derived parameter values in place.
func (ps *ParamSet) resolveLinks() {
	if ps.lockGamma {
		ps.params[idxGamma2].Value = ps.params[idxGamma1].Value
	}
	if ps.lockQ {
		ps.params[idxK2].Value = ps.params[idxK1].Value / ps.params[ps.byName["q"]].Value
	}
}

// SetFree writes a free vector back into the set and resolves links.
func (ps *ParamSet) SetFree(x []float64) {
	k := 0
	for i := range ps.params {
		if ps.params[i].Vary {
			ps.params[i].Value = x[k]
			k++
		}
	}
	ps.resolveLinks()
}

// SetStderrs stores per-parameter standard errors for the varied
// parameters and zeroes the rest.
func (ps *ParamSet) SetStderrs(errs []float64) {
	k := 0
	for i := range ps.params {
		if ps.params[i].Vary {
			ps.params[i].Stderr = errs[k]
			k++
		} else {
			ps.params[i].Stderr = 0
		}
	}
}

// OrbitParams converts the current values into an orbital element set.
func (ps *ParamSet) OrbitParams() orbit.Params {
	vals := make([]float64, len(ps.params))
	for i, p := range ps.params {
		vals[i] = p.Value
	}
	return orbitParamsOf(vals)
}

// orbitParamsOf maps a full parameter vector onto the element set.
func orbitParamsOf(vals []float64) orbit.Params {
	return orbit.Params{
		Period:  vals[idxP],
		Ecc:     vals[idxE],
		Inc:     vals[idxI],
		ArgPeri: vals[idxOmega],
		Node:    vals[idxBigOmega],
		T0:      vals[idxT0],
		Dist:    vals[idxD],
		K1:      vals[idxK1],
		K2:      vals[idxK2],
		Gamma1:  vals[idxGamma1],
		Gamma2:  vals[idxGamma2],
		MTot:    vals[idxMT],
	}
}

// Clone returns an independent copy of the set.
func (ps *ParamSet) Clone() *ParamSet {
	out := &ParamSet{
		params:    make([]Param, len(ps.params)),
		byName:    make(map[string]int, len(ps.byName)),
		lockGamma: ps.lockGamma,
		lockQ:     ps.lockQ,
		warnings:  append([]string(nil), ps.warnings...),
	}
	copy(out.params, ps.params)
	for k, v := range ps.byName {
		out.byName[k] = v
	}
	return out
}

// GuessMap converts the current values and vary flags back into the guess
// file representation, including q under a mass ratio lock.
func (ps *ParamSet) GuessMap() map[string]Guess {
	out := make(map[string]Guess, len(ps.params))
	for _, p := range ps.params {
		out[p.Name] = Guess{Value: p.Value, Vary: p.Vary}
	}
	return out
}
