package orbit

import "fmt"

// InvalidModelError reports an orbital element set that violates a domain
// constraint. Minimizers treat the offending parameter vector as
// infeasible; it is never silently repaired.
type InvalidModelError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("invalid orbital model: %s = %g: %s", e.Param, e.Value, e.Reason)
}

// InvalidEccentricityError reports an eccentricity outside [0,1) handed to
// the Kepler solver. Parabolic and hyperbolic orbits are not modeled.
type InvalidEccentricityError struct {
	Ecc float64
}

func (e *InvalidEccentricityError) Error() string {
	return fmt.Sprintf("eccentricity %g outside [0,1)", e.Ecc)
}

// SolverConvergenceError reports a Kepler solve that exhausted its
// iteration budget. For eccentricities inside [0,1) the bracketed solver
// converges, so this points at non-finite input.
type SolverConvergenceError struct {
	Ecc        float64
	Phase      float64
	Iterations int
}

func (e *SolverConvergenceError) Error() string {
	return fmt.Sprintf("kepler solver did not converge after %d iterations (e = %g, phase = %g)",
		e.Iterations, e.Ecc, e.Phase)
}
