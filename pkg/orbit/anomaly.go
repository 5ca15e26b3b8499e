package orbit

import "math"

// The four conversions below, together with the Kepler solver, close the
// bijective map {epoch} <-> {phase} <-> {eccentric anomaly} <-> {true
// anomaly} for eccentricities in [0,1).

// PhaseOfEpoch folds an observation epoch onto the orbital phase in [0,1)
// given the epoch of periastron passage t0 and the period in days.
func PhaseOfEpoch(epoch, t0, period float64) float64 {
	ph := math.Mod((epoch-t0)/period, 1)
	if ph < 0 {
		ph++
	}
	return ph
}

// PhaseOfEccentricAnomaly evaluates Kepler's equation in the forward,
// closed-form direction.
func PhaseOfEccentricAnomaly(eccAnom, e float64) float64 {
	return (eccAnom - e*math.Sin(eccAnom)) / (2 * math.Pi)
}

// TrueAnomalyOfEccentricAnomaly converts an eccentric anomaly to the true
// anomaly.
func TrueAnomalyOfEccentricAnomaly(eccAnom, e float64) float64 {
	return 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(eccAnom/2))
}

// EccentricAnomalyOfTrueAnomaly converts a true anomaly to the eccentric
// anomaly.
func EccentricAnomalyOfTrueAnomaly(theta, e float64) float64 {
	return 2 * math.Atan(math.Sqrt((1-e)/(1+e))*math.Tan(theta/2))
}

// TrueAnomalyOfPhase composes the Kepler solver with the anomaly
// conversion.
func TrueAnomalyOfPhase(phase, e float64) (float64, error) {
	eccAnom, err := EccentricAnomalyOfPhase(phase, e)
	if err != nil {
		return 0, err
	}
	return TrueAnomalyOfEccentricAnomaly(eccAnom, e), nil
}
