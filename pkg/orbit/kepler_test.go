package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEccentricAnomalyCircular verifies the closed-form circular case
// E = 2*pi*phase.
func TestEccentricAnomalyCircular(t *testing.T) {
	for _, phase := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		eccAnom, err := EccentricAnomalyOfPhase(phase, 0)
		require.NoError(t, err)
		require.InDelta(t, 2*math.Pi*phase, eccAnom, 1e-9)
	}
}

// TestEccentricAnomalySatisfiesKepler solves across the eccentricity range
// and checks the defining equation directly.
func TestEccentricAnomalySatisfiesKepler(t *testing.T) {
	eccs := []float64{0, 0.1, 0.3, 0.5, 0.7, 0.9, 0.99}
	phases := []float64{0.001, 0.1, 0.25, 0.5, 0.75, 0.9, 0.999}
	for _, e := range eccs {
		for _, phase := range phases {
			eccAnom, err := EccentricAnomalyOfPhase(phase, e)
			require.NoError(t, err)
			require.InDelta(t, 2*math.Pi*phase, eccAnom-e*math.Sin(eccAnom), 1e-9,
				"e=%g phase=%g", e, phase)
		}
	}
}

// TestEccentricAnomalyFoldsPhase checks that phases outside [0,1) fold
// onto the unit interval before solving.
func TestEccentricAnomalyFoldsPhase(t *testing.T) {
	for _, e := range []float64{0, 0.4} {
		want, err := EccentricAnomalyOfPhase(0.75, e)
		require.NoError(t, err)
		for _, phase := range []float64{-0.25, 1.75, -2.25, 3.75} {
			got, err := EccentricAnomalyOfPhase(phase, e)
			require.NoError(t, err)
			require.InDelta(t, want, got, 1e-9, "phase=%g", phase)
		}
	}
}

// TestEccentricAnomalyRejectsEccentricity covers the domain guard on e.
func TestEccentricAnomalyRejectsEccentricity(t *testing.T) {
	for _, e := range []float64{-0.1, 1.0, 1.5, math.NaN()} {
		_, err := EccentricAnomalyOfPhase(0.3, e)
		var eccErr *InvalidEccentricityError
		require.ErrorAs(t, err, &eccErr, "e=%g", e)
		require.Contains(t, eccErr.Error(), "eccentricity")
	}
}

// TestEccentricAnomaliesOfPhases verifies the vector form matches the
// scalar solver element by element, in input order.
func TestEccentricAnomaliesOfPhases(t *testing.T) {
	phases := []float64{0.9, 0.1, 0.5, 0.3, 0.7}
	got, err := EccentricAnomaliesOfPhases(phases, 0.6)
	require.NoError(t, err)
	require.Len(t, got, len(phases))
	for k, phase := range phases {
		want, err := EccentricAnomalyOfPhase(phase, 0.6)
		require.NoError(t, err)
		require.Equal(t, want, got[k])
	}

	_, err = EccentricAnomaliesOfPhases(phases, 1.2)
	require.Error(t, err)
}

// TestAnomalyRoundTrip composes phase -> eccentric anomaly -> true anomaly
// -> eccentric anomaly -> phase and requires the original back, modulo one
// cycle.
func TestAnomalyRoundTrip(t *testing.T) {
	for _, e := range []float64{0, 0.3, 0.7, 0.95} {
		for phase := 0.05; phase < 1; phase += 0.1 {
			eccAnom, err := EccentricAnomalyOfPhase(phase, e)
			require.NoError(t, err)
			theta := TrueAnomalyOfEccentricAnomaly(eccAnom, e)
			back := EccentricAnomalyOfTrueAnomaly(theta, e)
			folded := math.Mod(PhaseOfEccentricAnomaly(back, e), 1)
			if folded < 0 {
				folded++
			}
			require.InDelta(t, phase, folded, 1e-9, "e=%g phase=%g", e, phase)
		}
	}
}

// TestTrueAnomalyCircular: with e=0 the true and eccentric anomalies
// coincide.
func TestTrueAnomalyCircular(t *testing.T) {
	for _, eccAnom := range []float64{0, 0.5, 1.5, 3.0} {
		require.InDelta(t, eccAnom, TrueAnomalyOfEccentricAnomaly(eccAnom, 0), 1e-12)
		require.InDelta(t, eccAnom, EccentricAnomalyOfTrueAnomaly(eccAnom, 0), 1e-12)
	}
}

// TestPhaseOfEpoch folds epochs around the periastron epoch into [0,1).
func TestPhaseOfEpoch(t *testing.T) {
	require.InDelta(t, 0.25, PhaseOfEpoch(1025, 1000, 100), 1e-12)
	require.InDelta(t, 0.75, PhaseOfEpoch(975, 1000, 100), 1e-12)
	require.InDelta(t, 0.0, PhaseOfEpoch(1300, 1000, 100), 1e-12)
	require.InDelta(t, 0.5, PhaseOfEpoch(650, 1000, 100), 1e-12)
}

// TestTrueAnomalyOfPhase propagates solver errors.
func TestTrueAnomalyOfPhase(t *testing.T) {
	theta, err := TrueAnomalyOfPhase(0.25, 0)
	require.NoError(t, err)
	require.InDelta(t, math.Pi/2, theta, 1e-9)

	_, err = TrueAnomalyOfPhase(0.25, -0.5)
	require.Error(t, err)
}
