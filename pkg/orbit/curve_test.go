package orbit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRVCurve samples the model across the extended phase range and
// matches the scalar evaluations.
func TestRVCurve(t *testing.T) {
	s, err := NewSystem(testParams())
	require.NoError(t, err)

	phases, rvs, err := RVCurve(s.Primary, CurveSamples, PhaseMargin)
	require.NoError(t, err)
	require.Len(t, phases, CurveSamples)
	require.Len(t, rvs, CurveSamples)
	require.InDelta(t, -PhaseMargin, phases[0], 1e-12)
	require.InDelta(t, 1+PhaseMargin, phases[len(phases)-1], 1e-12)

	for _, k := range []int{0, 57, 123, CurveSamples - 1} {
		want, err := s.Primary.RadialVelocityOfPhase(phases[k])
		require.NoError(t, err)
		require.InDelta(t, want, rvs[k], 1e-12)
	}
}

// TestSkyCurve covers one revolution and closes on itself.
func TestSkyCurve(t *testing.T) {
	s, err := NewSystem(testParams())
	require.NoError(t, err)

	curve := SkyCurve(s.Relative, CurveSamples)
	require.Len(t, curve, CurveSamples)

	peri := s.Relative.Periastron()
	require.InDelta(t, peri.North, curve[0].North, 1e-12)
	require.InDelta(t, peri.East, curve[0].East, 1e-12)

	last := curve[len(curve)-1]
	require.InDelta(t, curve[0].North, last.North, 1e-9)
	require.InDelta(t, curve[0].East, last.East, 1e-9)
}

// TestExtendPhases duplicates boundary points on the far side of the wrap
// without touching the input.
func TestExtendPhases(t *testing.T) {
	in := []PhasePoint{
		{Phase: 0.05, Value: 1, Err: 0.1},
		{Phase: 0.5, Value: 2, Err: 0.2},
		{Phase: 0.95, Value: 3, Err: 0.3},
	}
	out := ExtendPhases(in, 0.15)
	require.Len(t, out, 5)

	require.InDelta(t, -0.05, out[0].Phase, 1e-12)
	require.Equal(t, 3.0, out[0].Value)
	require.Equal(t, 0.3, out[0].Err)

	require.Equal(t, in[0], out[1])
	require.Equal(t, in[1], out[2])
	require.Equal(t, in[2], out[3])

	require.InDelta(t, 1.05, out[4].Phase, 1e-12)
	require.Equal(t, 1.0, out[4].Value)

	// originals untouched
	require.Equal(t, 0.05, in[0].Phase)
	require.Equal(t, 0.95, in[2].Phase)

	// interior points are never duplicated
	require.Len(t, ExtendPhases(in, 0.01), 3)
}

// TestRepeatUntilTime tiles a one-period curve forward by whole periods.
func TestRepeatUntilTime(t *testing.T) {
	times := []float64{0, 1, 2}
	values := []float64{10, 20, 30}

	outT, outV := RepeatUntilTime(times, values, 3, 7)
	require.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, outT)
	require.Equal(t, []float64{10, 20, 30, 10, 20, 30, 10, 20, 30}, outV)

	// maxTime before the first sample leaves a single copy
	outT, outV = RepeatUntilTime(times, values, 3, -5)
	require.Equal(t, times, outT)
	require.Equal(t, values, outV)

	outT, outV = RepeatUntilTime(nil, nil, 3, 10)
	require.Nil(t, outT)
	require.Nil(t, outV)

	// inputs unchanged
	require.Equal(t, []float64{0, 1, 2}, times)
}

// TestRVCurveMatchesEpochSampling: phase sampling and epoch sampling of
// the same orbit agree where they overlap.
func TestRVCurveMatchesEpochSampling(t *testing.T) {
	p := testParams()
	s, err := NewSystem(p)
	require.NoError(t, err)

	epochs := []float64{p.T0, p.T0 + 0.3*p.Period, p.T0 + 0.6*p.Period}
	byEpoch, err := s.Secondary.RadialVelocitiesOfEpochs(epochs)
	require.NoError(t, err)
	byPhase, err := s.Secondary.RadialVelocitiesOfPhases([]float64{0, 0.3, 0.6})
	require.NoError(t, err)
	for k := range byEpoch {
		require.InDelta(t, byPhase[k], byEpoch[k], 1e-9)
	}

	positions, err := s.Relative.PosOfEpochs(epochs)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	first, err := s.Relative.PosOfPhase(0)
	require.NoError(t, err)
	require.InDelta(t, first.North, positions[0].North, 1e-9)
	require.InDelta(t, first.East, positions[0].East, 1e-9)
}
