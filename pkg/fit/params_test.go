package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullGuesses() map[string]Guess {
	return map[string]Guess{
		"p":      {Value: 321.7, Vary: true},
		"e":      {Value: 0.35, Vary: true},
		"i":      {Value: 62, Vary: true},
		"omega":  {Value: 211, Vary: true},
		"Omega":  {Value: 95, Vary: true},
		"t0":     {Value: 500, Vary: true},
		"d":      {Value: 120, Vary: true},
		"k1":     {Value: 25.5, Vary: true},
		"k2":     {Value: 41.2, Vary: true},
		"gamma1": {Value: -3.2, Vary: true},
		"gamma2": {Value: -2.8, Vary: true},
		"mt":     {Value: 12, Vary: true},
	}
}

func TestNewParamSetOrderAndBounds(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, false)
	require.NoError(t, err)
	require.Equal(t, 12, ps.Len())

	want := []string{"p", "e", "i", "omega", "Omega", "t0", "d", "k1", "k2", "gamma1", "gamma2", "mt"}
	params := ps.Params()
	for i, name := range want {
		require.Equal(t, name, params[i].Name)
	}

	ecc, ok := ps.Get("e")
	require.True(t, ok)
	require.Equal(t, 0.0, ecc.Min)
	require.InDelta(t, 1-1e-5, ecc.Max, 1e-12)

	period, ok := ps.Get("p")
	require.True(t, ok)
	require.Equal(t, 0.0, period.Min)
	require.True(t, math.IsInf(period.Max, 1))

	omega, ok := ps.Get("omega")
	require.True(t, ok)
	require.True(t, math.IsInf(omega.Min, -1))
}

func TestNewParamSetRejectsBadGuesses(t *testing.T) {
	g := fullGuesses()
	delete(g, "t0")
	_, err := NewParamSet(g, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), `missing guess for parameter "t0"`)

	g = fullGuesses()
	g["zeta"] = Guess{Value: 1, Vary: true}
	_, err = NewParamSet(g, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown parameter "zeta"`)

	g = fullGuesses()
	g["q"] = Guess{Value: 0.6, Vary: true}
	_, err = NewParamSet(g, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mass ratio lock")
}

func TestNewParamSetClipsAndFloors(t *testing.T) {
	g := fullGuesses()
	g["e"] = Guess{Value: -0.2, Vary: true}
	g["k1"] = Guess{Value: -10, Vary: true}
	g["omega"] = Guess{Value: -45, Vary: true}
	ps, err := NewParamSet(g, false, false)
	require.NoError(t, err)
	require.Equal(t, eccFloor, ps.Value("e"))
	require.Equal(t, 0.0, ps.Value("k1"))
	require.Equal(t, -45.0, ps.Value("omega"))
	require.Len(t, ps.Warnings(), 1)
	require.Contains(t, ps.Warnings()[0], "eccentricity")

	g = fullGuesses()
	g["e"] = Guess{Value: 1.5, Vary: true}
	ps, err = NewParamSet(g, false, false)
	require.NoError(t, err)
	require.InDelta(t, 1-1e-5, ps.Value("e"), 1e-12)
	require.Empty(t, ps.Warnings())
}

func TestGammaLock(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), true, false)
	require.NoError(t, err)
	require.True(t, ps.LockedGamma())

	g2, ok := ps.Get("gamma2")
	require.True(t, ok)
	require.False(t, g2.Vary)
	require.True(t, g2.Derived)
	require.Equal(t, ps.Value("gamma1"), g2.Value)

	require.NoError(t, ps.SetValue("gamma1", 5))
	require.Equal(t, 5.0, ps.Value("gamma2"))

	require.NoError(t, ps.SetVary("gamma2", true))
	g2, _ = ps.Get("gamma2")
	require.False(t, g2.Vary)
}

func TestMassRatioLock(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, true)
	require.NoError(t, err)
	require.True(t, ps.LockedQ())
	require.Equal(t, 13, ps.Len())

	q, ok := ps.Get("q")
	require.True(t, ok)
	require.InDelta(t, 25.5/41.2, q.Value, 1e-12)
	require.True(t, q.Vary)

	k2, _ := ps.Get("k2")
	require.False(t, k2.Vary)
	require.True(t, k2.Derived)
	require.InDelta(t, 41.2, k2.Value, 1e-9)

	// k2 follows k1 and q
	require.NoError(t, ps.SetValue("q", 0.5))
	require.InDelta(t, 51.0, ps.Value("k2"), 1e-9)

	// without the lock there is no q parameter
	ps, err = NewParamSet(fullGuesses(), false, false)
	require.NoError(t, err)
	_, ok = ps.Get("q")
	require.False(t, ok)
}

func TestMassRatioLockSuppliedQ(t *testing.T) {
	g := fullGuesses()
	g["q"] = Guess{Value: 0.6, Vary: false}
	ps, err := NewParamSet(g, false, true)
	require.NoError(t, err)

	q, _ := ps.Get("q")
	require.Equal(t, 0.6, q.Value)
	require.False(t, q.Vary)
	require.InDelta(t, 25.5/0.6, ps.Value("k2"), 1e-9)

	g["q"] = Guess{Value: 0, Vary: true}
	_, err = NewParamSet(g, false, true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nonzero")

	g = fullGuesses()
	g["k2"] = Guess{Value: 0, Vary: true}
	_, err = NewParamSet(g, false, true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "k2 guess is zero")
}

func rvPoints(n int) []RVPoint {
	pts := make([]RVPoint, n)
	for i := range pts {
		pts[i] = RVPoint{Epoch: float64(100 * i), RV: 1, Err: 1}
	}
	return pts
}

func astroPoints(n int) []AstroPoint {
	pts := make([]AstroPoint, n)
	for i := range pts {
		pts[i] = AstroPoint{Epoch: float64(100 * i), East: 1, North: 1, EastErr: 1, NorthErr: 1}
	}
	return pts
}

func TestApplyFreedom(t *testing.T) {
	cases := []struct {
		name string
		obs  Observations
		free []string
	}{
		{
			name: "all streams",
			obs:  Observations{RV1: rvPoints(5), RV2: rvPoints(5), Astro: astroPoints(3)},
			free: []string{"p", "e", "i", "omega", "Omega", "t0", "d", "k1", "k2", "gamma1", "gamma2", "mt"},
		},
		{
			name: "double lined without astrometry",
			obs:  Observations{RV1: rvPoints(5), RV2: rvPoints(5)},
			free: []string{"p", "e", "omega", "t0", "k1", "k2", "gamma1", "gamma2"},
		},
		{
			name: "primary only without astrometry",
			obs:  Observations{RV1: rvPoints(5)},
			free: []string{"p", "e", "omega", "t0", "k1", "gamma1"},
		},
		{
			name: "secondary only without astrometry",
			obs:  Observations{RV2: rvPoints(5)},
			free: []string{"p", "e", "omega", "t0", "k2", "gamma2"},
		},
		{
			name: "primary with astrometry",
			obs:  Observations{RV1: rvPoints(5), Astro: astroPoints(3)},
			free: []string{"p", "e", "i", "omega", "Omega", "t0", "d", "k1", "gamma1", "mt"},
		},
		{
			name: "astrometry only",
			obs:  Observations{Astro: astroPoints(3)},
			free: []string{"p", "e", "i", "omega", "Omega", "t0", "d", "mt"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps, err := NewParamSet(fullGuesses(), false, false)
			require.NoError(t, err)
			require.NoError(t, ps.ApplyFreedom(tc.obs))
			require.Equal(t, tc.free, ps.FreeNames())
		})
	}
}

func TestApplyFreedomNoData(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, false)
	require.NoError(t, err)
	require.ErrorIs(t, ps.ApplyFreedom(Observations{}), ErrNoData)
}

func TestApplyFreedomFixesRatioForSingleLined(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, true)
	require.NoError(t, err)
	require.NoError(t, ps.ApplyFreedom(Observations{RV1: rvPoints(5)}))

	q, _ := ps.Get("q")
	require.False(t, q.Vary)
	free := ps.FreeNames()
	require.NotContains(t, free, "q")
	require.NotContains(t, free, "k2")
}

func TestValuesAtDoesNotMutate(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), true, false)
	require.NoError(t, err)
	require.NoError(t, ps.SetVary("i", false))
	require.NoError(t, ps.SetVary("d", false))

	x := ps.FreeValues()
	require.Len(t, x, 9)
	x[0] += 10

	vals := ps.valuesAt(x)
	require.Len(t, vals, 12)
	require.Equal(t, 331.7, vals[idxP])
	require.Equal(t, 62.0, vals[idxI])
	require.Equal(t, 120.0, vals[idxD])
	// gamma lock resolved on the materialized vector too
	require.Equal(t, vals[idxGamma1], vals[idxGamma2])
	// the set itself is untouched
	require.Equal(t, 321.7, ps.Value("p"))
}

func TestSetFreeAndStderrs(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, false)
	require.NoError(t, err)
	require.NoError(t, ps.SetVary("mt", false))

	x := ps.FreeValues()
	for i := range x {
		x[i] *= 1.01
	}
	ps.SetFree(x)
	require.InDelta(t, 321.7*1.01, ps.Value("p"), 1e-12)
	require.Equal(t, 12.0, ps.Value("mt"))

	errs := make([]float64, len(x))
	for i := range errs {
		errs[i] = 0.1 * float64(i+1)
	}
	ps.SetStderrs(errs)
	p, _ := ps.Get("p")
	require.Equal(t, 0.1, p.Stderr)
	mt, _ := ps.Get("mt")
	require.Equal(t, 0.0, mt.Stderr)
}

func TestGuessMapRoundTrip(t *testing.T) {
	g := fullGuesses()
	g["q"] = Guess{Value: 0.62, Vary: true}
	ps, err := NewParamSet(g, true, true)
	require.NoError(t, err)

	back, err := NewParamSet(ps.GuessMap(), true, true)
	require.NoError(t, err)
	require.Equal(t, ps.Len(), back.Len())
	for _, p := range ps.Params() {
		got, ok := back.Get(p.Name)
		require.True(t, ok)
		require.Equal(t, p.Value, got.Value)
		require.Equal(t, p.Vary, got.Vary)
	}
}

func TestOrbitParamsMapping(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, false)
	require.NoError(t, err)
	op := ps.OrbitParams()
	require.Equal(t, 321.7, op.Period)
	require.Equal(t, 0.35, op.Ecc)
	require.Equal(t, 62.0, op.Inc)
	require.Equal(t, 211.0, op.ArgPeri)
	require.Equal(t, 95.0, op.Node)
	require.Equal(t, 500.0, op.T0)
	require.Equal(t, 120.0, op.Dist)
	require.Equal(t, 25.5, op.K1)
	require.Equal(t, 41.2, op.K2)
	require.Equal(t, -3.2, op.Gamma1)
	require.Equal(t, -2.8, op.Gamma2)
	require.Equal(t, 12.0, op.MTot)
}

func TestCloneIsIndependent(t *testing.T) {
	ps, err := NewParamSet(fullGuesses(), false, false)
	require.NoError(t, err)
	cl := ps.Clone()
	require.NoError(t, cl.SetValue("p", 999))
	require.Equal(t, 321.7, ps.Value("p"))
	require.Equal(t, 999.0, cl.Value("p"))
}
