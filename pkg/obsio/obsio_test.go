package obsio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/astrokit/binfit/pkg/fit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const guessContent = `# system guesses
p 3252.0 True
e 0.648 True
i 86.53 True
omega 211.0 True
Omega 67.3 True
t0 56547.1 True
d 1250.0 False
k1 31.0 False
k2 52.0 True
gamma1 15.8 False
gamma2 5.6 False
mt 25.0 False
`

func TestParsePointer(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pointer.txt", `
guessfile guesses.txt
RV1file primary_vels.txt
# RV2file secondary_vels.txt
ASfile relative_astrometry.txt
`)

	ptr, err := ParsePointer(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "guesses.txt"), ptr.GuessFile)
	require.Equal(t, filepath.Join(dir, "primary_vels.txt"), ptr.RV1File)
	require.Empty(t, ptr.RV2File, "commented entries must be skipped")
	require.Equal(t, filepath.Join(dir, "relative_astrometry.txt"), ptr.ASFile)
	require.True(t, ptr.HasData())
}

func TestParsePointerRequiresGuessFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pointer.txt", "RV1file vels.txt\n")

	_, err := ParsePointer(path)
	require.ErrorContains(t, err, "guessfile")
}

func TestParsePointerRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pointer.txt", "guessfile g.txt\nRVfile vels.txt\n")

	_, err := ParsePointer(path)
	require.ErrorContains(t, err, "RVfile")
	require.ErrorContains(t, err, ":2:")
}

func TestLoadGuesses(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guesses.txt", guessContent)

	guesses, err := LoadGuesses(path)
	require.NoError(t, err)
	require.Len(t, guesses, 12)
	require.Equal(t, fit.Guess{Value: 0.648, Vary: true}, guesses["e"])
	require.Equal(t, fit.Guess{Value: 31.0, Vary: false}, guesses["k1"])
}

func TestLoadGuessesErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown name", guessContent + "ecc 0.5 True\n", "unknown parameter"},
		{"duplicate", guessContent + "e 0.1 True\n", "duplicate"},
		{"bad value", "p x True\n", "bad value"},
		{"bad flag", "p 100 yes\n", "bad vary flag"},
		{"missing parameter", "p 100 True\n", "missing guess"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, "guesses_"+tc.name+".txt", tc.content)
			_, err := LoadGuesses(path)
			require.ErrorContains(t, err, tc.wantMsg)
		})
	}
}

func TestGuessRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in, err := LoadGuesses(writeFile(t, dir, "in.txt", guessContent))
	require.NoError(t, err)

	out := filepath.Join(dir, "out.txt")
	require.NoError(t, SaveGuesses(out, in))
	back, err := LoadGuesses(out)
	require.NoError(t, err)
	require.Equal(t, in, back)
}

func TestLoadRV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vels.txt", `# epoch rv err
45000 25.1 2.1
45860 -4.2 1.1
`)

	pts, err := LoadRV(path)
	require.NoError(t, err)
	require.Equal(t, []fit.RVPoint{
		{Epoch: 45000, RV: 25.1, Err: 2.1},
		{Epoch: 45860, RV: -4.2, Err: 1.1},
	}, pts)
}

func TestLoadRVDummyErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vels.txt", "45000 25.0\n45860 -4.0\n")

	pts, err := LoadRV(path)
	require.NoError(t, err)
	require.InDelta(t, 0.05*25.0, pts[0].Err, 1e-12)
	require.InDelta(t, 0.05*4.0, pts[1].Err, 1e-12, "dummy error comes from the magnitude")
}

func TestLoadRVRejectsBadTable(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadRV(writeFile(t, dir, "a.txt", "45000 25 2 9\n"))
	require.ErrorContains(t, err, "columns")

	_, err = LoadRV(writeFile(t, dir, "b.txt", "# only comments\n"))
	require.ErrorContains(t, err, "no data rows")
}

func TestLoadAstroEastNorth(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "astro.txt", "48000 -2.5 2.4 0.1 0.8 60\n")

	pts, err := LoadAstro(path, false)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	require.Equal(t, -2.5, pts[0].East)
	require.Equal(t, 2.4, pts[0].North)
	wantE, wantN := ProjectEllipse(0.1, 0.8, 60)
	require.Equal(t, wantE, pts[0].EastErr)
	require.Equal(t, wantN, pts[0].NorthErr)
}

func TestLoadAstroSepPA(t *testing.T) {
	dir := t.TempDir()
	// separation 2 mas at position angle 30 degrees east of north
	path := writeFile(t, dir, "astro.txt", "48000 2.0 30.0 0.1 0.1 0\n")

	pts, err := LoadAstro(path, true)
	require.NoError(t, err)
	require.InDelta(t, 2.0*math.Sin(30*math.Pi/180), pts[0].East, 1e-12)
	require.InDelta(t, 2.0*math.Cos(30*math.Pi/180), pts[0].North, 1e-12)
}

func TestLoadObservations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guesses.txt", guessContent)
	writeFile(t, dir, "rv1.txt", "45000 25.1 2.1\n")
	writeFile(t, dir, "astro.txt", "48000 -2.5 2.4 0.1 0.8 60\n")
	ptr, err := ParsePointer(writeFile(t, dir, "pointer.txt",
		"guessfile guesses.txt\nRV1file rv1.txt\nASfile astro.txt\n"))
	require.NoError(t, err)

	obs, err := LoadObservations(ptr, false)
	require.NoError(t, err)
	require.True(t, obs.HasRV1())
	require.False(t, obs.HasRV2())
	require.True(t, obs.HasAstro())
	require.Equal(t, 3, obs.NumEntries())
}

func TestProjectEllipseCircular(t *testing.T) {
	// a circular error ellipse projects identically for any position angle
	for _, pa := range []float64{0, 30, 45, 117, 290} {
		east, north := ProjectEllipse(0.7, 0.7, pa)
		require.InDelta(t, 0.7, east, 1e-12)
		require.InDelta(t, 0.7, north, 1e-12)
	}
}

func TestProjectEllipseAxisAligned(t *testing.T) {
	// major axis due north: all the major-axis error is north
	east, north := ProjectEllipse(1.0, 0.5, 0)
	require.InDelta(t, 0.5, east, 1e-12)
	require.InDelta(t, 1.0, north, 1e-12)

	// major axis due east
	east, north = ProjectEllipse(1.0, 0.5, 90)
	require.InDelta(t, 1.0, east, 1e-12)
	require.InDelta(t, 0.5, north, 1e-12)
}

func TestProjectEllipseMCMatchesClosedForm(t *testing.T) {
	src := rand.NewSource(42)
	for _, tc := range []struct{ major, minor, pa float64 }{
		{1.0, 0.5, 0},
		{1.0, 0.5, 60},
		{0.8, 0.8, 137},
		{2.5, 0.1, 300},
	} {
		wantE, wantN := ProjectEllipse(tc.major, tc.minor, tc.pa)
		gotE, gotN := ProjectEllipseMC(tc.major, tc.minor, tc.pa, 200000, src)
		require.InEpsilon(t, wantE, gotE, 0.02)
		require.InEpsilon(t, wantN, gotN, 0.02)
	}
}
