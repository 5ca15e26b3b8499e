package obsio

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/astrokit/binfit/pkg/orbit"
)

// EllipseSamples is the draw count of the Monte Carlo ellipse projection.
const EllipseSamples = 1000

// ProjectEllipse converts an astrometric error ellipse into marginal 1-D
// errors along the east and north axes. Major and minor are the ellipse
// semi-axes in mas, paDeg the position angle of the major axis in degrees
// east of north. This is the closed form of the rotated-Gaussian
// marginals; ProjectEllipseMC reproduces it by sampling.
func ProjectEllipse(major, minor, paDeg float64) (eastErr, northErr float64) {
	sinp, cosp := math.Sincos(paDeg * orbit.Deg2Rad)
	eastErr = math.Hypot(major*sinp, minor*cosp)
	northErr = math.Hypot(major*cosp, minor*sinp)
	return eastErr, northErr
}

// ProjectEllipseMC estimates the marginal east/north errors by drawing n
// points from independent Gaussians along the ellipse axes, rotating them
// by the position angle and taking the sample standard deviations. It
// converges on ProjectEllipse for large n and exists as a cross-check on
// the closed form.
func ProjectEllipseMC(major, minor, paDeg float64, n int, src rand.Source) (eastErr, northErr float64) {
	if n <= 1 {
		n = EllipseSamples
	}
	sinp, cosp := math.Sincos(paDeg * orbit.Deg2Rad)
	alongMajor := distuv.Normal{Mu: 0, Sigma: major, Src: src}
	alongMinor := distuv.Normal{Mu: 0, Sigma: minor, Src: src}

	easts := make([]float64, n)
	norths := make([]float64, n)
	for k := 0; k < n; k++ {
		dMaj, dMin := alongMajor.Rand(), alongMinor.Rand()
		easts[k] = dMaj*sinp + dMin*cosp
		norths[k] = dMaj*cosp - dMin*sinp
	}
	return stat.StdDev(easts, nil), stat.StdDev(norths, nil)
}
