package fit

import "errors"

// ErrNoData is returned when a fit is requested with no observation
// stream at all.
var ErrNoData = errors.New("no data supplied, cannot minimize")

// RVPoint is one radial velocity measurement.
type RVPoint struct {
	Epoch float64 // day
	RV    float64 // km/s
	Err   float64 // km/s
}

// AstroPoint is one relative astrometric measurement with its error
// ellipse. East/north offsets and the projected marginal errors are in
// mas; the ellipse position angle is in degrees east of north.
type AstroPoint struct {
	Epoch    float64
	East     float64
	North    float64
	EastErr  float64
	NorthErr float64
	Major    float64
	Minor    float64
	PA       float64
}

// Observations collects the optional data streams of one fit. Any stream
// may be empty; ParamSet.ApplyFreedom decides what the remaining streams
// can constrain.
type Observations struct {
	RV1   []RVPoint
	RV2   []RVPoint
	Astro []AstroPoint
}

func (o Observations) HasRV1() bool   { return len(o.RV1) > 0 }
func (o Observations) HasRV2() bool   { return len(o.RV2) > 0 }
func (o Observations) HasAstro() bool { return len(o.Astro) > 0 }

// rvEntries is the number of RV residual entries (one per measurement).
func (o Observations) rvEntries() int { return len(o.RV1) + len(o.RV2) }

// astroEntries is the number of astrometric residual entries, two per
// measurement (east and north).
func (o Observations) astroEntries() int { return 2 * len(o.Astro) }

// NumEntries is the total residual vector length.
func (o Observations) NumEntries() int { return o.rvEntries() + o.astroEntries() }

// DefaultWeight is the astrometric weight that reproduces the natural
// share of residual entries: astrometry then contributes exactly as much
// as its entry count. Zero without astrometry, one without RVs.
func (o Observations) DefaultWeight() float64 {
	las, lrv := o.astroEntries(), o.rvEntries()
	if las == 0 {
		return 0
	}
	if lrv == 0 {
		return 1
	}
	return float64(las) / float64(las+lrv)
}
