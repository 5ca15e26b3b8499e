package orbit

import "math"

// Elements holds the orbital quantities shared by the three orbits of a
// binary system. Angles are in radians, the distance in km. The sines and
// cosines of the inclination and the node are cached at construction and
// the struct is never mutated afterwards; orbits reference it read-only.
type Elements struct {
	Ecc    float64 // eccentricity
	Inc    float64 // inclination, rad
	Node   float64 // longitude of the ascending node, rad
	T0     float64 // epoch of periastron passage, day
	Period float64 // orbital period, day
	Dist   float64 // distance to the system, km

	sinI, cosI float64
	sinO, cosO float64
}

// Orbit is the capability shared by both orbit variants of a System.
type Orbit interface {
	// PhaseOfEpoch folds an epoch onto this orbit's phase in [0,1).
	PhaseOfEpoch(epoch float64) float64
	// EccentricAnomalyOfEpoch solves Kepler's equation at an epoch.
	EccentricAnomalyOfEpoch(epoch float64) (float64, error)
	// TrueAnomalyOfEpoch returns the true anomaly at an epoch.
	TrueAnomalyOfEpoch(epoch float64) (float64, error)
}

// orbitBase carries the read-only element reference and implements the
// epoch and anomaly plumbing common to both variants.
type orbitBase struct {
	el *Elements
}

func (o orbitBase) PhaseOfEpoch(epoch float64) float64 {
	return PhaseOfEpoch(epoch, o.el.T0, o.el.Period)
}

func (o orbitBase) EccentricAnomalyOfEpoch(epoch float64) (float64, error) {
	return EccentricAnomalyOfPhase(o.PhaseOfEpoch(epoch), o.el.Ecc)
}

func (o orbitBase) TrueAnomalyOfEpoch(epoch float64) (float64, error) {
	return TrueAnomalyOfPhase(o.PhaseOfEpoch(epoch), o.el.Ecc)
}

// AbsoluteOrbit is the spectroscopic orbit of one component of the binary.
// It determines the radial velocity observable of that component.
type AbsoluteOrbit struct {
	orbitBase
	K       float64 // semi-amplitude of the RV curve, km/s
	Gamma   float64 // systemic velocity, km/s
	ArgPeri float64 // argument of periastron in this orbit's convention, rad
}

func newAbsoluteOrbit(el *Elements, k, omegaDeg, gamma float64) *AbsoluteOrbit {
	return &AbsoluteOrbit{
		orbitBase: orbitBase{el: el},
		K:         k,
		Gamma:     gamma,
		ArgPeri:   omegaDeg * Deg2Rad,
	}
}

// RadialVelocityOfTrueAnomaly evaluates the RV model at a true anomaly.
func (o *AbsoluteOrbit) RadialVelocityOfTrueAnomaly(theta float64) float64 {
	return o.K*(math.Cos(theta+o.ArgPeri)+o.el.Ecc*math.Cos(o.ArgPeri)) + o.Gamma
}

// RadialVelocityOfEccentricAnomaly evaluates the RV model at an eccentric
// anomaly.
func (o *AbsoluteOrbit) RadialVelocityOfEccentricAnomaly(eccAnom float64) float64 {
	return o.RadialVelocityOfTrueAnomaly(TrueAnomalyOfEccentricAnomaly(eccAnom, o.el.Ecc))
}

// RadialVelocityOfPhase evaluates the RV model at an orbital phase,
// solving Kepler's equation on the way.
func (o *AbsoluteOrbit) RadialVelocityOfPhase(phase float64) (float64, error) {
	theta, err := TrueAnomalyOfPhase(phase, o.el.Ecc)
	if err != nil {
		return 0, err
	}
	return o.RadialVelocityOfTrueAnomaly(theta), nil
}

// RadialVelocityOfEpoch evaluates the RV model at an observation epoch.
func (o *AbsoluteOrbit) RadialVelocityOfEpoch(epoch float64) (float64, error) {
	return o.RadialVelocityOfPhase(o.PhaseOfEpoch(epoch))
}

// RadialVelocitiesOfEpochs evaluates the RV model at every epoch,
// preserving input order.
func (o *AbsoluteOrbit) RadialVelocitiesOfEpochs(epochs []float64) ([]float64, error) {
	out := make([]float64, len(epochs))
	for k, epoch := range epochs {
		rv, err := o.RadialVelocityOfEpoch(epoch)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

// RadialVelocitiesOfPhases evaluates the RV model at every phase.
func (o *AbsoluteOrbit) RadialVelocitiesOfPhases(phases []float64) ([]float64, error) {
	out := make([]float64, len(phases))
	for k, ph := range phases {
		rv, err := o.RadialVelocityOfPhase(ph)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

// SkyPos is a sky-plane offset relative to the primary, in mas.
type SkyPos struct {
	North float64
	East  float64
}

// Separation returns the magnitude of the offset in mas.
func (p SkyPos) Separation() float64 {
	return math.Hypot(p.North, p.East)
}

// PositionAngle returns the position angle east of north in degrees,
// normalized to [0, 360).
func (p SkyPos) PositionAngle() float64 {
	pa := math.Atan2(p.East, p.North) * Rad2Deg
	if pa < 0 {
		pa += 360
	}
	return pa
}

// RelativeOrbit is the astrometric orbit of the secondary about the
// primary. The Thiele-Innes constants are computed once at construction
// from the angular semi-major axis, the argument of periastron, the node
// and the inclination.
type RelativeOrbit struct {
	orbitBase
	A       float64 // angular semi-major axis, mas
	ArgPeri float64 // argument of periastron, rad

	// Thiele-Innes constants, mas
	ThieleA float64
	ThieleB float64
	ThieleF float64
	ThieleG float64
}

func newRelativeOrbit(el *Elements, a, omegaDeg float64) *RelativeOrbit {
	o := &RelativeOrbit{
		orbitBase: orbitBase{el: el},
		A:         a,
		ArgPeri:   omegaDeg * Deg2Rad,
	}
	sinw, cosw := math.Sincos(o.ArgPeri)
	o.ThieleA = a * (el.cosO*cosw - el.sinO*sinw*el.cosI)
	o.ThieleB = a * (el.sinO*cosw + el.cosO*sinw*el.cosI)
	o.ThieleF = a * (-el.cosO*sinw - el.sinO*cosw*el.cosI)
	o.ThieleG = a * (-el.sinO*sinw + el.cosO*cosw*el.cosI)
	return o
}

// rectangular returns the elliptical rectangular coordinates at an
// eccentric anomaly.
func (o *RelativeOrbit) rectangular(eccAnom float64) (x, y float64) {
	e := o.el.Ecc
	return math.Cos(eccAnom) - e, math.Sqrt(1-e*e) * math.Sin(eccAnom)
}

// PosOfEccentricAnomaly returns the sky-plane offset at an eccentric
// anomaly.
func (o *RelativeOrbit) PosOfEccentricAnomaly(eccAnom float64) SkyPos {
	x, y := o.rectangular(eccAnom)
	return SkyPos{
		North: o.ThieleA*x + o.ThieleF*y,
		East:  o.ThieleB*x + o.ThieleG*y,
	}
}

// PosOfTrueAnomaly returns the sky-plane offset at a true anomaly.
func (o *RelativeOrbit) PosOfTrueAnomaly(theta float64) SkyPos {
	return o.PosOfEccentricAnomaly(EccentricAnomalyOfTrueAnomaly(theta, o.el.Ecc))
}

// PosOfPhase returns the sky-plane offset at an orbital phase.
func (o *RelativeOrbit) PosOfPhase(phase float64) (SkyPos, error) {
	eccAnom, err := EccentricAnomalyOfPhase(phase, o.el.Ecc)
	if err != nil {
		return SkyPos{}, err
	}
	return o.PosOfEccentricAnomaly(eccAnom), nil
}

// PosOfEpoch returns the sky-plane offset at an observation epoch.
func (o *RelativeOrbit) PosOfEpoch(epoch float64) (SkyPos, error) {
	return o.PosOfPhase(o.PhaseOfEpoch(epoch))
}

// PosOfEpochs returns the sky-plane offsets at every epoch, preserving
// input order.
func (o *RelativeOrbit) PosOfEpochs(epochs []float64) ([]SkyPos, error) {
	out := make([]SkyPos, len(epochs))
	for k, epoch := range epochs {
		pos, err := o.PosOfEpoch(epoch)
		if err != nil {
			return nil, err
		}
		out[k] = pos
	}
	return out, nil
}

// Periastron returns the sky-plane point of closest approach (eccentric
// anomaly zero).
func (o *RelativeOrbit) Periastron() SkyPos {
	return o.PosOfEccentricAnomaly(0)
}

// AxisEndpoints returns the sky-plane endpoints of the semi-major axis
// (true anomalies 0 and pi).
func (o *RelativeOrbit) AxisEndpoints() (SkyPos, SkyPos) {
	return o.PosOfTrueAnomaly(0), o.PosOfTrueAnomaly(math.Pi)
}

// NodeEndpoints returns the sky-plane endpoints of the line of nodes
// (true anomalies -omega and -omega+pi), where the orbit crosses the
// plane of the sky.
func (o *RelativeOrbit) NodeEndpoints() (SkyPos, SkyPos) {
	return o.PosOfTrueAnomaly(-o.ArgPeri), o.PosOfTrueAnomaly(-o.ArgPeri + math.Pi)
}
