package orbit

import "math"

// Params is the full orbital element set of a double-lined binary. Angles
// are in degrees, the distance in parsec, the mass in solar masses; the
// remaining units follow the comments. The twelve fields together
// parameterize both spectroscopic orbits and the astrometric orbit.
type Params struct {
	Ecc     float64 // eccentricity
	Inc     float64 // inclination, deg
	ArgPeri float64 // argument of periastron of the secondary, deg
	Node    float64 // longitude of the ascending node, deg
	T0      float64 // epoch of periastron passage, day
	K1      float64 // primary RV semi-amplitude, km/s
	K2      float64 // secondary RV semi-amplitude, km/s
	Period  float64 // orbital period, day
	Gamma1  float64 // primary systemic velocity, km/s
	Gamma2  float64 // secondary systemic velocity, km/s
	Dist    float64 // distance to the system, pc
	MTot    float64 // total dynamical mass, Msun
}

// Validate checks the constraints every system must satisfy regardless of
// which observables it is asked to model.
func (p Params) Validate() error {
	if math.IsNaN(p.Ecc) || p.Ecc < 0 || p.Ecc >= 1 {
		return &InvalidEccentricityError{Ecc: p.Ecc}
	}
	if !(p.Period > 0) {
		return &InvalidModelError{Param: "p", Value: p.Period, Reason: "period must be positive"}
	}
	return nil
}

// ValidateRV checks the additional constraints of a system whose radial
// velocities will be evaluated. Astrometry-only work does not need the
// semi-amplitudes and may skip this.
func (p Params) ValidateRV() error {
	if p.K1 == 0 {
		return &InvalidModelError{Param: "k1", Value: p.K1, Reason: "semi-amplitude must be nonzero"}
	}
	if p.K2 == 0 {
		return &InvalidModelError{Param: "k2", Value: p.K2, Reason: "semi-amplitude must be nonzero"}
	}
	return nil
}

// System is the frozen model of a binary star built from one element set.
// It owns three orbits sharing the same elements: the absolute
// (spectroscopic) orbits of the primary and the secondary, and the
// relative (astrometric) orbit of the secondary about the primary.
type System struct {
	el Elements

	Primary   *AbsoluteOrbit
	Secondary *AbsoluteOrbit
	Relative  *RelativeOrbit

	k1, k2 float64 // semi-amplitudes as magnitudes, km/s
	mt     float64 // total mass parameter, Msun
	apKK   float64 // physical semi-major axis from the amplitudes, km
	apMT   float64 // physical semi-major axis from the total mass, km
}

// NewSystem builds a System from an element set. The primary orbit uses
// the omega-180 degrees convention so that both RV curves derive from the
// same argument of periastron. The relative orbit's angular size comes
// from the total mass and the distance via Kepler's third law.
func NewSystem(p Params) (*System, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &System{
		k1: math.Abs(p.K1),
		k2: math.Abs(p.K2),
		mt: p.MTot,
	}
	s.el = Elements{
		Ecc:    p.Ecc,
		Inc:    p.Inc * Deg2Rad,
		Node:   p.Node * Deg2Rad,
		T0:     p.T0,
		Period: p.Period,
		Dist:   p.Dist * PCToKM,
	}
	s.el.sinI, s.el.cosI = math.Sincos(s.el.Inc)
	s.el.sinO, s.el.cosO = math.Sincos(s.el.Node)

	psec := p.Period * DayToSec
	s.apKK = psec * math.Sqrt(1-p.Ecc*p.Ecc) * (s.k1 + s.k2) /
		(2 * math.Pi * math.Abs(s.el.sinI))
	s.apMT = math.Cbrt(p.MTot * MSun * GravConst * psec * psec / (4 * math.Pi * math.Pi))

	s.Primary = newAbsoluteOrbit(&s.el, s.k1, p.ArgPeri-180, p.Gamma1)
	s.Secondary = newAbsoluteOrbit(&s.el, s.k2, p.ArgPeri, p.Gamma2)
	s.Relative = newRelativeOrbit(&s.el, s.apMT/s.el.Dist*Rad2Mas, p.ArgPeri)
	return s, nil
}

// Elements returns a copy of the frozen element set in internal units.
func (s *System) Elements() Elements { return s.el }

// Phase folds an observation epoch onto the orbital phase in [0,1).
func (s *System) Phase(epoch float64) float64 {
	return PhaseOfEpoch(epoch, s.el.T0, s.el.Period)
}

// massOf evaluates the spectroscopic mass function for the component
// whose companion has semi-amplitude kOther.
func (s *System) massOf(kOther float64) float64 {
	sin3 := math.Abs(s.el.sinI)
	sin3 = sin3 * sin3 * sin3
	ksum := s.k1 + s.k2
	return math.Pow(1-s.el.Ecc*s.el.Ecc, 1.5) * ksum * ksum * kOther *
		s.el.Period * DayToSec / (2 * math.Pi * GravConst * sin3) / MSun
}

// PrimaryMass returns the dynamical mass of the primary in Msun.
func (s *System) PrimaryMass() float64 { return s.massOf(s.k2) }

// SecondaryMass returns the dynamical mass of the secondary in Msun.
func (s *System) SecondaryMass() float64 { return s.massOf(s.k1) }

// TotalMass returns the dynamical mass of the pair in Msun, from the
// semi-amplitudes alone.
func (s *System) TotalMass() float64 { return s.massOf(s.k1 + s.k2) }

// SemiMajorAxisFromRV returns the physical semi-major axis of the
// relative orbit derived from the RV amplitudes, in AU.
func (s *System) SemiMajorAxisFromRV() float64 { return s.apKK / AUToKM }

// SemiMajorAxisFromDistance returns the physical semi-major axis of the
// relative orbit derived from the total mass, in AU. Comparing it with
// SemiMajorAxisFromRV is a consistency check on a combined fit.
func (s *System) SemiMajorAxisFromDistance() float64 { return s.apMT / AUToKM }

// TotalMassFromDistance applies Kepler's third law to the angular
// semi-major axis and the distance, in Msun. It cross-checks the fitted
// total mass parameter.
func (s *System) TotalMassFromDistance() float64 {
	aPhys := s.el.Dist * s.Relative.A * Mas2Rad
	psec := s.el.Period * DayToSec
	return 4 * math.Pi * math.Pi * aPhys * aPhys * aPhys /
		(GravConst * psec * psec) / MSun
}
