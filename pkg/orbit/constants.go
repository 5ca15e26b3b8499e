package orbit

import "math"

// Physical constants in the km, kg, s unit system used throughout the
// package. Periods enter in days and are converted with DayToSec at the
// point of use; distances enter in parsec and are stored in km.
const (
	// AUToKM is the astronomical unit in km.
	AUToKM = 1.495978707e8
	// PCToKM is the parsec in km.
	PCToKM = 3.085677581e13
	// MSun is the solar mass in kg.
	MSun = 1.9885e30
	// RSun is the solar radius in km.
	RSun = 6.957e5
	// GravConst is the gravitational constant in km^3 kg^-1 s^-2.
	GravConst = 6.67430e-20
	// DayToSec is the number of seconds in a day.
	DayToSec = 86400.0
)

// Angle conversion factors.
const (
	Deg2Rad = math.Pi / 180
	Rad2Deg = 180 / math.Pi
	Mas2Rad = 1e-3 / 3600 * Deg2Rad
	Rad2Mas = Rad2Deg * 3600 * 1e3
)
