// Package types holds the machine-readable structures the command layer
// writes to disk after a fit.
package types

import (
	"encoding/json"
	"time"
)

// FitReport is the JSON dump of one minimization run.
type FitReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Version     string            `json:"version"`
	Method      string            `json:"method"`
	PointerFile string            `json:"pointer_file,omitempty"`
	Parameters  []ParameterReport `json:"parameters"`
	Statistics  FitStatistics     `json:"statistics"`
	Derived     *DerivedReport    `json:"derived,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	ChainFile   string            `json:"chain_file,omitempty"`
}

// ParameterReport is one model parameter after the fit.
type ParameterReport struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Stderr float64 `json:"stderr"`
	Vary   bool    `json:"vary"`
	// Derived marks a parameter tracking a locked expression rather than
	// being fitted or held at its guess.
	Derived bool   `json:"derived,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

// FitStatistics summarizes the goodness of fit.
type FitStatistics struct {
	ChiSquared       float64 `json:"chi_squared"`
	ReducedChi       float64 `json:"reduced_chi_squared"`
	DataPoints       int     `json:"data_points"`
	FreeParameters   int     `json:"free_parameters"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	RMSPrimaryRV     float64 `json:"rms_primary_rv_kms,omitempty"`
	RMSSecondaryRV   float64 `json:"rms_secondary_rv_kms,omitempty"`
	RMSAstrometry    float64 `json:"rms_astrometry_mas,omitempty"`
	Iterations       int     `json:"iterations"`
	Evaluations      int     `json:"evaluations"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// DerivedReport holds the physical quantities computed from the best-fit
// elements, including both independent semi-major-axis estimators.
type DerivedReport struct {
	PrimaryMass       float64 `json:"primary_mass_msun"`
	SecondaryMass     float64 `json:"secondary_mass_msun"`
	TotalMassRV       float64 `json:"total_mass_from_rv_msun"`
	TotalMassDistance float64 `json:"total_mass_from_distance_msun"`
	SemiMajorAxisRV   float64 `json:"semi_major_axis_from_rv_au"`
	SemiMajorAxisMass float64 `json:"semi_major_axis_from_mass_au"`
	ApparentSemiMajor float64 `json:"apparent_semi_major_axis_mas"`
}

// ToJSON renders the report with indentation for human inspection.
func (r *FitReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
