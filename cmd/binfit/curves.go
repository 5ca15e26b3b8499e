package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/astrokit/binfit/pkg/fit"
	"github.com/astrokit/binfit/pkg/obsio"
	"github.com/astrokit/binfit/pkg/orbit"
)

var (
	curvesInput  string
	curvesSepPA  bool
	curvesOutDir string
)

var curvesCmd = &cobra.Command{
	Use:   "curves",
	Short: "Dump the model curves of a guessed solution as CSV tables",
	Long: `Sample the radial velocity curves and the apparent orbit of the
solution in the guess file and write them as CSV tables, together with
the phase-folded observations, for external plotting.`,
	RunE: runCurves,
}

func init() {
	f := curvesCmd.Flags()
	f.StringVarP(&curvesInput, "input", "i", "", "pointer file naming the guess and data files")
	f.BoolVarP(&curvesSepPA, "seppa", "s", false, "astrometry columns hold separation and position angle")
	f.StringVarP(&curvesOutDir, "output", "o", "", "output directory (default from config)")
	curvesCmd.MarkFlagRequired("input")
}

func runCurves(cmd *cobra.Command, args []string) error {
	ptr, err := obsio.ParsePointer(curvesInput)
	if err != nil {
		return err
	}
	guesses, err := obsio.LoadGuesses(ptr.GuessFile)
	if err != nil {
		return err
	}
	obs, err := obsio.LoadObservations(ptr, curvesSepPA)
	if err != nil {
		return err
	}
	ps, err := fit.NewParamSet(guesses, false, false)
	if err != nil {
		return err
	}
	sys, err := orbit.NewSystem(ps.OrbitParams())
	if err != nil {
		return fmt.Errorf("guesses do not produce a valid model: %w", err)
	}

	outDir := curvesOutDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeCurves(sys, obs, outDir); err != nil {
		return err
	}
	fmt.Printf("model curves written to %s\n", outDir)
	return nil
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// writeCurves samples the model of a system and dumps it next to the
// phase-folded observations: the two RV curves over an extended phase
// range, the apparent orbit over one revolution, its geometry markers,
// and one table per present data stream.
func writeCurves(sys *orbit.System, obs fit.Observations, dir string) error {
	phases, rv1, err := orbit.RVCurve(sys.Primary, orbit.CurveSamples, orbit.PhaseMargin)
	if err != nil {
		return err
	}
	_, rv2, err := orbit.RVCurve(sys.Secondary, orbit.CurveSamples, orbit.PhaseMargin)
	if err != nil {
		return err
	}
	rvRows := make([][]string, len(phases))
	for k := range phases {
		rvRows[k] = []string{ftoa(phases[k]), ftoa(rv1[k]), ftoa(rv2[k])}
	}
	if err := writeCSV(filepath.Join(dir, "rv_curves.csv"),
		[]string{"phase", "rv1_kms", "rv2_kms"}, rvRows); err != nil {
		return err
	}

	sky := orbit.SkyCurve(sys.Relative, orbit.CurveSamples)
	skyRows := make([][]string, len(sky))
	for k, pos := range sky {
		skyRows[k] = []string{
			ftoa(pos.East), ftoa(pos.North),
			ftoa(pos.Separation()), ftoa(pos.PositionAngle()),
		}
	}
	if err := writeCSV(filepath.Join(dir, "relative_orbit.csv"),
		[]string{"east_mas", "north_mas", "separation_mas", "position_angle_deg"}, skyRows); err != nil {
		return err
	}

	peri := sys.Relative.Periastron()
	axis1, axis2 := sys.Relative.AxisEndpoints()
	node1, node2 := sys.Relative.NodeEndpoints()
	markers := [][]string{
		{"periastron", ftoa(peri.East), ftoa(peri.North)},
		{"axis_near", ftoa(axis1.East), ftoa(axis1.North)},
		{"axis_far", ftoa(axis2.East), ftoa(axis2.North)},
		{"node_1", ftoa(node1.East), ftoa(node1.North)},
		{"node_2", ftoa(node2.East), ftoa(node2.North)},
	}
	if err := writeCSV(filepath.Join(dir, "orbit_markers.csv"),
		[]string{"point", "east_mas", "north_mas"}, markers); err != nil {
		return err
	}

	if obs.HasRV1() {
		if err := writeFoldedRV(sys, obs.RV1, filepath.Join(dir, "rv1_data.csv")); err != nil {
			return err
		}
	}
	if obs.HasRV2() {
		if err := writeFoldedRV(sys, obs.RV2, filepath.Join(dir, "rv2_data.csv")); err != nil {
			return err
		}
	}
	if obs.HasAstro() {
		rows := make([][]string, len(obs.Astro))
		for k, pt := range obs.Astro {
			rows[k] = []string{
				ftoa(pt.Epoch), ftoa(sys.Phase(pt.Epoch)),
				ftoa(pt.East), ftoa(pt.North),
				ftoa(pt.EastErr), ftoa(pt.NorthErr),
			}
		}
		if err := writeCSV(filepath.Join(dir, "astro_data.csv"),
			[]string{"epoch", "phase", "east_mas", "north_mas", "east_err_mas", "north_err_mas"}, rows); err != nil {
			return err
		}
	}
	return nil
}

// writeFoldedRV phase-folds one RV stream and extends it across the wrap
// boundary so the folded series plots continuously.
func writeFoldedRV(sys *orbit.System, pts []fit.RVPoint, path string) error {
	folded := make([]orbit.PhasePoint, len(pts))
	for k, pt := range pts {
		folded[k] = orbit.PhasePoint{Phase: sys.Phase(pt.Epoch), Value: pt.RV, Err: pt.Err}
	}
	extended := orbit.ExtendPhases(folded, orbit.PhaseMargin)
	rows := make([][]string, len(extended))
	for k, pt := range extended {
		rows[k] = []string{ftoa(pt.Phase), ftoa(pt.Value), ftoa(pt.Err)}
	}
	return writeCSV(path, []string{"phase", "rv_kms", "rv_err_kms"}, rows)
}
