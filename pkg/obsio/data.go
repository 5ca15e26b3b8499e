package obsio

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/astrokit/binfit/pkg/fit"
	"github.com/astrokit/binfit/pkg/orbit"
)

// dummyErrFraction is the relative error substituted for RV rows that
// carry no error column.
const dummyErrFraction = 0.05

// readRows parses a whitespace-separated numeric table, skipping blank
// and #-comment lines. Every data row must have a column count from the
// allowed set.
func readRows(path string, allowed ...int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		ok := false
		for _, n := range allowed {
			if len(fields) == n {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected %v columns, got %d", path, lineNo, allowed, len(fields))
		}
		row := make([]float64, len(fields))
		for k, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad number %q: %w", path, lineNo, field, err)
			}
			row[k] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}
	return rows, nil
}

// LoadRV reads a radial velocity table with columns
// "epoch rv [error]". Rows without the error column get a dummy error of
// 5 percent of the velocity.
func LoadRV(path string) ([]fit.RVPoint, error) {
	rows, err := readRows(path, 2, 3)
	if err != nil {
		return nil, err
	}
	out := make([]fit.RVPoint, len(rows))
	for k, row := range rows {
		pt := fit.RVPoint{Epoch: row[0], RV: row[1]}
		if len(row) == 3 {
			pt.Err = row[2]
		} else {
			pt.Err = dummyErrFraction * math.Abs(row[1])
		}
		out[k] = pt
	}
	return out, nil
}

// LoadAstro reads an astrometry table with columns
// "epoch east north major minor pa" (all offsets in mas, the ellipse
// position angle in degrees east of north). With seppa set, columns two
// and three are read as separation (mas) and position angle (deg)
// instead and converted to east/north offsets. The error ellipse is
// projected onto the east and north axes for the fit weights.
func LoadAstro(path string, seppa bool) ([]fit.AstroPoint, error) {
	rows, err := readRows(path, 6)
	if err != nil {
		return nil, err
	}
	out := make([]fit.AstroPoint, len(rows))
	for k, row := range rows {
		pt := fit.AstroPoint{
			Epoch: row[0],
			Major: row[3],
			Minor: row[4],
			PA:    row[5],
		}
		if seppa {
			sep, pa := row[1], row[2]*orbit.Deg2Rad
			pt.East = sep * math.Sin(pa)
			pt.North = sep * math.Cos(pa)
		} else {
			pt.East = row[1]
			pt.North = row[2]
		}
		pt.EastErr, pt.NorthErr = ProjectEllipse(pt.Major, pt.Minor, pt.PA)
		out[k] = pt
	}
	return out, nil
}

// LoadObservations reads every data file a pointer names into one
// observation set. Streams without a file stay empty; seppa selects the
// separation/position-angle convention for the astrometry file.
func LoadObservations(ptr *Pointer, seppa bool) (fit.Observations, error) {
	var obs fit.Observations
	var err error
	if ptr.RV1File != "" {
		if obs.RV1, err = LoadRV(ptr.RV1File); err != nil {
			return fit.Observations{}, err
		}
	}
	if ptr.RV2File != "" {
		if obs.RV2, err = LoadRV(ptr.RV2File); err != nil {
			return fit.Observations{}, err
		}
	}
	if ptr.ASFile != "" {
		if obs.Astro, err = LoadAstro(ptr.ASFile, seppa); err != nil {
			return fit.Observations{}, err
		}
	}
	return obs, nil
}
