// Package obsio loads and saves the flat files of an orbit fit: the
// pointer file naming the data and guess files, the guess file with the
// twelve parameters and their vary flags, and the whitespace-separated
// radial velocity and astrometry tables. Lines starting with # are
// comments throughout. The package converts astrometric error ellipses
// to marginal east/north errors and separation/position-angle rows to
// east/north offsets, so the fit package only ever sees ready-to-use
// observation sets.
package obsio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pointer names the input files of one fit. Paths are resolved against
// the directory of the pointer file itself; absent optional entries stay
// empty. A guess file is mandatory, the three data files are not.
type Pointer struct {
	Dir       string
	GuessFile string
	RV1File   string
	RV2File   string
	ASFile    string
}

// HasData reports whether any observation file is named.
func (p *Pointer) HasData() bool {
	return p.RV1File != "" || p.RV2File != "" || p.ASFile != ""
}

// ParsePointer reads a pointer file. Each non-comment line holds a key
// and a filename; recognized keys are guessfile, RV1file, RV2file and
// ASfile. A pointer without a guessfile entry is an error, since no
// minimization can start without an initial guess.
func ParsePointer(path string) (*Pointer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pointer file: %w", err)
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve pointer file %s: %w", path, err)
	}
	ptr := &Pointer{Dir: filepath.Dir(abs)}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"key filename\", got %q", path, lineNo, line)
		}
		name := filepath.Join(ptr.Dir, fields[1])
		switch fields[0] {
		case "guessfile":
			ptr.GuessFile = name
		case "RV1file":
			ptr.RV1File = name
		case "RV2file":
			ptr.RV2File = name
		case "ASfile":
			ptr.ASFile = name
		default:
			return nil, fmt.Errorf("%s:%d: unknown file key %q (use guessfile, RV1file, RV2file, ASfile)",
				path, lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pointer file %s: %w", path, err)
	}
	if ptr.GuessFile == "" {
		return nil, fmt.Errorf("%s: no guessfile entry, cannot minimize without an initial guess", path)
	}
	return ptr, nil
}
