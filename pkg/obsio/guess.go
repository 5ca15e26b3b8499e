package obsio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/astrokit/binfit/pkg/fit"
)

// LoadGuesses parses a guess file. Each non-comment line reads
// "name value True|False": the initial parameter value and whether the
// minimizer may vary it. All twelve parameter names must appear; q is
// accepted too for fits with a locked mass ratio. Unknown names and
// duplicates are rejected with the offending line.
func LoadGuesses(path string) (map[string]fit.Guess, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open guess file: %w", err)
	}
	defer f.Close()

	out := make(map[string]fit.Guess, 12)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: expected \"name value vary\", got %q", path, lineNo, line)
		}
		name := fields[0]
		if !fit.IsParamName(name) && name != "q" {
			return nil, fmt.Errorf("%s:%d: unknown parameter %q", path, lineNo, name)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate guess for %q", path, lineNo, name)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad value for %s: %w", path, lineNo, name, err)
		}
		vary, err := strconv.ParseBool(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad vary flag for %s: %w", path, lineNo, name, err)
		}
		out[name] = fit.Guess{Value: value, Vary: vary}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read guess file %s: %w", path, err)
	}
	for _, name := range fit.ParamNames() {
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("%s: missing guess for parameter %q", path, name)
		}
	}
	return out, nil
}

// SaveGuesses writes guesses in the same format LoadGuesses reads, in
// canonical parameter order, so a fitted solution can seed the next run.
func SaveGuesses(path string, guesses map[string]fit.Guess) error {
	var b strings.Builder
	write := func(name string, g fit.Guess) {
		vary := "False"
		if g.Vary {
			vary = "True"
		}
		fmt.Fprintf(&b, "%s %.10g %s\n", name, g.Value, vary)
	}
	for _, name := range fit.ParamNames() {
		g, ok := guesses[name]
		if !ok {
			return fmt.Errorf("missing value for parameter %q", name)
		}
		write(name, g)
	}
	if g, ok := guesses["q"]; ok {
		write("q", g)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write guess file: %w", err)
	}
	return nil
}
