package config

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/arclot/internal/lot"
)

//go:embed arc.cue
var schemaCUE string

// Validate checks a against the #Arc schema and resolves its interval.
// Boundary arcs additionally need an interval of at most an hour.
func Validate(a *Arc) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("arc.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Arc")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	unit, err := lot.ParseUnit(a.Interval)
	if err != nil {
		return fmt.Errorf("invalid config: interval: %w", err)
	}
	if a.Boundary {
		if err := lot.ValidateBoundary(unit); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
