package rank

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPopulation is returned when ranking is requested over zero users.
var ErrEmptyPopulation = errors.New("empty population")

// PopulationMismatchError reports users of a metric that cannot be
// reconciled with the population baseline.
type PopulationMismatchError struct {
	Method  string
	Unknown []string // reported by the metric but absent from every baseline
	Missing []string // in the population but not reported by the metric
}

func (e *PopulationMismatchError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("%d unknown users (e.g. %s)", len(e.Unknown), e.Unknown[0]))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("%d missing users (e.g. %s)", len(e.Missing), e.Missing[0]))
	}
	return fmt.Sprintf("population mismatch in %s ranking: %s", e.Method, strings.Join(parts, ", "))
}
