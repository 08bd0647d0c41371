package robustmean

import (
	"fmt"
	"time"
)

// Diagnostics reports what one call did. It is only filled on success.
type Diagnostics struct {
	// Groups is the number of result cells computed.
	Groups int

	// Elements is the number of selected input elements.
	Elements int

	// Iterations is the total number of refinement steps.
	Iterations int

	// NonConverged counts groups whose refinement ran out of iterations and
	// returned their last candidate.
	NonConverged int

	// Duration is the wall time of the call.
	Duration time.Duration
}

// Err returns an error wrapping ErrNonConvergence when any group exhausted its
// iteration budget, nil otherwise. The result is still usable in that case.
func (d *Diagnostics) Err() error {
	if d == nil || d.NonConverged == 0 {
		return nil
	}

	return fmt.Errorf("%w: %d of %d groups", ErrNonConvergence, d.NonConverged, d.Groups)
}
