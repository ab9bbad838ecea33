package state

import (
	"github.com/hashicorp/go-multierror"
)

// Restore runs every component's unmarshal step, continuing past a
// failure so the process abort log (§7, "state-unmarshal failure... is
// fatal") names every component that failed to restore, not just the
// first one encountered.
func Restore(steps ...func() error) error {
	var result *multierror.Error
	for _, step := range steps {
		if err := step(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
