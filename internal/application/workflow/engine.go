package workflow

import (
	"context"

	domainwf "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
)

// Lifecycle validates status changes of one persisted entity kind. The
// status column is the source of truth; a machine is restored from it for
// every transition.
type Lifecycle interface {
	// Name identifies the lifecycle in logs and errors
	Name() string

	// Next returns the state trigger leads to from current
	Next(ctx context.Context, current string, trigger domainwf.Trigger) (domainwf.State, error)

	// Permitted returns the triggers allowed from current
	Permitted(current string) []domainwf.Trigger
}
