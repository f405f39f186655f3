package workflow

import (
	"context"
	"fmt"

	domainwf "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
)

type lifecycleImpl struct {
	name    string
	builder domainwf.StateMachineBuilder
}

func (l *lifecycleImpl) Name() string {
	return l.name
}

func (l *lifecycleImpl) Next(ctx context.Context, current string, trigger domainwf.Trigger) (domainwf.State, error) {
	machine, err := domainwf.Restore(l.builder, domainwf.State(current))
	if err != nil {
		return "", fmt.Errorf("%s: %w", l.name, err)
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return "", fmt.Errorf("%s: %w", l.name, err)
	}
	return machine.State(), nil
}

func (l *lifecycleImpl) Permitted(current string) []domainwf.Trigger {
	machine, err := domainwf.Restore(l.builder, domainwf.State(current))
	if err != nil {
		return nil
	}
	return machine.PermittedTriggers()
}
