package main

import (
	"fmt"

	"github.com/sentrywall/sentrywall/controller"
)

// openManager binds a Manager the way a long-running command should:
// software mode for simulate/local testing, or hardware mode bound to
// whatever a prior process already attached and pinned (spec.md §6
// "Persisted state ... pinned: they outlive the user-space process").
func openManager() (*controller.Manager, error) {
	logger := newLogger()
	if software {
		return controller.NewSoftware(logger)
	}
	m, err := controller.New(pinDir, logger)
	if err != nil {
		return nil, fmt.Errorf("sentrywallctl: %w", err)
	}
	if err := m.ManageAll(); err != nil {
		return nil, fmt.Errorf("sentrywallctl: bind to pinned maps: %w", err)
	}
	return m, nil
}
