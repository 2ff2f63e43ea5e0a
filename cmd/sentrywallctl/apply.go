package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentrywall/sentrywall/controller"
	"github.com/sentrywall/sentrywall/policy"
)

func newApplyCmd() *cobra.Command {
	var attach bool
	cmd := &cobra.Command{
		Use:   "apply <file.yaml>",
		Short: "Load a policy document and install every entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("sentrywallctl: read %s: %w", args[0], err)
			}
			policies, err := policy.ParseYAML(data)
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}

			m, err := openForApply(attach)
			if err != nil {
				return err
			}
			defer m.Close()

			for i, p := range policies {
				if err := m.AddPolicy(p); err != nil {
					return fmt.Errorf("sentrywallctl: policy %d (subject=%s hook=%s): %w", i, p.Subject, p.Hook, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed %d polic%s\n", len(policies), plural(len(policies)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&attach, "attach", false, "first-time setup: load and attach the BPF object before installing policies")
	return cmd
}

// openForApply binds a Manager for apply specifically: --attach does
// the one-time AttachAll (spec.md §6 "first-time setup"), everything
// else reuses openManager's ManageAll/software behavior.
func openForApply(attach bool) (*controller.Manager, error) {
	if !attach {
		return openManager()
	}
	if software {
		return nil, fmt.Errorf("sentrywallctl: --attach is meaningless with --software")
	}
	if objPath == "" {
		return nil, fmt.Errorf("sentrywallctl: --attach requires --object")
	}
	m, err := controller.New(pinDir, newLogger())
	if err != nil {
		return nil, fmt.Errorf("sentrywallctl: %w", err)
	}
	if err := m.AttachAll(objPath); err != nil {
		return nil, fmt.Errorf("sentrywallctl: %w", err)
	}
	return m, nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
