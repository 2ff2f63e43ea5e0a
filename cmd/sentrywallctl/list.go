package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sentrywall/sentrywall/policy"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every installed policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			policies, err := m.ListPolicies()
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SUBJECT\tHOOK\tALLOW\tDENY")
			for _, p := range policies {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Subject, p.Hook, allowColumn(p), denyColumn(p))
			}
			return w.Flush()
		},
	}
}

func allowColumn(p policy.Policy) string {
	switch p.Hook.String() {
	case "file_open":
		return specString(p.AllowPaths.All, p.AllowPaths.Paths)
	case "bind":
		return portSpecString(p.AllowPorts)
	case "connect":
		return specString(p.AllowAddrs.All, p.AllowAddrs.Addrs)
	default:
		return fmt.Sprintf("%v", p.Allow)
	}
}

func denyColumn(p policy.Policy) string {
	switch p.Hook.String() {
	case "file_open":
		return specString(p.DenyPaths.All, p.DenyPaths.Paths)
	case "bind":
		return portSpecString(p.DenyPorts)
	case "connect":
		return specString(p.DenyAddrs.All, p.DenyAddrs.Addrs)
	default:
		return fmt.Sprintf("%v", !p.Allow)
	}
}

func specString(all bool, items []string) string {
	if all {
		return "all"
	}
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}

func portSpecString(spec policy.PortSpec) string {
	if spec.All {
		return "all"
	}
	if len(spec.Ports) == 0 {
		return "-"
	}
	parts := make([]string, len(spec.Ports))
	for i, p := range spec.Ports {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}
