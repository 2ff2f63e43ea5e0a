package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentrywall/sentrywall/controller"
	"github.com/sentrywall/sentrywall/decision"
	"github.com/sentrywall/sentrywall/policy"
)

// newSimulateCmd drives the software decision engine against a policy
// document and one synthetic event, for local testing without a real
// BPF-LSM-capable kernel (SPEC_FULL.md §11, §3 "software engine").
func newSimulateCmd() *cobra.Command {
	var policiesPath string
	root := &cobra.Command{
		Use:   "simulate",
		Short: "Evaluate one synthetic event against a policy document",
	}
	root.PersistentFlags().StringVar(&policiesPath, "policies", "", "YAML policy document to install before evaluating (required)")

	root.AddCommand(newSimulateFileOpenCmd(&policiesPath))
	root.AddCommand(newSimulateBindCmd(&policiesPath))
	root.AddCommand(newSimulateSetuidCmd(&policiesPath))
	root.AddCommand(newSimulateMountCmd(&policiesPath))
	root.AddCommand(newSimulateConnectCmd(&policiesPath))
	return root
}

func loadSoftwareManager(policiesPath string) (*controller.Manager, error) {
	if policiesPath == "" {
		return nil, fmt.Errorf("sentrywallctl: simulate requires --policies")
	}
	data, err := os.ReadFile(policiesPath)
	if err != nil {
		return nil, fmt.Errorf("sentrywallctl: read %s: %w", policiesPath, err)
	}
	policies, err := policy.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("sentrywallctl: %w", err)
	}
	m, err := controller.NewSoftware(newLogger())
	if err != nil {
		return nil, err
	}
	for i, p := range policies {
		if err := m.AddPolicy(p); err != nil {
			m.Close()
			return nil, fmt.Errorf("sentrywallctl: policy %d: %w", i, err)
		}
	}
	return m, nil
}

func newSimulateFileOpenCmd(policiesPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "file_open <image> <target>",
		Short: "Evaluate a file-open check",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadSoftwareManager(*policiesPath)
			if err != nil {
				return err
			}
			defer m.Close()

			imageInode, err := m.Resolver().ResolvePath(args[0])
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			targetInode, err := m.Resolver().ResolvePath(args[1])
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}

			verdict, err := m.EvaluateFileOpen(context.Background(), controller.FSParentLookup{Resolver: m.Resolver()}, imageInode, targetInode)
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return nil
		},
	}
}

func newSimulateBindCmd(policiesPath *string) *cobra.Command {
	var port uint16
	cmd := &cobra.Command{
		Use:   "bind <image>",
		Short: "Evaluate a socket-bind check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadSoftwareManager(*policiesPath)
			if err != nil {
				return err
			}
			defer m.Close()

			imageInode, err := m.Resolver().ResolvePath(args[0])
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			verdict, err := m.EvaluateSocketBind(context.Background(), imageInode, port)
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return nil
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 0, "port to bind")
	return cmd
}

func newSimulateSetuidCmd(policiesPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setuid <image>",
		Short: "Evaluate a credential-change check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadSoftwareManager(*policiesPath)
			if err != nil {
				return err
			}
			defer m.Close()

			imageInode, err := m.Resolver().ResolvePath(args[0])
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			verdict, err := m.EvaluateSetuid(context.Background(), imageInode, 0, 0, 0, 0)
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return nil
		},
	}
	return cmd
}

func newSimulateConnectCmd(policiesPath *string) *cobra.Command {
	var port uint16
	cmd := &cobra.Command{
		Use:   "connect <image> <addr>",
		Short: "Evaluate a socket-connect check against an IPv4 or IPv6 address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadSoftwareManager(*policiesPath)
			if err != nil {
				return err
			}
			defer m.Close()

			imageInode, err := m.Resolver().ResolvePath(args[0])
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}

			ip := net.ParseIP(args[1])
			if ip == nil {
				return fmt.Errorf("sentrywallctl: invalid address %q", args[1])
			}

			var verdict decision.Verdict
			if v4 := ip.To4(); v4 != nil {
				addr := uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
				v, err := m.EvaluateSocketConnect4(context.Background(), imageInode, addr, port)
				if err != nil {
					return fmt.Errorf("sentrywallctl: %w", err)
				}
				verdict = v
			} else {
				var addr [16]byte
				copy(addr[:], ip.To16())
				v, err := m.EvaluateSocketConnect6(context.Background(), imageInode, addr, port)
				if err != nil {
					return fmt.Errorf("sentrywallctl: %w", err)
				}
				verdict = v
			}
			fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return nil
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 0, "destination port")
	return cmd
}

func newSimulateMountCmd(policiesPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <image>",
		Short: "Evaluate a mount/remount/unmount check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadSoftwareManager(*policiesPath)
			if err != nil {
				return err
			}
			defer m.Close()

			imageInode, err := m.Resolver().ResolvePath(args[0])
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			verdict, err := m.EvaluateMount(context.Background(), imageInode)
			if err != nil {
				return fmt.Errorf("sentrywallctl: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return nil
		},
	}
	return cmd
}
