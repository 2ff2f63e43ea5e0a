package main

import (
	"github.com/spf13/cobra"

	"github.com/sentrywall/sentrywall/bpf"
)

var (
	pinDir   string
	objPath  string
	software bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentrywallctl",
		Short: "Install and inspect sentrywall policies",
	}
	root.PersistentFlags().StringVar(&pinDir, "pin-dir", bpf.DefaultPinDir, "bpffs directory the policy maps are pinned under")
	root.PersistentFlags().StringVar(&objPath, "object", "", "path to the compiled BPF object (apply --attach only)")
	root.PersistentFlags().BoolVar(&software, "software", false, "drive the in-memory decision engine instead of a real BPF-LSM kernel")

	root.AddCommand(newApplyCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newSimulateCmd())
	return root
}
