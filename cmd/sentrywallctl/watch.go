package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sentrywall/sentrywall/alertring"
	"github.com/sentrywall/sentrywall/hook"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream denial alerts for every governed hook until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			var wg sync.WaitGroup
			for _, hk := range hook.All() {
				alerts, err := m.Alerts(ctx, hk, 0)
				if err != nil {
					return fmt.Errorf("sentrywallctl: %w", err)
				}
				wg.Add(1)
				go func(hk hook.Kind, alerts <-chan alertring.Alert) {
					defer wg.Done()
					for a := range alerts {
						printAlert(cmd, a)
					}
				}(hk, alerts)
			}
			<-ctx.Done()
			wg.Wait()
			return nil
		},
	}
}

func printAlert(cmd *cobra.Command, a alertring.Alert) {
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] pid=%d subject=%s", a.Hook, a.Pid, a.Subject)
	switch a.Hook {
	case hook.FileOpen:
		fmt.Fprintf(cmd.OutOrStdout(), " target=%s", a.TargetSubject)
	case hook.Setuid:
		fmt.Fprintf(cmd.OutOrStdout(), " uid=%d->%d gid=%d->%d", a.OldUID, a.NewUID, a.OldGID, a.NewGID)
	case hook.SocketBind:
		fmt.Fprintf(cmd.OutOrStdout(), " port=%d", a.Port)
	case hook.SocketConnect:
		if a.Family == 6 {
			fmt.Fprintf(cmd.OutOrStdout(), " addr=%x port=%d", a.AddrV6, a.Port)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), " addr=%d.%d.%d.%d port=%d",
				byte(a.AddrV4>>24), byte(a.AddrV4>>16), byte(a.AddrV4>>8), byte(a.AddrV4), a.Port)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
