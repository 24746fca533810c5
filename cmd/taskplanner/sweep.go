package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"task-planner/internal/app"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Check deadlines once, notify and exit",
		Long: `Run a single deadline sweep: every new or in-progress task whose due date
has passed is announced to TELEGRAM_CHAT_ID and marked overdue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.SweepOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked %d, notified %d, failed %d\n", res.Checked, res.Notified, res.Failed)
				return nil
			})
		},
	}
}
