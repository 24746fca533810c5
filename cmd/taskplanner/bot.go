package main

import (
	"context"

	"github.com/spf13/cobra"

	"task-planner/internal/app"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the deadline notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.RunBot(ctx)
			})
		},
	}
}
