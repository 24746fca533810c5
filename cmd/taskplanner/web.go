package main

import (
	"context"

	"github.com/spf13/cobra"

	"task-planner/internal/app"
)

func webCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Run the web interface only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.RunWeb(ctx)
			})
		},
	}
}
