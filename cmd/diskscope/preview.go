package main

import (
	"context"

	"github.com/fenilsonani/diskscope/internal/preview"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <path>",
	Short: "Show the type and content of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			return a.report(preview.New(a.fs).File(args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
