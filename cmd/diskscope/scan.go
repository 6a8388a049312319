package main

import (
	"context"
	"fmt"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/reporter"
	"github.com/fenilsonani/diskscope/internal/response"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:       "scan <cache|trash|logs|large_files>",
	Short:     "List the files of a category, or summarize it",
	Long:      `Scans a category without making any changes.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: categoryNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := catalog.ParseCategory(args[0])
		if err != nil {
			return err
		}

		summary, _ := cmd.Flags().GetBool("summary")
		outputFile, _ := cmd.Flags().GetString("file")

		return run(cmd, func(ctx context.Context, a *app) error {
			var env response.Envelope
			if summary {
				env = a.service.Summary(ctx, category)
			} else {
				env = a.service.List(ctx, category)
			}

			if outputFile != "" {
				format, err := reporter.ParseFormat(viper.GetString("output"))
				if err != nil {
					return err
				}
				if err := reporter.SaveToFile(env, outputFile, format); err != nil {
					return fmt.Errorf("failed to save report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", outputFile)
				return env.Err()
			}

			return a.report(env)
		})
	},
}

func categoryNames() []string {
	var names []string
	for _, c := range catalog.Categories() {
		names = append(names, string(c))
	}
	return names
}

func init() {
	scanCmd.Flags().Bool("summary", false, "report only the total size and file count")
	scanCmd.Flags().String("file", "", "save the report to a file")

	rootCmd.AddCommand(scanCmd)
}
