package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <cache|trash|logs|large_files> [paths...]",
	Short: "Remove selected files of a category, or all of them",
	Long: `Removes the given paths, which must lie under the category's scan roots.
With --all the whole category is cleared. Log files are removed through pkexec.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: categoryNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := catalog.ParseCategory(args[0])
		if err != nil {
			return err
		}
		paths, err := absPaths(args[1:])
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		switch {
		case all && len(paths) > 0:
			return errors.New("--all cannot be combined with paths")
		case !all && len(paths) == 0 && category != catalog.Logs:
			return fmt.Errorf("no paths given; pass paths or --all to clear every %s file", category)
		}

		return run(cmd, func(ctx context.Context, a *app) error {
			if all {
				return a.report(a.cleaner.ClearAll(ctx, category))
			}
			return a.report(a.cleaner.ClearSelected(ctx, category, paths))
		})
	},
}

// absPaths resolves paths against the working directory
func absPaths(paths []string) ([]string, error) {
	abs := make([]string, 0, len(paths))
	for _, path := range paths {
		p, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		abs = append(abs, p)
	}
	return abs, nil
}

func init() {
	clearCmd.Flags().Bool("all", false, "clear the whole category")

	rootCmd.AddCommand(clearCmd)
}
