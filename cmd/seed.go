package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"issuetracker/internal/bootstrap"
	"issuetracker/internal/bootstrap/logging"
	"issuetracker/internal/errs"
	"issuetracker/internal/usecase/issues"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample issues",
	Long:  "Insert sample issues. Without --file the built-in samples are used; --file accepts .yaml, .yml or .toml.",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *issues.Service) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		reset, _ := cmd.Flags().GetBool("reset")

		items := issues.DefaultSeed
		if file = strings.TrimSpace(file); file != "" {
			loaded, err := issues.LoadSeedFile(file)
			if err != nil {
				return errs.Wrap(err, "load seed file")
			}
			items = loaded
		}

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		result, err := svc.Seed(ctx, issues.SeedInput{Issues: items, Reset: reset})
		if err != nil {
			return errs.Wrap(err, "seed issues")
		}

		logging.Info(ctx, "seed finished",
			slog.Int64("removed", result.Removed),
			slog.Int("created", len(result.Created)),
		)
		out := cmd.OutOrStdout()
		if reset {
			if _, err := fmt.Fprintf(out, "removed %d issues\n", result.Removed); err != nil {
				return errs.Wrap(err, "write seed output")
			}
		}
		for _, item := range result.Created {
			if _, err := fmt.Fprintf(out, "created %s [%s] %s\n", item.ID, item.Status, item.Title); err != nil {
				return errs.Wrap(err, "write seed output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("file", "", "Seed file (.yaml, .yml or .toml)")
	seedCmd.Flags().Bool("reset", false, "Delete all issues before seeding")
}
