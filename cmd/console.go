package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"issuetracker/internal/errs"
	"issuetracker/internal/usecase/issueconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive issue console",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, _ []string, deps clientDeps) error {
		status, _ := cmd.Flags().GetString("status")

		model := issueconsole.NewModel(cmd.Context(), deps.Cache, deps.Muts, issueconsole.Options{Status: status})
		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run issue console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("status", "", "Initial filter tab (OPEN|IN_PROGRESS|DONE)")
}
