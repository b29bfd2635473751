package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
	"issuetracker/internal/interfaces/httpapi"
	"issuetracker/internal/usecase/issueclient"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues through the API (client.base_url)",
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues, newest first",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, _ []string, deps clientDeps) error {
		status, _ := cmd.Flags().GetString("status")
		res, err := issueclient.UseIssues(deps.Cache, status).Load(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "list issues")
		}
		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), httpapi.IssuesResponse{Issues: res.Issues})
		}
		return writeIssueTable(cmd.OutOrStdout(), res.Issues)
	}),
}

var issueShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one issue",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(cmd *cobra.Command, args []string, deps clientDeps) error {
		res, err := issueclient.UseIssue(deps.Cache, args[0]).Load(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "show issue")
		}
		if res.Issue == nil {
			return fmt.Errorf("issue %q returned no data", args[0])
		}
		return writeIssue(cmd, *res.Issue)
	}),
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, _ []string, deps clientDeps) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")

		created, err := deps.Muts.CreateIssue(cmd.Context(), httpapi.CreateIssueRequest{
			Title:       title,
			Description: description,
			Status:      status,
		})
		if err != nil {
			return errs.Wrap(err, "create issue")
		}
		return writeIssue(cmd, created)
	}),
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update title, description or status of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(cmd *cobra.Command, args []string, deps clientDeps) error {
		var req httpapi.UpdateIssueRequest
		req.Title = changedString(cmd, "title")
		req.Description = changedString(cmd, "description")
		req.Status = changedString(cmd, "status")

		updated, err := deps.Muts.UpdateIssue(cmd.Context(), args[0], req)
		if err != nil {
			return errs.Wrap(err, "update issue")
		}
		return writeIssue(cmd, updated)
	}),
}

var issueDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an issue permanently",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(cmd *cobra.Command, args []string, deps clientDeps) error {
		if err := deps.Muts.DeleteIssue(cmd.Context(), args[0]); err != nil {
			return errs.Wrap(err, "delete issue")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0]); err != nil {
			return errs.Wrap(err, "write delete output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.AddCommand(issueListCmd, issueShowCmd, issueCreateCmd, issueUpdateCmd, issueDeleteCmd)
	issueCmd.PersistentFlags().Bool("json", false, "Print the API JSON body")

	issueListCmd.Flags().String("status", "", "Filter by status (OPEN|IN_PROGRESS|DONE, case-insensitive)")

	issueCreateCmd.Flags().String("title", "", "Issue title")
	issueCreateCmd.Flags().String("description", "", "Issue description")
	issueCreateCmd.Flags().String("status", "", "Initial status (default OPEN)")

	issueUpdateCmd.Flags().String("title", "", "New title")
	issueUpdateCmd.Flags().String("description", "", "New description")
	issueUpdateCmd.Flags().String("status", "", "New status")
}

// changedString returns the flag value only when it was given explicitly, so
// omitted flags stay out of the partial update.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetString(name)
	return &value
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errs.Wrap(err, "write json output")
	}
	return nil
}

func writeIssue(cmd *cobra.Command, item domainissue.Issue) error {
	out := cmd.OutOrStdout()
	if asJSON(cmd) {
		return writeJSON(out, httpapi.IssueResponse{Issue: item})
	}
	_, err := fmt.Fprintf(out, "ID:          %s\nTitle:       %s\nStatus:      %s\nDescription: %s\nCreated:     %s\nUpdated:     %s\n",
		item.ID,
		item.Title,
		item.Status,
		item.Description,
		item.CreatedAt.Local().Format(time.RFC3339),
		item.UpdatedAt.Local().Format(time.RFC3339),
	)
	if err != nil {
		return errs.Wrap(err, "write issue output")
	}
	return nil
}

func writeIssueTable(w io.Writer, items []domainissue.Issue) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No issues found")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "TITLE", "CREATED")
	for _, item := range items {
		t.Row(item.ID, string(item.Status), item.Title, item.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return errs.Wrap(err, "write issue table")
	}
	return nil
}
