package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"issuetracker/internal/errs"
	"issuetracker/internal/interfaces/httpapi"
)

// apiSchemas lists the JSON bodies of the issue API by name.
var apiSchemas = map[string]any{
	"create-issue-request": &httpapi.CreateIssueRequest{},
	"update-issue-request": &httpapi.UpdateIssueRequest{},
	"issue-response":       &httpapi.IssueResponse{},
	"issues-response":      &httpapi.IssuesResponse{},
	"error-response":       &httpapi.ErrorResponse{},
}

var schemaCmd = &cobra.Command{
	Use:       "schema <body>",
	Short:     "Print the JSON Schema of an API body",
	Args:      cobra.ExactArgs(1),
	ValidArgs: schemaNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, ok := apiSchemas[args[0]]
		if !ok {
			return fmt.Errorf("unknown body %q (one of: %s)", args[0], strings.Join(schemaNames(), ", "))
		}

		r := &jsonschema.Reflector{
			ExpandedStruct: true,
		}
		schema := r.Reflect(body)
		if err := writeJSON(cmd.OutOrStdout(), schema); err != nil {
			return errs.Wrap(err, "write schema")
		}
		return nil
	},
}

func schemaNames() []string {
	names := make([]string, 0, len(apiSchemas))
	for name := range apiSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
