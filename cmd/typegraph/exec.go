package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newExecCmd(a *app) *cobra.Command {
	var (
		operation string
		variables string
	)
	cmd := &cobra.Command{
		Use:   "exec QUERY",
		Short: "Execute one operation and print the JSON result",
		Example: `  typegraph exec '{ books(genre: FICTION) { title author { name } } }'
  typegraph exec 'query($id: ID!) { book(id: $id) { title } }' --variables '{"id":"book-1"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var vars map[string]any
			if variables != "" {
				if err := json.UnmarshalFromString(variables, &vars); err != nil {
					return fmt.Errorf("invalid --variables: %w", err)
				}
			}
			built, err := a.build()
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			res := built.Execute(cmd.Context(), args[0], operation, vars)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("operation failed with %d error(s)", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "Operation name when the document holds several")
	cmd.Flags().StringVar(&variables, "variables", "", "Variables as a JSON object")
	return cmd
}
