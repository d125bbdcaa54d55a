package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newSDLCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sdl",
		Short: "Print the schema in SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			built, err := a.build()
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), built.SDL())
				return err
			}
			return os.WriteFile(out, []byte(built.SDL()), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the SDL to a file instead of stdout")
	return cmd
}
