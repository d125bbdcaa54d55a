package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanpama/typegraph/internal/protoexport"
)

func newProtoCmd(a *app) *cobra.Command {
	var (
		out  string
		opts protoexport.Options
	)
	cmd := &cobra.Command{
		Use:   "proto",
		Short: "Describe the schema as a proto3 file",
		Long: `Describe the schema as a proto3 file. Types become messages and enums;
root fields and fields taking arguments become methods of one service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			built, err := a.build()
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			fd, err := protoexport.Build(built.Schema, opts)
			if err != nil {
				return fmt.Errorf("export proto: %w", err)
			}
			if out == "" {
				return protoexport.Render(cmd.OutOrStdout(), fd)
			}
			if err := protoexport.WriteFile(out, fd); err != nil {
				return err
			}
			a.log.WithField("path", fd.Path()).Info("proto file written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory; stdout when empty")
	cmd.Flags().StringVar(&opts.Package, "package", "typegraph.v1", "Proto package name")
	cmd.Flags().StringVar(&opts.Service, "service", "", "Service name (default \"Graph\")")
	return cmd
}
