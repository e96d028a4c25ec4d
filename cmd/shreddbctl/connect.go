package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shredb/shredb"
)

func newConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Open and immediately close a connection, to check connectivity",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withConnection(func(_ context.Context, _ *shreddb.Connection) error {
				return printYAML(map[string]any{"connected": true})
			})
		},
	}
}
