package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shredb/shredb"
)

func newRepairCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Rebuild the specification table from the per-field tables on disk",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				if err := conn.Repair(ctx); err != nil {
					return err
				}
				return printYAML(map[string]any{"ok": true})
			})
		},
	}
}
