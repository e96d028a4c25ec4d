package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shredb/shredb"
)

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Read every stored object in full",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				entries, err := conn.Dump(ctx)
				if err != nil {
					return err
				}
				out := make([]map[string]any, len(entries))
				for i, e := range entries {
					out[i] = map[string]any{"id": e.ID, "value": e.Doc}
				}
				return printYAML(map[string]any{"entries": out})
			})
		},
	}
}
