package main

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/shredb/shredb"
)

const (
	deleteIDFlag    = "id"
	deletePathsFlag = "paths"
)

var deleteFlags = map[string]cobraflags.Flag{
	deleteIDFlag: &cobraflags.StringFlag{
		Name:  deleteIDFlag,
		Value: "",
		Usage: "object id to delete from (required)",
	},
	deletePathsFlag: &cobraflags.StringFlag{
		Name:  deletePathsFlag,
		Value: "",
		Usage: "comma-separated list of dotted paths to delete (empty deletes the whole object)",
	},
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a path, several paths, or a whole object",
		RunE: func(_ *cobra.Command, _ []string) error {
			id := deleteFlags[deleteIDFlag].GetString()
			if id == "" {
				return fmt.Errorf("--%s is required", deleteIDFlag)
			}
			paths := parsePaths(splitNonEmpty(deleteFlags[deletePathsFlag].GetString()))

			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				if err := conn.DeleteMany(ctx, id, paths); err != nil {
					return err
				}
				return printYAML(map[string]any{"ok": true})
			})
		},
	}
	cobraflags.RegisterMap(cmd, deleteFlags)
	return cmd
}
