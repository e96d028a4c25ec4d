package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/shredb/shredb"
)

const (
	readIDFlag    = "id"
	readPathFlag  = "path"
	readMasksFlag = "masks"
)

var readFlags = map[string]cobraflags.Flag{
	readIDFlag: &cobraflags.StringFlag{
		Name:  readIDFlag,
		Value: "",
		Usage: "object id to read (required)",
	},
	readPathFlag: &cobraflags.StringFlag{
		Name:  readPathFlag,
		Value: "",
		Usage: "dotted path to read (empty means the whole object)",
	},
	readMasksFlag: &cobraflags.StringFlag{
		Name:  readMasksFlag,
		Value: "",
		Usage: "comma-separated list of dotted mask paths to restrict the read to",
	},
}

func newReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Reconstruct the document stored at a path",
		RunE: func(_ *cobra.Command, _ []string) error {
			id := readFlags[readIDFlag].GetString()
			if id == "" {
				return fmt.Errorf("--%s is required", readIDFlag)
			}
			path := parsePath(readFlags[readPathFlag].GetString())
			masks := parsePaths(splitNonEmpty(readFlags[readMasksFlag].GetString()))

			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				doc, err := conn.Read(ctx, id, path, masks)
				if err != nil {
					return err
				}
				return printYAML(map[string]any{"value": doc})
			})
		},
	}
	cobraflags.RegisterMap(cmd, readFlags)
	return cmd
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
