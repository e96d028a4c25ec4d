package main

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shredb/shredb"
)

const (
	insertIDFlag              = "id"
	insertPathFlag            = "path"
	insertValueFlag           = "value"
	insertRemoveConflictsFlag = "remove-conflicts"
)

var insertFlags = map[string]cobraflags.Flag{
	insertIDFlag: &cobraflags.StringFlag{
		Name:  insertIDFlag,
		Value: "",
		Usage: "object id to insert into (required)",
	},
	insertPathFlag: &cobraflags.StringFlag{
		Name:  insertPathFlag,
		Value: "",
		Usage: "dotted path to the list, ending in an index or * to append",
	},
	insertValueFlag: &cobraflags.StringFlag{
		Name:  insertValueFlag,
		Value: "",
		Usage: "YAML value to insert (required)",
	},
	insertRemoveConflictsFlag: &cobraflags.BoolFlag{
		Name:  insertRemoveConflictsFlag,
		Value: false,
		Usage: "delete a conflicting existing subtree instead of failing",
	},
}

func newInsertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert a YAML value into a list",
		RunE: func(_ *cobra.Command, _ []string) error {
			id := insertFlags[insertIDFlag].GetString()
			if id == "" {
				return fmt.Errorf("--%s is required", insertIDFlag)
			}
			raw := insertFlags[insertValueFlag].GetString()
			if raw == "" {
				return fmt.Errorf("--%s is required", insertValueFlag)
			}
			var value any
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("parsing --%s: %w", insertValueFlag, err)
			}
			path := parsePath(insertFlags[insertPathFlag].GetString())
			removeConflicts := insertFlags[insertRemoveConflictsFlag].GetBool()

			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				if err := conn.Insert(ctx, id, path, value, &removeConflicts); err != nil {
					return err
				}
				return printYAML(map[string]any{"ok": true})
			})
		},
	}
	cobraflags.RegisterMap(cmd, insertFlags)
	return cmd
}
