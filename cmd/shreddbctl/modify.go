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
	modifyIDFlag              = "id"
	modifyPathFlag            = "path"
	modifyValueFlag           = "value"
	modifyRemoveConflictsFlag = "remove-conflicts"
)

var modifyFlags = map[string]cobraflags.Flag{
	modifyIDFlag: &cobraflags.StringFlag{
		Name:  modifyIDFlag,
		Value: "",
		Usage: "object id to modify (required)",
	},
	modifyPathFlag: &cobraflags.StringFlag{
		Name:  modifyPathFlag,
		Value: "",
		Usage: "dotted path to overwrite, e.g. tracks.0.title (empty means the whole object)",
	},
	modifyValueFlag: &cobraflags.StringFlag{
		Name:  modifyValueFlag,
		Value: "",
		Usage: "YAML document to write at path (required)",
	},
	modifyRemoveConflictsFlag: &cobraflags.BoolFlag{
		Name:  modifyRemoveConflictsFlag,
		Value: false,
		Usage: "delete a conflicting existing subtree instead of failing",
	},
}

func newModifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Overwrite the subtree at a path with a new YAML document",
		RunE: func(_ *cobra.Command, _ []string) error {
			id := modifyFlags[modifyIDFlag].GetString()
			if id == "" {
				return fmt.Errorf("--%s is required", modifyIDFlag)
			}
			raw := modifyFlags[modifyValueFlag].GetString()
			if raw == "" {
				return fmt.Errorf("--%s is required", modifyValueFlag)
			}
			var value any
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("parsing --%s: %w", modifyValueFlag, err)
			}
			path := parsePath(modifyFlags[modifyPathFlag].GetString())
			removeConflicts := modifyFlags[modifyRemoveConflictsFlag].GetBool()

			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				if err := conn.Modify(ctx, id, path, value, &removeConflicts); err != nil {
					return err
				}
				return printYAML(map[string]any{"ok": true})
			})
		},
	}
	cobraflags.RegisterMap(cmd, modifyFlags)
	return cmd
}
