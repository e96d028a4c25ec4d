package main

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shredb/shredb"
)

const createValueFlag = "value"

var createFlags = map[string]cobraflags.Flag{
	createValueFlag: &cobraflags.StringFlag{
		Name:  createValueFlag,
		Value: "",
		Usage: "YAML document to store as a brand-new object (required)",
	},
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a YAML document as a brand-new object",
		RunE: func(_ *cobra.Command, _ []string) error {
			raw := createFlags[createValueFlag].GetString()
			if raw == "" {
				return fmt.Errorf("--%s is required", createValueFlag)
			}
			var value any
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("parsing --%s: %w", createValueFlag, err)
			}
			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				id, err := conn.Create(ctx, value)
				if err != nil {
					return err
				}
				return printYAML(map[string]any{"id": id})
			})
		},
	}
	cobraflags.RegisterMap(cmd, createFlags)
	return cmd
}
