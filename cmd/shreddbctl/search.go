package main

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shredb/shredb"
	"github.com/shredb/shredb/session"
)

const searchConditionFlag = "condition"

var searchFlags = map[string]cobraflags.Flag{
	searchConditionFlag: &cobraflags.StringFlag{
		Name:  searchConditionFlag,
		Value: "",
		Usage: `YAML condition array, e.g. '[["title"], "==", "Station to Station"]' (empty matches every object)`,
	},
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List the ids of every object satisfying a condition",
		RunE: func(_ *cobra.Command, _ []string) error {
			raw := searchFlags[searchConditionFlag].GetString()
			var arg []any
			if raw != "" {
				if err := yaml.Unmarshal([]byte(raw), &arg); err != nil {
					return fmt.Errorf("parsing --%s: %w", searchConditionFlag, err)
				}
			}
			cond, err := session.ConditionFromYAML(arg)
			if err != nil {
				return err
			}

			return withConnection(func(ctx context.Context, conn *shreddb.Connection) error {
				ids, err := conn.Search(ctx, cond)
				if err != nil {
					return err
				}
				return printYAML(map[string]any{"ids": ids})
			})
		},
	}
	cobraflags.RegisterMap(cmd, searchFlags)
	return cmd
}
