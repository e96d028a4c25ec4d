// Package main implements shreddbctl, a command-line client for a shredded
// document store: each subcommand opens one connection, issues a single
// request, prints the YAML-encoded result, and exits.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shredb/shredb"
	"github.com/shredb/shredb/config"
)

const envPrefix = "SHREDDB"

const (
	dialectFlag = "dialect"
	dsnFlag     = "dsn"
)

var globalFlags = map[string]cobraflags.Flag{
	dialectFlag: &cobraflags.StringFlag{
		Name:  dialectFlag,
		Value: "sqlite",
		Usage: "backend dialect: postgres, mysql, or sqlite",
	},
	dsnFlag: &cobraflags.StringFlag{
		Name:  dsnFlag,
		Value: ":memory:",
		Usage: "data source name passed to the backend driver",
	},
}

var rootCmd = &cobra.Command{
	Use:   "shreddbctl",
	Short: "Command-line client for a shredded document store",
	Long: `shreddbctl opens a connection to a shredded document store and runs a
single request against it: create, modify, insert, read, delete, search,
dump, or repair.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func main() {
	Execute()
}

// Execute adds every subcommand to the root command and runs it. It is
// called once by main.main.
func Execute() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)

	cobraflags.RegisterMap(rootCmd, globalFlags)

	rootCmd.AddCommand(newConnectCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newModifyCommand())
	rootCmd.AddCommand(newInsertCommand())
	rootCmd.AddCommand(newReadCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newDumpCommand())
	rootCmd.AddCommand(newRepairCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1) //revive:disable-line:deep-exit
	}
}

// openConnection opens a Connection using the --dialect/--dsn flags
// (overridable via SHREDDB_DIALECT/SHREDDB_DSN).
func openConnection() (*shreddb.Connection, error) {
	dialect := config.Dialect(viperOrFlag(dialectFlag))
	dsn := viperOrFlag(dsnFlag)
	return shreddb.Open(config.DefaultOptions(dialect, dsn))
}

func viperOrFlag(name string) string {
	if v := viper.GetString(name); v != "" {
		return v
	}
	return globalFlags[name].GetString()
}

// printYAML marshals v and writes it to stdout, used by every subcommand to
// report its result.
func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

// withConnection opens a connection, runs fn, and always closes it
// afterward, propagating fn's error over the close error.
func withConnection(fn func(ctx context.Context, conn *shreddb.Connection) error) error {
	conn, err := openConnection()
	if err != nil {
		return fmt.Errorf("opening connection: %w", err)
	}
	defer conn.Close()
	return fn(context.Background(), conn)
}
