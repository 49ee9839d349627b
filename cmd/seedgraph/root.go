package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scrypster/seedgraph/internal/config"
	"github.com/scrypster/seedgraph/internal/logging"
)

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "seedgraph",
		Short: "seedgraph: seeded graph query engine",
		Long: `seedgraph stores a property graph of entities and edges and answers
seeded queries against it: given seeds, it returns the stored elements
that equal or are related to them, filtered by entity/edge inclusion,
edge directedness, direction and group.

Configuration is read from an optional YAML file, SEEDGRAPH_* environment
variables and command-line flags, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")
	pf.String("engine", "", "storage engine ("+joinEngines()+")")
	pf.String("sqlite-path", "", "SQLite database file")
	pf.String("postgres-dsn", "", "PostgreSQL connection string")
	pf.String("badger-dir", "", "Badger data directory")
	pf.String("neo4j-uri", "", "Neo4j connection URI")

	bind(a.v, pf.Lookup("log-level"), "log.level")
	bind(a.v, pf.Lookup("log-format"), "log.format")
	bind(a.v, pf.Lookup("engine"), "storage.engine")
	bind(a.v, pf.Lookup("sqlite-path"), "storage.sqlite.path")
	bind(a.v, pf.Lookup("postgres-dsn"), "storage.postgres.dsn")
	bind(a.v, pf.Lookup("badger-dir"), "storage.badger.dir")
	bind(a.v, pf.Lookup("neo4j-uri"), "storage.neo4j.uri")

	rootCmd.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newLoadCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configuration and builds the logger. Logs go to the
// command's stderr so stdout stays clean for query output.
func (a *app) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the seedgraph version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "seedgraph", version)
			return err
		},
	}
}

func bind(v *viper.Viper, f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func joinEngines() string {
	return strings.Join(config.Engines, ", ")
}
