package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/seedgraph/internal/backend"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load PATH...",
		Short: "Load YAML fixtures into the configured storage engine",
		Long: `Load graph elements from YAML fixture files into the configured storage
engine. A directory argument loads every .yaml and .yml file below it.
Elements that already exist have their properties replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(cmd)
			if err != nil {
				return err
			}
			store, err := backend.Open(cmd.Context(), cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := loadFixtures(cmd.Context(), store, args, logger)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d elements into %s\n", n, cfg.Storage.Engine)
			return err
		},
	}
}
