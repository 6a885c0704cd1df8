package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.store.Migrate(cmd.Context()); err != nil {
			return err
		}
		a.log.Info("schema applied").Str("driver", a.dialect.String()).Send()
		return nil
	},
}
