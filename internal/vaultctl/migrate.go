package vaultctl

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(env *Env) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := env.OpenDB(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := env.Manager().RunMigrations(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			success(env.Out, "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}
