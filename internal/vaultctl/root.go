// Package vaultctl implements the operator CLI: key generation, schema
// migration, account provisioning and a connectivity check.
package vaultctl

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"google.golang.org/grpc"
)

// Env carries the process dependencies commands run against.
type Env struct {
	Out io.Writer
	Err io.Writer

	ReadPassword func(fd int) ([]byte, error)
	OpenDB       func(ctx context.Context, dsn string) (*sql.DB, error)
	Manager      func() repomanager.RepositoryManager

	// DialOptions are appended to the options used by ping.
	DialOptions []grpc.DialOption
}

func DefaultEnv() *Env {
	return &Env{
		Out:          os.Stdout,
		Err:          os.Stderr,
		ReadPassword: term.ReadPassword,
		OpenDB:       repomanager.Open,
		Manager:      repomanager.NewPostgresRepositoryManager,
	}
}

func NewRootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Operate a docvault deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Out)
	root.SetErr(env.Err)

	root.AddCommand(newKeygenCmd(env))
	root.AddCommand(newMigrateCmd(env))
	root.AddCommand(newCreateAccountCmd(env))
	root.AddCommand(newPingCmd(env))
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, env *Env, args []string) int {
	root := NewRootCmd(env)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		failure(env.Err, err)
		return 1
	}
	return 0
}
