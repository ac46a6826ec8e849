package vaultctl

import (
	"context"
	"fmt"
	"time"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newPingCmd(env *Env) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that a server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append([]grpc.DialOption{
				grpc.WithTransportCredentials(insecure.NewCredentials()),
				grpc.WithUserAgent("vaultctl"),
			}, env.DialOptions...)

			conn, err := grpc.NewClient(addr, opts...)
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := gs.NewClient(conn).Call(ctx, "Ping", nil)
			if err != nil {
				return fmt.Errorf("ping %s: %w", addr, err)
			}
			success(env.Out, "%s %s", addr, resp.GetFields()["status"].GetStringValue())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
