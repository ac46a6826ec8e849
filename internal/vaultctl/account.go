package vaultctl

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/audit"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/mfa"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"github.com/spf13/cobra"
)

// Origin attached to events emitted by the CLI.
var cliOrigin = models.Origin{Address: "local", Agent: "vaultctl"}

var errPasswordMismatch = errors.New("passwords do not match")

func newCreateAccountCmd(env *Env) *cobra.Command {
	var (
		dsn        string
		email      string
		role       string
		bcryptCost int
	)

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an account of any role, including administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			password, err := readNewPassword(env)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			db, err := env.OpenDB(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			cfg := &config.Config{}
			cfg.LoadDefaults()
			if bcryptCost > 0 {
				cfg.BcryptCost = bcryptCost
			}

			logger := logging.Nop{}
			rm := env.Manager()
			trail := audit.NewTrail(rm.AuditEvents(db), logger)

			authService, err := services.NewAuthService(db, rm, cfg, mfa.New(cfg.MFAIssuer, cfg.MFASkew), trail, logger)
			if err != nil {
				return err
			}

			account, err := authService.Register(ctx, cliOrigin, services.RegisterInput{
				Email:              email,
				Password:           string(password),
				Role:               models.Role(role),
				AllowAdministrator: true,
			})
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}
			success(env.Out, "created %s account %s (%s)", account.Role, account.Email, account.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&role, "role", string(models.RoleOwner), "owner, reviewer or administrator")
	cmd.Flags().IntVar(&bcryptCost, "bcrypt-cost", 0, "override the bcrypt cost")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readNewPassword prompts twice without echo.
func readNewPassword(env *Env) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(env.Err, "Password: ")
	first, err := env.ReadPassword(fd)
	fmt.Fprintln(env.Err)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(env.Err, "Repeat password: ")
	second, err := env.ReadPassword(fd)
	fmt.Fprintln(env.Err)
	defer common.WipeByteArray(second)
	if err != nil {
		common.WipeByteArray(first)
		return nil, fmt.Errorf("read password: %w", err)
	}

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}
