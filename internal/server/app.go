// Package server wires configuration, keys, storage and services together
// and runs the gRPC server until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/audit"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/mfa"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"github.com/dmitrijs2005/docvault/internal/server/storage/blobs"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

// SessionPurgeInterval is how often expired session rows are removed.
const SessionPurgeInterval = 10 * time.Minute

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	auth   *services.AuthService
	grpc   *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	proxies, err := gs.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil, err
	}

	keys, err := loadKeys(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	engine, err := cryptox.NewEngine(keys.Encryption)
	if err != nil {
		return nil, fmt.Errorf("encryption engine: %w", err)
	}
	signer, err := cryptox.NewSigner(keys.Signing)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := blobs.NewS3Store(ctx, blobs.S3Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	trail := audit.NewTrail(rm.AuditEvents(db), logger)
	totp := mfa.New(c.MFAIssuer, c.MFASkew)

	authService, err := services.NewAuthService(db, rm, c, totp, trail, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	srv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Services{
		Auth:      authService,
		MFA:       services.NewMFAService(db, rm, totp, trail, logger),
		Documents: services.NewDocumentService(db, rm, c, store, engine, signer, trail, logger),
		Audit:     services.NewAuditService(db, rm),
	},
		gs.WithRequestRateLimit(gs.RateLimit{Requests: c.RequestRateLimit, Window: c.RequestRateWindow}),
		gs.WithLoginRateLimit(gs.RateLimit{Requests: c.LoginRateLimit, Window: c.LoginRateWindow}),
		gs.WithTrustedProxies(proxies),
	)

	return &App{config: c, logger: logger, db: db, auth: authService, grpc: srv}, nil
}

// loadKeys fails unless both keys are provisioned or derivation is
// explicitly allowed; each derived key is reported.
func loadKeys(ctx context.Context, c *config.Config, logger logging.Logger) (*cryptox.Keys, error) {
	keys, err := cryptox.LoadKeys(cryptox.KeyConfig{
		EncryptionKey:  c.EncryptionKey,
		SigningKey:     c.SigningKey,
		FallbackSecret: c.KeyDerivationSecret,
		AllowDerived:   c.AllowDerivedKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	for _, purpose := range keys.Derived {
		logger.Warn(ctx, "using key derived from fallback secret; not for production", "purpose", purpose)
	}
	return keys, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(SessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.auth.PurgeExpiredSessions(ctx)
			if err != nil {
				app.logger.Error(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeSessions(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}
