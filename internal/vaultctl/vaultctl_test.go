package vaultctl

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/memory"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func init() {
	color.NoColor = true
}

type failingMigrations struct {
	*memory.Manager
}

func (failingMigrations) RunMigrations(context.Context, *sql.DB) error {
	return errors.New("boom")
}

type testEnv struct {
	*Env
	out   *bytes.Buffer
	err   *bytes.Buffer
	mock  sqlmock.Sqlmock
	repos *memory.Manager
}

func newTestEnv(t *testing.T, passwords ...string) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := memory.NewManager()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	env := &Env{
		Out: out,
		Err: errOut,
		ReadPassword: func(int) ([]byte, error) {
			if len(passwords) == 0 {
				return nil, errors.New("no input")
			}
			p := passwords[0]
			passwords = passwords[1:]
			return []byte(p), nil
		},
		OpenDB:  func(context.Context, string) (*sql.DB, error) { return db, nil },
		Manager: func() repomanager.RepositoryManager { return repos },
	}
	return &testEnv{Env: env, out: out, err: errOut, mock: mock, repos: repos}
}

func run(env *Env, args ...string) int {
	return Execute(context.Background(), env, args)
}

func TestKeygen_PrintsDistinctKeys(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, 0, run(env.Env, "keygen"))

	var keys generatedKeys
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &keys))

	for _, k := range []string{keys.EncryptionKey, keys.SigningKey, keys.SecretKey} {
		b, err := hex.DecodeString(k)
		require.NoError(t, err)
		assert.Len(t, b, cryptox.KeySize)
	}
	assert.NotEqual(t, keys.EncryptionKey, keys.SigningKey)
	assert.NotEqual(t, keys.SigningKey, keys.SecretKey)

	loaded, err := cryptox.LoadKeys(cryptox.KeyConfig{EncryptionKey: keys.EncryptionKey, SigningKey: keys.SigningKey})
	require.NoError(t, err)
	assert.Empty(t, loaded.Derived)
}

func TestMigrate(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectClose()

	require.Equal(t, 0, run(env.Env, "migrate", "--dsn", "postgres://x"))
	assert.Contains(t, env.out.String(), "migrations applied")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestMigrate_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectClose()
	env.Manager = func() repomanager.RepositoryManager { return failingMigrations{env.repos} }

	assert.Equal(t, 1, run(env.Env, "migrate", "--dsn", "postgres://x"))
	assert.Contains(t, env.err.String(), "migrate: boom")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, 1, run(env.Env, "migrate"))
	assert.Contains(t, env.err.String(), "dsn")
}

func TestCreateAccount_Administrator(t *testing.T) {
	env := newTestEnv(t, "correct horse", "correct horse")
	env.mock.ExpectClose()

	code := run(env.Env, "create-account", "--dsn", "postgres://x",
		"--email", "Root@Example.com", "--role", "administrator", "--bcrypt-cost", "4")
	require.Equal(t, 0, code, env.err.String())
	assert.Contains(t, env.out.String(), "created administrator account root@example.com")

	account, err := env.repos.Accounts(nil).GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdministrator, account.Role)

	events := env.repos.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionRegisterSuccess, events[0].Action)
	assert.Equal(t, "vaultctl", events[0].Origin.Agent)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateAccount_PasswordMismatch(t *testing.T) {
	env := newTestEnv(t, "correct horse", "battery staple")

	assert.Equal(t, 1, run(env.Env, "create-account", "--dsn", "postgres://x", "--email", "a@example.com"))
	assert.Contains(t, env.err.String(), errPasswordMismatch.Error())
	assert.Empty(t, env.repos.Events())
}

func TestCreateAccount_WeakPasswordIsAudited(t *testing.T) {
	env := newTestEnv(t, "short", "short")
	env.mock.ExpectClose()

	assert.Equal(t, 1, run(env.Env, "create-account", "--dsn", "postgres://x",
		"--email", "a@example.com", "--bcrypt-cost", "4"))

	events := env.repos.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionRegisterFailure, events[0].Action)
}

func TestCreateAccount_ReadError(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, 1, run(env.Env, "create-account", "--dsn", "postgres://x", "--email", "a@example.com"))
	assert.Contains(t, env.err.String(), "read password")
}

func TestPing(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	srv := gs.NewGRPCServer("bufnet", logging.Nop{}, gs.Services{})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	env := newTestEnv(t)
	env.DialOptions = []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	}

	require.Equal(t, 0, run(env.Env, "ping", "--addr", "passthrough:///bufnet"), env.err.String())
	assert.Contains(t, env.out.String(), "passthrough:///bufnet OK")
}
