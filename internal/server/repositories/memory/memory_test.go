package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rule = accounts.LockoutRule{Threshold: 3, Base: time.Minute, Max: time.Hour}

func newAccount(t *testing.T, m *Manager, email string, role models.Role) *models.Account {
	t.Helper()
	a, err := m.Accounts(nil).Create(context.Background(), &models.Account{Email: email, PasswordHash: "h", Role: role})
	require.NoError(t, err)
	return a
}

func TestAccounts_CreateDuplicate(t *testing.T) {
	m := NewManager()
	newAccount(t, m, "a@x.io", models.RoleOwner)

	_, err := m.Accounts(nil).Create(context.Background(), &models.Account{Email: "a@x.io", Role: models.RoleOwner})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = m.Accounts(nil).GetByEmail(context.Background(), "nobody@x.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAccounts_RecordFailureLocks(t *testing.T) {
	m := NewManager()
	a := newAccount(t, m, "a@x.io", models.RoleOwner)
	repo := m.Accounts(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i < 3; i++ {
		res, err := repo.RecordFailure(context.Background(), a.ID, now, rule)
		require.NoError(t, err)
		assert.Equal(t, i, res.FailedAttempts)
		assert.False(t, res.LockedNow())
	}

	res, err := repo.RecordFailure(context.Background(), a.ID, now, rule)
	require.NoError(t, err)
	require.True(t, res.LockedNow())
	assert.Equal(t, now.Add(time.Minute), *res.LockUntil)

	_, err = repo.RecordFailure(context.Background(), a.ID, now.Add(30*time.Second), rule)
	assert.ErrorIs(t, err, common.ErrAccountLocked)

	require.NoError(t, repo.RecordSuccess(context.Background(), a.ID))
	got, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedAttempts)
	assert.Nil(t, got.LockUntil)
}

func TestAccounts_RecordFailureConcurrent(t *testing.T) {
	m := NewManager()
	a := newAccount(t, m, "a@x.io", models.RoleOwner)
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	locks := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Accounts(nil).RecordFailure(context.Background(), a.ID, now, rule)
			if err != nil {
				return
			}
			if res.LockedNow() {
				mu.Lock()
				locks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, locks)
	got, _ := m.Accounts(nil).GetByID(context.Background(), a.ID)
	assert.Equal(t, 3, got.FailedAttempts)
}

func TestAccounts_MFALifecycle(t *testing.T) {
	m := NewManager()
	a := newAccount(t, m, "a@x.io", models.RoleOwner)
	repo := m.Accounts(nil)
	ctx := context.Background()

	assert.ErrorIs(t, repo.EnableMFA(ctx, a.ID, 1), common.ErrMFANotInitiated)

	require.NoError(t, repo.SetMFASecret(ctx, a.ID, &models.MFASecret{Base32: "ABC"}))
	require.NoError(t, repo.EnableMFA(ctx, a.ID, 10))
	assert.ErrorIs(t, repo.SetMFASecret(ctx, a.ID, &models.MFASecret{Base32: "DEF"}), common.ErrMFAAlreadyEnabled)

	ok, err := repo.ConsumeMFAStep(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ConsumeMFAStep(ctx, a.ID, 11)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := repo.GetByID(ctx, a.ID)
	assert.True(t, got.MFAEnabled)
	assert.Equal(t, int64(11), *got.MFALastStep)
	assert.Equal(t, "ABC", got.MFASecret.Base32)
}

func TestDocuments_ShareRevokeList(t *testing.T) {
	m := NewManager()
	repo := m.Documents(nil)
	ctx := context.Background()

	d, err := repo.Create(ctx, &models.Document{OwnerID: "o1", OriginalName: "a.pdf"})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)

	require.NoError(t, repo.Share(ctx, d.ID, "r1"))
	require.NoError(t, repo.Share(ctx, d.ID, "r1"))

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, got.SharedWith)

	shared, err := repo.ListSharedWith(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, shared, 1)

	require.NoError(t, repo.Revoke(ctx, d.ID, "r1"))
	require.NoError(t, repo.Revoke(ctx, d.ID, "r1"))
	shared, err = repo.ListSharedWith(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, shared)

	owned, err := repo.ListByOwner(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	require.NoError(t, repo.Delete(ctx, d.ID))
	assert.ErrorIs(t, repo.Delete(ctx, d.ID), common.ErrorNotFound)
	_, err = repo.Get(ctx, d.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuditEvents_NewestFirst(t *testing.T) {
	m := NewManager()
	repo := m.AuditEvents(nil)
	ctx := context.Background()
	alice, bob := "alice", "bob"

	for i := 0; i < 5; i++ {
		actor := &alice
		if i%2 == 1 {
			actor = &bob
		}
		require.NoError(t, repo.Append(ctx, &models.AuditEvent{ID: string(rune('a' + i)), ActorID: actor, Action: models.ActionLoginSuccess}))
	}

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e", recent[0].ID)
	assert.Equal(t, "d", recent[1].ID)

	mine, err := repo.ListByActor(ctx, bob, 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "d", mine[0].ID)
	assert.Equal(t, "b", mine[1].ID)

	assert.Len(t, m.Events(), 5)
}

func TestSessions_Lifecycle(t *testing.T) {
	m := NewManager()
	repo := m.Sessions(nil)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.Session{ID: "s1", AccountID: "a", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Session{ID: "s2", AccountID: "a", ExpiresAt: now.Add(-time.Hour)}))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := repo.Find(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", s.AccountID)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Find(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestManager_InjectedErrors(t *testing.T) {
	m := NewManager()
	boom := errors.New("boom")
	m.AuditEventsErr = boom

	err := m.AuditEvents(nil).Append(context.Background(), &models.AuditEvent{})
	assert.ErrorIs(t, err, boom)

	m.AuditEventsErr = nil
	assert.NoError(t, m.AuditEvents(nil).Append(context.Background(), &models.AuditEvent{}))
}
