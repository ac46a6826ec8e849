package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/audit"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vaultUsers struct {
	owner, reviewer, admin models.Principal
}

func (f *fixture) users(t *testing.T) vaultUsers {
	return vaultUsers{
		owner:    f.register(t, "owner@example.com", models.RoleOwner),
		reviewer: f.register(t, "reviewer@example.com", models.RoleReviewer),
		admin:    f.register(t, "admin@example.com", models.RoleAdministrator),
	}
}

func (f *fixture) upload(t *testing.T, p models.Principal) *models.Document {
	t.Helper()
	f.expectTx(true)
	doc, err := f.docs.Upload(context.Background(), testOrigin, p, UploadInput{
		Name: "scan.pdf", MimeType: "application/pdf", Content: pdfContent,
	})
	require.NoError(t, err)
	return doc
}

func assertDenied(t *testing.T, err error, reason policy.Reason) {
	t.Helper()
	require.ErrorIs(t, err, common.ErrAuthorization)
	var deny *policy.DenyError
	require.True(t, errors.As(err, &deny))
	assert.Equal(t, reason, deny.Reason)
}

func TestVault_Scenarios(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)

	// 1. upload keeps the digest of the exact input
	doc := f.upload(t, u.owner)
	sum := sha256.Sum256(pdfContent)
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.ContentHash)
	assert.Equal(t, int64(len(pdfContent)), doc.SizeBytes)
	assert.Equal(t, 1, f.count(models.ActionFileUpload))

	stored, err := f.blobs.Get(ctx, doc.StorageKey)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(stored, pdfContent[:8]), "blob must be ciphertext")

	// 2. reviewer without a grant
	_, err = f.docs.Download(ctx, testOrigin, u.reviewer, doc.ID)
	assertDenied(t, err, policy.ReasonNotShared)
	assert.Equal(t, 1, f.count(models.ActionUnauthorizedAccess))

	// 3. share and retrieve
	require.NoError(t, f.docs.Share(ctx, testOrigin, u.owner, doc.ID, u.reviewer.AccountID))
	accessBefore := f.count(models.ActionFileAccess)
	got, err := f.docs.Download(ctx, testOrigin, u.reviewer, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, pdfContent, got.Data)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.Equal(t, "scan.pdf", got.OriginalName)
	assert.Equal(t, accessBefore+1, f.count(models.ActionFileAccess))

	// 6. administrator sees metadata, never content
	listed, err := f.docs.List(ctx, u.admin)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	meta, err := f.docs.Get(ctx, testOrigin, u.admin, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, meta.ID)
	_, err = f.docs.Download(ctx, testOrigin, u.admin, doc.ID)
	assertDenied(t, err, policy.ReasonAdminForbidden)

	// 4. flip one ciphertext byte past the header
	require.True(t, f.blobs.Tamper(doc.StorageKey, func(b []byte) []byte {
		b[32+3] ^= 0x01
		return b
	}))
	_, err = f.docs.Download(ctx, testOrigin, u.reviewer, doc.ID)
	require.ErrorIs(t, err, common.ErrIntegrity)
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "document content is corrupted or has been tampered with", ie.Message())
	assert.Equal(t, 1, f.count(models.ActionFileTampered))
	td := f.last(t, models.ActionFileTampered).(audit.TamperDetails)
	assert.Equal(t, CauseDecryption, td.Cause)
	assert.Equal(t, doc.ID, td.DocumentID)
}

func TestVault_SignatureMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)
	doc := f.upload(t, u.owner)

	forged, err := f.engine.Encrypt(append([]byte(nil), pngContent...))
	require.NoError(t, err)
	f.blobs.Tamper(doc.StorageKey, func([]byte) []byte { return forged })

	_, err = f.docs.Download(ctx, testOrigin, u.owner, doc.ID)
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, CauseSignature, ie.Cause)
	assert.Contains(t, ie.Message(), "CRITICAL")
	td := f.last(t, models.ActionFileTampered).(audit.TamperDetails)
	assert.Equal(t, CauseSignature, td.Cause)
}

func TestVault_RevokeBlocksAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)
	doc := f.upload(t, u.owner)

	require.NoError(t, f.docs.Share(ctx, testOrigin, u.owner, doc.ID, u.reviewer.AccountID))
	require.NoError(t, f.docs.Share(ctx, testOrigin, u.owner, doc.ID, u.reviewer.AccountID))

	shared, err := f.docs.List(ctx, u.reviewer)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, []string{u.reviewer.AccountID}, shared[0].SharedWith)

	_, err = f.docs.Download(ctx, testOrigin, u.reviewer, doc.ID)
	require.NoError(t, err)

	require.NoError(t, f.docs.Revoke(ctx, testOrigin, u.owner, doc.ID, u.reviewer.AccountID))
	require.NoError(t, f.docs.Revoke(ctx, testOrigin, u.owner, doc.ID, u.reviewer.AccountID))

	_, err = f.docs.Download(ctx, testOrigin, u.reviewer, doc.ID)
	assertDenied(t, err, policy.ReasonNotShared)

	d := f.last(t, models.ActionFileAccess).(audit.FileDetails)
	assert.Equal(t, "revoke", d.Operation)
}

func TestVault_ShareRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)
	other := f.register(t, "other@example.com", models.RoleOwner)
	doc := f.upload(t, u.owner)

	rejected := []struct {
		target string
		reason string
	}{
		{other.AccountID, "not a reviewer"},
		{"not-a-uuid", "malformed reviewer id"},
		{"7a0c7c39-4d3c-4a51-9a56-2f3f0e4b61a1", "unknown account"},
	}
	for _, tc := range rejected {
		before := f.count(models.ActionFileAccess)
		assert.ErrorIs(t, f.docs.Share(ctx, testOrigin, u.owner, doc.ID, tc.target), common.ErrNotReviewer)
		require.Equal(t, before+1, f.count(models.ActionFileAccess), tc.reason)

		d := f.last(t, models.ActionFileAccess).(audit.FileDetails)
		assert.Equal(t, "share", d.Operation)
		assert.Equal(t, doc.ID, d.DocumentID)
		assert.Equal(t, tc.target, d.Extra["reviewer_id"])
		assert.Equal(t, tc.reason, d.Extra["rejected"])
	}

	docs, err := f.docs.List(ctx, u.reviewer)
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected shares grant nothing")

	assertDenied(t, f.docs.Share(ctx, testOrigin, other, doc.ID, u.reviewer.AccountID), policy.ReasonNotOwner)
	assertDenied(t, f.docs.Share(ctx, testOrigin, u.admin, doc.ID, u.reviewer.AccountID), policy.ReasonAdminForbidden)

	require.NoError(t, f.docs.Share(ctx, testOrigin, u.owner, doc.ID, u.reviewer.AccountID))
	assertDenied(t, f.docs.Share(ctx, testOrigin, u.reviewer, doc.ID, u.reviewer.AccountID), policy.ReasonNotOwner)

	_, err = f.docs.Get(ctx, testOrigin, other, doc.ID)
	assertDenied(t, err, policy.ReasonNotOwner)

	d := f.last(t, models.ActionFileAccess).(audit.FileDetails)
	assert.NotContains(t, d.Extra, "rejected")

	docs, err = f.docs.List(ctx, models.Principal{AccountID: u.reviewer.AccountID, Role: "guest"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestVault_UploadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)

	cases := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"empty", UploadInput{Name: "a.pdf", MimeType: "application/pdf"}, common.ErrEmptyContent},
		{"no name", UploadInput{Name: " ", MimeType: "application/pdf", Content: pdfContent}, common.ErrValidation},
		{"type not allowed", UploadInput{Name: "a.txt", MimeType: "text/plain", Content: []byte("hello")}, common.ErrUnsupportedMimeType},
		{"content mismatch", UploadInput{Name: "a.png", MimeType: "image/png", Content: pdfContent}, common.ErrMimeTypeMismatch},
		{"too large", UploadInput{Name: "a.pdf", MimeType: "application/pdf", Content: append(append([]byte(nil), pdfContent...), make([]byte, 5<<20)...)}, common.ErrContentTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.docs.Upload(ctx, testOrigin, u.owner, tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	f.expectTx(true)
	doc, err := f.docs.Upload(ctx, testOrigin, u.owner, UploadInput{Name: "../../x/photo.png", MimeType: "IMAGE/PNG", Content: pngContent})
	require.NoError(t, err)
	assert.Equal(t, "photo.png", doc.OriginalName)
	assert.Equal(t, "image/png", doc.MimeType)

	_, err = f.docs.Upload(ctx, testOrigin, u.reviewer, UploadInput{Name: "a.pdf", MimeType: "application/pdf", Content: pdfContent})
	assertDenied(t, err, policy.ReasonNotOwner)
	_, err = f.docs.Upload(ctx, testOrigin, u.admin, UploadInput{Name: "a.pdf", MimeType: "application/pdf", Content: pdfContent})
	assertDenied(t, err, policy.ReasonAdminForbidden)
	assert.Equal(t, 2, f.count(models.ActionUnauthorizedAccess))
	assert.Equal(t, 1, f.count(models.ActionFileUpload))
}

func TestVault_UploadBlobFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	u := f.users(t)
	f.blobs.PutErr = errors.New("bucket unavailable")

	f.expectTx(false)
	_, err := f.docs.Upload(context.Background(), testOrigin, u.owner, UploadInput{
		Name: "scan.pdf", MimeType: "application/pdf", Content: pdfContent,
	})
	assert.ErrorIs(t, err, common.ErrPersistence)
	assert.Zero(t, f.count(models.ActionFileUpload))
	assert.Zero(t, f.blobs.Len())
}

func TestVault_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)
	doc := f.upload(t, u.owner)

	assertDenied(t, f.docs.Delete(ctx, testOrigin, u.reviewer, doc.ID), policy.ReasonNotOwner)

	f.expectTx(true)
	require.NoError(t, f.docs.Delete(ctx, testOrigin, u.owner, doc.ID))
	assert.Zero(t, f.blobs.Len())

	_, err := f.docs.Get(ctx, testOrigin, u.owner, doc.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = f.docs.Download(ctx, testOrigin, u.owner, "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVault_AuditFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	u := f.users(t)
	f.repos.AuditEventsErr = errors.New("audit table locked")

	doc := f.upload(t, u.owner)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, int64(1), f.trail.Dropped())
}

func TestAuditService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.users(t)
	f.upload(t, u.owner)

	all, err := f.audit.List(ctx, u.admin)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, models.ActionFileUpload, all[0].Action)

	own, err := f.audit.List(ctx, u.owner)
	require.NoError(t, err)
	require.Len(t, own, 2)
	for _, e := range own {
		assert.Equal(t, u.owner.AccountID, *e.ActorID)
	}
}
