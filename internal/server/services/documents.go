package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/audit"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/policy"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docvault/internal/server/storage/blobs"
)

// AllowedMimeTypes is the upload allow-list.
var AllowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

var errMissingName = fmt.Errorf("%w: document name is required", common.ErrValidation)

type UploadInput struct {
	Name     string
	MimeType string
	Content  []byte
}

// Content is a decrypted, verified document.
type Content struct {
	Data         []byte
	MimeType     string
	OriginalName string
}

// DocumentService stores documents encrypted and signed, and enforces the
// access policy on every read and share.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobs.Store
	engine      *cryptox.Engine
	signer      *cryptox.Signer
	trail       *audit.Trail
	logger      logging.Logger

	maxUploadBytes int64
	now            func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, store blobs.Store,
	engine *cryptox.Engine, signer *cryptox.Signer, trail *audit.Trail, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:             db,
		repomanager:    m,
		blobs:          store,
		engine:         engine,
		signer:         signer,
		trail:          trail,
		logger:         logger.With("module", "documents"),
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            time.Now,
	}
}

// Upload validates, signs and encrypts content, then stores the metadata row
// and the ciphertext blob together.
func (s *DocumentService) Upload(ctx context.Context, origin models.Origin, p models.Principal, in UploadInput) (*models.Document, error) {
	if err := s.enforce(ctx, origin, p, "", policy.ActionUpload, policy.AuthorizeUpload(p)); err != nil {
		return nil, err
	}

	name, mimeType, err := s.validate(in)
	if err != nil {
		s.logger.Warn(ctx, "upload rejected", "account_id", p.AccountID, "error", err)
		return nil, err
	}

	hash, signature := s.signer.Sign(in.Content)
	blob, err := s.engine.Encrypt(in.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt: %v", common.ErrorInternal, err)
	}

	doc := &models.Document{
		OwnerID:      p.AccountID,
		OriginalName: name,
		MimeType:     mimeType,
		SizeBytes:    int64(len(in.Content)),
		StorageKey:   blobs.NewKey(p.AccountID, s.now().UTC()),
		ContentHash:  hash,
		Signature:    signature,
	}

	stored := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Documents(tx).Create(ctx, doc)
		if err != nil {
			return err
		}
		doc = created
		if err := s.blobs.Put(ctx, doc.StorageKey, blob); err != nil {
			return err
		}
		stored = true
		return nil
	})
	if err != nil {
		if stored {
			// commit failed after the blob landed
			if derr := s.blobs.Delete(ctx, doc.StorageKey); derr != nil {
				s.logger.Error(ctx, "orphaned blob", "storage_key", doc.StorageKey, "error", derr)
			}
		}
		return nil, storeErr(err)
	}

	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     models.ActionFileUpload,
		Origin:     origin,
		Details: audit.FileDetails{
			DocumentID: doc.ID,
			FileName:   doc.OriginalName,
			MimeType:   doc.MimeType,
			SizeBytes:  doc.SizeBytes,
			Operation:  "upload",
		},
	})
	return doc, nil
}

func (s *DocumentService) validate(in UploadInput) (name, mimeType string, err error) {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(in.Name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "", "", errMissingName
	}
	if len(in.Content) == 0 {
		return "", "", common.ErrEmptyContent
	}
	if int64(len(in.Content)) > s.maxUploadBytes {
		return "", "", common.ErrContentTooLarge
	}

	mimeType = strings.ToLower(strings.TrimSpace(in.MimeType))
	if !AllowedMimeTypes[mimeType] {
		return "", "", common.ErrUnsupportedMimeType
	}
	if !mimetype.Detect(in.Content).Is(mimeType) {
		return "", "", common.ErrMimeTypeMismatch
	}
	return name, mimeType, nil
}

// Download returns the plaintext after the access check, authenticated
// decryption and signature verification all pass.
func (s *DocumentService) Download(ctx context.Context, origin models.Origin, p models.Principal, documentID string) (*Content, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.enforce(ctx, origin, p, doc.ID, policy.ActionRead, policy.Authorize(p, doc, policy.ActionRead)); err != nil {
		return nil, err
	}

	blob, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, storeErr(err)
	}

	plaintext, err := s.engine.Decrypt(blob)
	if err != nil {
		return nil, s.tampered(ctx, origin, p, doc, CauseDecryption, err)
	}
	if !s.signer.Verify(plaintext, doc.ContentHash, doc.Signature) {
		return nil, s.tampered(ctx, origin, p, doc, CauseSignature, cryptox.ErrSignatureMismatch)
	}

	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     models.ActionFileAccess,
		Origin:     origin,
		Details: audit.FileDetails{
			DocumentID: doc.ID,
			FileName:   doc.OriginalName,
			MimeType:   doc.MimeType,
			SizeBytes:  doc.SizeBytes,
			Operation:  "download",
		},
	})
	return &Content{Data: plaintext, MimeType: doc.MimeType, OriginalName: doc.OriginalName}, nil
}

func (s *DocumentService) tampered(ctx context.Context, origin models.Origin, p models.Principal, doc *models.Document, cause string, err error) error {
	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     models.ActionFileTampered,
		Origin:     origin,
		Details:    audit.TamperDetails{DocumentID: doc.ID, Cause: cause},
	})
	return &IntegrityError{DocumentID: doc.ID, Cause: cause, Err: err}
}

// Share grants reviewerID read access. Sharing twice is a no-op.
func (s *DocumentService) Share(ctx context.Context, origin models.Origin, p models.Principal, documentID, reviewerID string) error {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.enforce(ctx, origin, p, doc.ID, policy.ActionShare, policy.Authorize(p, doc, policy.ActionShare)); err != nil {
		return err
	}

	if _, err := uuid.Parse(reviewerID); err != nil {
		return s.shareRejected(ctx, origin, p, doc, reviewerID, "malformed reviewer id")
	}
	target, err := s.repomanager.Accounts(s.db).GetByID(ctx, reviewerID)
	if errors.Is(err, common.ErrorNotFound) {
		return s.shareRejected(ctx, origin, p, doc, reviewerID, "unknown account")
	}
	if err != nil {
		return storeErr(err)
	}
	if !policy.CanShareWith(target) {
		return s.shareRejected(ctx, origin, p, doc, reviewerID, "not a reviewer")
	}

	if err := s.repomanager.Documents(s.db).Share(ctx, doc.ID, target.ID); err != nil {
		return storeErr(err)
	}
	s.recordGrant(ctx, origin, p, doc, "share", target.ID, "")
	return nil
}

// shareRejected audits a share whose target cannot receive a grant.
func (s *DocumentService) shareRejected(ctx context.Context, origin models.Origin, p models.Principal, doc *models.Document, reviewerID, reason string) error {
	s.logger.Warn(ctx, "share rejected", "document_id", doc.ID, "reason", reason)
	s.recordGrant(ctx, origin, p, doc, "share", reviewerID, reason)
	return common.ErrNotReviewer
}

// Revoke removes reviewerID's access. Revoking an absent grant is a no-op.
func (s *DocumentService) Revoke(ctx context.Context, origin models.Origin, p models.Principal, documentID, reviewerID string) error {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.enforce(ctx, origin, p, doc.ID, policy.ActionShare, policy.Authorize(p, doc, policy.ActionShare)); err != nil {
		return err
	}

	if _, err := uuid.Parse(reviewerID); err == nil {
		if err := s.repomanager.Documents(s.db).Revoke(ctx, doc.ID, reviewerID); err != nil {
			return storeErr(err)
		}
	}
	s.recordGrant(ctx, origin, p, doc, "revoke", reviewerID, "")
	return nil
}

// recordGrant emits FILE_ACCESS for a share or revoke. A non-empty
// rejection marks a grant that was refused.
func (s *DocumentService) recordGrant(ctx context.Context, origin models.Origin, p models.Principal, doc *models.Document, op, reviewerID, rejection string) {
	extra := map[string]any{"reviewer_id": reviewerID}
	if rejection != "" {
		extra["rejected"] = rejection
	}
	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     models.ActionFileAccess,
		Origin:     origin,
		Details: audit.FileDetails{
			DocumentID: doc.ID,
			FileName:   doc.OriginalName,
			Operation:  op,
			Extra:      extra,
		},
	})
}

// Delete removes the metadata row and then the blob.
func (s *DocumentService) Delete(ctx context.Context, origin models.Origin, p models.Principal, documentID string) error {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.enforce(ctx, origin, p, doc.ID, policy.ActionDelete, policy.Authorize(p, doc, policy.ActionDelete)); err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).Delete(ctx, doc.ID); err != nil {
			return err
		}
		return s.blobs.Delete(ctx, doc.StorageKey)
	})
	if err != nil {
		return storeErr(err)
	}

	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     models.ActionFileAccess,
		Origin:     origin,
		Details:    audit.FileDetails{DocumentID: doc.ID, FileName: doc.OriginalName, Operation: "delete"},
	})
	return nil
}

// List returns document metadata visible to p: administrators see all,
// owners their own, reviewers what is shared with them.
func (s *DocumentService) List(ctx context.Context, p models.Principal) ([]*models.Document, error) {
	repo := s.repomanager.Documents(s.db)

	var (
		docs []*models.Document
		err  error
	)
	switch policy.ListScopeFor(p) {
	case policy.ScopeAll:
		docs, err = repo.ListAll(ctx)
	case policy.ScopeShared:
		docs, err = repo.ListSharedWith(ctx, p.AccountID)
	case policy.ScopeOwned:
		docs, err = repo.ListByOwner(ctx, p.AccountID)
	default:
		return []*models.Document{}, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return docs, nil
}

// Get returns metadata of one document. Administrators may see any
// document's metadata; everyone else needs read access.
func (s *DocumentService) Get(ctx context.Context, origin models.Origin, p models.Principal, documentID string) (*models.Document, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if policy.CanListAll(p) {
		return doc, nil
	}
	if err := s.enforce(ctx, origin, p, doc.ID, policy.ActionRead, policy.Authorize(p, doc, policy.ActionRead)); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) load(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	doc, err := s.repomanager.Documents(s.db).Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return doc, nil
}

// enforce turns a denial into an UNAUTHORIZED_ACCESS event and a
// *policy.DenyError.
func (s *DocumentService) enforce(ctx context.Context, origin models.Origin, p models.Principal, documentID string, action policy.Action, d policy.Decision) error {
	if d.Allowed {
		return nil
	}
	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     models.ActionUnauthorizedAccess,
		Origin:     origin,
		Details: audit.AccessDeniedDetails{
			DocumentID: documentID,
			Operation:  string(action),
			Reason:     string(d.Reason),
		},
	})
	return d.Err(action)
}
