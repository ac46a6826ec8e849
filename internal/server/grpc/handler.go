package grpc

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(map[string]any{"status": "OK"})
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := s.svc.Auth.Register(ctx, origin(ctx), services.RegisterInput{
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
		Role:     models.Role(stringField(req, "role")),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "account_id", account.ID, "role", account.Role)
	return reply(map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
		"role":       string(account.Role),
	})
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.Auth.Login(ctx, origin(ctx), stringField(req, "email"), stringField(req, "password"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	fields := tokenFields(res.Token)
	fields["mfa_required"] = res.MFARequired
	return reply(fields)
}

func (s *GRPCServer) CompleteLogin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token, err := requiredField(req, "mfa_token")
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Auth.CompleteLogin(ctx, origin(ctx), token, stringField(req, "code"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(tokenFields(res.Token))
}

func (s *GRPCServer) Session(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	return reply(map[string]any{
		"account_id": id.Principal.AccountID,
		"email":      id.Principal.Email,
		"role":       string(id.Principal.Role),
		"expires_at": timestamp(id.ExpiresAt),
	})
}

func (s *GRPCServer) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Auth.Logout(ctx, origin(ctx), id); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(nil)
}

func (s *GRPCServer) BeginMFAEnrollment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	secret, err := s.svc.MFA.BeginEnrollment(ctx, origin(ctx), id.Principal)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"secret": secret.Base32, "uri": secret.URI})
}

func (s *GRPCServer) ConfirmMFAEnrollment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.MFA.ConfirmEnrollment(ctx, origin(ctx), id.Principal, stringField(req, "code")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"mfa_enabled": true})
}

func (s *GRPCServer) UploadDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	content, err := bytesField(req, "content")
	if err != nil {
		return nil, err
	}

	doc, err := s.svc.Documents.Upload(ctx, origin(ctx), id.Principal, services.UploadInput{
		Name:     stringField(req, "name"),
		MimeType: stringField(req, "mime_type"),
		Content:  content,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(documentFields(doc))
}

func (s *GRPCServer) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.svc.Documents.List(ctx, id.Principal)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	list := make([]any, 0, len(docs))
	for _, d := range docs {
		list = append(list, documentFields(d))
	}
	return reply(map[string]any{"documents": list})
}

func (s *GRPCServer) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.svc.Documents.Get(ctx, origin(ctx), id.Principal, stringField(req, "document_id"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(documentFields(doc))
}

func (s *GRPCServer) DownloadDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Documents.Download(ctx, origin(ctx), id.Principal, stringField(req, "document_id"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{
		"content":   c.Data,
		"mime_type": c.MimeType,
		"name":      c.OriginalName,
	})
}

func (s *GRPCServer) ShareDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	err = s.svc.Documents.Share(ctx, origin(ctx), id.Principal, stringField(req, "document_id"), stringField(req, "reviewer_id"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(nil)
}

func (s *GRPCServer) RevokeDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	err = s.svc.Documents.Revoke(ctx, origin(ctx), id.Principal, stringField(req, "document_id"), stringField(req, "reviewer_id"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(nil)
}

func (s *GRPCServer) DeleteDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Documents.Delete(ctx, origin(ctx), id.Principal, stringField(req, "document_id")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(nil)
}

func (s *GRPCServer) ListReviewers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := identity(ctx); err != nil {
		return nil, err
	}
	reviewers, err := s.svc.Auth.ListReviewers(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	list := make([]any, 0, len(reviewers))
	for _, r := range reviewers {
		list = append(list, map[string]any{"id": r.ID, "email": r.Email})
	}
	return reply(map[string]any{"reviewers": list})
}

func (s *GRPCServer) ListAuditEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.svc.Audit.List(ctx, id.Principal)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	list := make([]any, 0, len(events))
	for _, e := range events {
		list = append(list, eventFields(e))
	}
	return reply(map[string]any{"events": list})
}
