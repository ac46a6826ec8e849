package grpc

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/auth"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func stringField(in *structpb.Struct, name string) string {
	if in == nil {
		return ""
	}
	v, ok := in.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func requiredField(in *structpb.Struct, name string) (string, error) {
	v := stringField(in, name)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return v, nil
}

func bytesField(in *structpb.Struct, name string) ([]byte, error) {
	v := stringField(in, name)
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be base64", name)
	}
	return b, nil
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func tokenFields(t *auth.Token) map[string]any {
	return map[string]any{
		"token":      t.Value,
		"expires_at": timestamp(t.ExpiresAt),
	}
}

func documentFields(d *models.Document) map[string]any {
	shared := make([]any, 0, len(d.SharedWith))
	for _, id := range d.SharedWith {
		shared = append(shared, id)
	}
	return map[string]any{
		"id":           d.ID,
		"owner_id":     d.OwnerID,
		"name":         d.OriginalName,
		"mime_type":    d.MimeType,
		"size_bytes":   d.SizeBytes,
		"content_hash": d.ContentHash,
		"shared_with":  shared,
		"created_at":   timestamp(d.CreatedAt),
	}
}

func eventFields(e *models.AuditEvent) map[string]any {
	fields := map[string]any{
		"id":             e.ID,
		"action":         string(e.Action),
		"timestamp":      timestamp(e.Timestamp),
		"origin_address": e.Origin.Address,
		"origin_agent":   e.Origin.Agent,
	}
	if e.ActorID != nil {
		fields["actor_id"] = *e.ActorID
	}
	if e.ActorEmail != nil {
		fields["actor_email"] = *e.ActorEmail
	}

	details := map[string]any{}
	if len(e.Details) > 0 {
		_ = json.Unmarshal(e.Details, &details)
	}
	fields["details"] = details
	return fields
}
