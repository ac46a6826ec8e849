package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// Details is the action-specific payload of an audit event. Each variant
// carries typed fields plus an open Extra map.
type Details interface {
	Kind() string
}

type LoginDetails struct {
	Reason         string         `json:"reason,omitempty"`
	FailedAttempts int            `json:"failed_attempts,omitempty"`
	Locked         bool           `json:"locked,omitempty"`
	LockedUntil    *time.Time     `json:"locked_until,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

type MFAStage string

const (
	StageEnrollment MFAStage = "enrollment"
	StageLogin      MFAStage = "login"
)

type MFADetails struct {
	Stage  MFAStage       `json:"stage"`
	Reason string         `json:"reason,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

type RegistrationDetails struct {
	Role   models.Role    `json:"role,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

type FileDetails struct {
	DocumentID string         `json:"document_id"`
	FileName   string         `json:"file_name,omitempty"`
	MimeType   string         `json:"mime_type,omitempty"`
	SizeBytes  int64          `json:"size_bytes,omitempty"`
	Operation  string         `json:"operation"`
	Extra      map[string]any `json:"extra,omitempty"`
}

type TamperDetails struct {
	DocumentID string         `json:"document_id"`
	Cause      string         `json:"cause"`
	Extra      map[string]any `json:"extra,omitempty"`
}

type AccessDeniedDetails struct {
	DocumentID string         `json:"document_id,omitempty"`
	Operation  string         `json:"operation"`
	Reason     string         `json:"reason"`
	Extra      map[string]any `json:"extra,omitempty"`
}

type SessionDetails struct {
	SessionID string         `json:"session_id,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func (LoginDetails) Kind() string        { return "login" }
func (MFADetails) Kind() string          { return "mfa" }
func (RegistrationDetails) Kind() string { return "registration" }
func (FileDetails) Kind() string         { return "file" }
func (TamperDetails) Kind() string       { return "tamper" }
func (AccessDeniedDetails) Kind() string { return "access_denied" }
func (SessionDetails) Kind() string      { return "session" }

var ErrDetailsMismatch = errors.New("details variant does not match action")

// newDetails returns a pointer to the zero variant for action.
func newDetails(action models.Action) (Details, error) {
	switch action {
	case models.ActionLoginSuccess, models.ActionLoginFailure:
		return &LoginDetails{}, nil
	case models.ActionMFASuccess, models.ActionMFAFailure:
		return &MFADetails{}, nil
	case models.ActionRegisterSuccess, models.ActionRegisterFailure:
		return &RegistrationDetails{}, nil
	case models.ActionFileUpload, models.ActionFileAccess:
		return &FileDetails{}, nil
	case models.ActionFileTampered:
		return &TamperDetails{}, nil
	case models.ActionUnauthorizedAccess:
		return &AccessDeniedDetails{}, nil
	case models.ActionLogout:
		return &SessionDetails{}, nil
	}
	return nil, fmt.Errorf("unknown action %q", action)
}

// Encode serializes d as a flat JSON object tagged with "kind". A nil d
// encodes the empty variant for action.
func Encode(action models.Action, d Details) ([]byte, error) {
	want, err := newDetails(action)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = want
	}
	if d.Kind() != want.Kind() {
		return nil, fmt.Errorf("%w: %s carries %s", ErrDetailsMismatch, action, d.Kind())
	}

	body, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(d.Kind())
	fields["kind"] = kind

	return json.Marshal(fields)
}

// Decode parses data into the variant selected by action. The result is a
// value, not a pointer, matching what callers pass to Record.
func Decode(action models.Action, data []byte) (Details, error) {
	d, err := newDetails(action)
	if err != nil {
		return nil, err
	}

	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	if tag.Kind != "" && tag.Kind != d.Kind() {
		return nil, fmt.Errorf("%w: %s stored as %s", ErrDetailsMismatch, action, tag.Kind)
	}

	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}

	switch v := d.(type) {
	case *LoginDetails:
		return *v, nil
	case *MFADetails:
		return *v, nil
	case *RegistrationDetails:
		return *v, nil
	case *FileDetails:
		return *v, nil
	case *TamperDetails:
		return *v, nil
	case *AccessDeniedDetails:
		return *v, nil
	case *SessionDetails:
		return *v, nil
	}
	return d, nil
}
