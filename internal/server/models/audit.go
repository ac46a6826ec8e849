package models

import "time"

// Action is the closed set of audited security actions.
type Action string

const (
	ActionLoginSuccess       Action = "LOGIN_SUCCESS"
	ActionLoginFailure       Action = "LOGIN_FAILURE"
	ActionMFASuccess         Action = "MFA_SUCCESS"
	ActionMFAFailure         Action = "MFA_FAILURE"
	ActionFileUpload         Action = "FILE_UPLOAD"
	ActionFileAccess         Action = "FILE_ACCESS"
	ActionFileTampered       Action = "FILE_TAMPERED"
	ActionLogout             Action = "LOGOUT"
	ActionRegisterSuccess    Action = "REGISTER_SUCCESS"
	ActionRegisterFailure    Action = "REGISTER_FAILURE"
	ActionUnauthorizedAccess Action = "UNAUTHORIZED_ACCESS"
)

var actions = map[Action]struct{}{
	ActionLoginSuccess: {}, ActionLoginFailure: {},
	ActionMFASuccess: {}, ActionMFAFailure: {},
	ActionFileUpload: {}, ActionFileAccess: {}, ActionFileTampered: {},
	ActionLogout:          {},
	ActionRegisterSuccess: {}, ActionRegisterFailure: {},
	ActionUnauthorizedAccess: {},
}

func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

// Origin identifies where a request came from.
type Origin struct {
	Address string
	Agent   string
}

// AuditEvent is one immutable entry of the audit trail. Details holds the
// JSON-encoded action-specific payload.
type AuditEvent struct {
	ID         string
	ActorID    *string
	ActorEmail *string
	Action     Action
	Timestamp  time.Time
	Origin     Origin
	Details    []byte
}
