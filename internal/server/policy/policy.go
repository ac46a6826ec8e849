// Package policy decides which principal may perform which action on which
// document. Every role check in the server goes through it.
package policy

import (
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionShare  Action = "share"
	ActionDelete Action = "delete"
	ActionUpload Action = "upload"
)

// Reason explains a denial.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotOwner       Reason = "not_owner"
	ReasonNotShared      Reason = "not_shared"
	ReasonAdminForbidden Reason = "admin_forbidden"
)

// Decision is Allow or Deny(reason).
type Decision struct {
	Allowed bool
	Reason  Reason
}

var Allow = Decision{Allowed: true}

func Deny(r Reason) Decision { return Decision{Reason: r} }

// Err converts a denial into a *DenyError; Allow returns nil.
func (d Decision) Err(action Action) error {
	if d.Allowed {
		return nil
	}
	return &DenyError{Action: action, Reason: d.Reason}
}

// DenyError matches common.ErrAuthorization.
type DenyError struct {
	Action Action
	Reason Reason
}

func (e *DenyError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Action, e.Reason)
}

func (e *DenyError) Is(target error) bool {
	return target == common.ErrAuthorization
}

// Authorize decides whether requester may perform action on doc.
func Authorize(requester models.Principal, doc *models.Document, action Action) Decision {
	switch requester.Role {
	case models.RoleAdministrator:
		return Deny(ReasonAdminForbidden)

	case models.RoleOwner:
		if doc.OwnerID == requester.AccountID {
			return Allow
		}
		return Deny(ReasonNotOwner)

	case models.RoleReviewer:
		if action != ActionRead {
			return Deny(ReasonNotOwner)
		}
		if doc.IsSharedWith(requester.AccountID) {
			return Allow
		}
		return Deny(ReasonNotShared)
	}

	return Deny(ReasonNotOwner)
}

// AuthorizeUpload allows only owners to store new documents.
func AuthorizeUpload(requester models.Principal) Decision {
	switch requester.Role {
	case models.RoleOwner:
		return Allow
	case models.RoleAdministrator:
		return Deny(ReasonAdminForbidden)
	}
	return Deny(ReasonNotOwner)
}

// CanListAll reports whether requester may see every document's metadata
// and the whole audit trail.
func CanListAll(requester models.Principal) bool {
	return requester.Role == models.RoleAdministrator
}

// ListScope names which documents a listing covers.
type ListScope string

const (
	ScopeNone   ListScope = ""
	ScopeAll    ListScope = "all"
	ScopeOwned  ListScope = "owned"
	ScopeShared ListScope = "shared"
)

// ListScopeFor returns the listing scope of requester: administrators see all
// metadata, owners their own documents, reviewers what is shared with them.
func ListScopeFor(requester models.Principal) ListScope {
	switch requester.Role {
	case models.RoleAdministrator:
		return ScopeAll
	case models.RoleOwner:
		return ScopeOwned
	case models.RoleReviewer:
		return ScopeShared
	}
	return ScopeNone
}

// CanShareWith reports whether target may receive a share grant.
func CanShareWith(target *models.Account) bool {
	return target.Role == models.RoleReviewer
}
