package policy

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/stretchr/testify/assert"
)

var (
	owner    = models.Principal{AccountID: "owner-1", Role: models.RoleOwner}
	other    = models.Principal{AccountID: "owner-2", Role: models.RoleOwner}
	reviewer = models.Principal{AccountID: "rev-1", Role: models.RoleReviewer}
	stranger = models.Principal{AccountID: "rev-2", Role: models.RoleReviewer}
	admin    = models.Principal{AccountID: "adm-1", Role: models.RoleAdministrator}
)

func doc() *models.Document {
	return &models.Document{ID: "d1", OwnerID: owner.AccountID, SharedWith: []string{reviewer.AccountID}}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name      string
		principal models.Principal
		action    Action
		want      Decision
	}{
		{"owner reads own", owner, ActionRead, Allow},
		{"owner shares own", owner, ActionShare, Allow},
		{"owner deletes own", owner, ActionDelete, Allow},
		{"other owner reads", other, ActionRead, Deny(ReasonNotOwner)},
		{"other owner deletes", other, ActionDelete, Deny(ReasonNotOwner)},
		{"shared reviewer reads", reviewer, ActionRead, Allow},
		{"shared reviewer shares", reviewer, ActionShare, Deny(ReasonNotOwner)},
		{"shared reviewer deletes", reviewer, ActionDelete, Deny(ReasonNotOwner)},
		{"unshared reviewer reads", stranger, ActionRead, Deny(ReasonNotShared)},
		{"admin reads", admin, ActionRead, Deny(ReasonAdminForbidden)},
		{"admin shares", admin, ActionShare, Deny(ReasonAdminForbidden)},
		{"admin deletes", admin, ActionDelete, Deny(ReasonAdminForbidden)},
		{"unknown role", models.Principal{AccountID: "x", Role: "guest"}, ActionRead, Deny(ReasonNotOwner)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.principal, doc(), tt.action))
		})
	}
}

func TestAuthorize_RevocationTakesEffect(t *testing.T) {
	d := doc()
	assert.True(t, Authorize(reviewer, d, ActionRead).Allowed)

	d.SharedWith = nil
	assert.Equal(t, Deny(ReasonNotShared), Authorize(reviewer, d, ActionRead))
}

func TestAuthorizeUpload(t *testing.T) {
	assert.Equal(t, Allow, AuthorizeUpload(owner))
	assert.Equal(t, Deny(ReasonNotOwner), AuthorizeUpload(reviewer))
	assert.Equal(t, Deny(ReasonAdminForbidden), AuthorizeUpload(admin))
}

func TestCanListAll(t *testing.T) {
	assert.True(t, CanListAll(admin))
	assert.False(t, CanListAll(owner))
	assert.False(t, CanListAll(reviewer))
}

func TestListScopeFor(t *testing.T) {
	assert.Equal(t, ScopeAll, ListScopeFor(admin))
	assert.Equal(t, ScopeOwned, ListScopeFor(owner))
	assert.Equal(t, ScopeShared, ListScopeFor(reviewer))
	assert.Equal(t, ScopeNone, ListScopeFor(models.Principal{AccountID: "x", Role: "guest"}))
}

func TestCanShareWith(t *testing.T) {
	assert.True(t, CanShareWith(&models.Account{Role: models.RoleReviewer}))
	assert.False(t, CanShareWith(&models.Account{Role: models.RoleOwner}))
	assert.False(t, CanShareWith(&models.Account{Role: models.RoleAdministrator}))
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Allow.Err(ActionRead))

	err := Deny(ReasonNotShared).Err(ActionRead)
	assert.True(t, errors.Is(err, common.ErrAuthorization))

	var de *DenyError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonNotShared, de.Reason)
	assert.Equal(t, "read denied: not_shared", err.Error())
}
