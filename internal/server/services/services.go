// Package services contains server-side business logic: registration and
// login with lockout, MFA enrollment, the document vault and audit listing.
// Every method returns errors that match one of the common categories.
package services

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// storeErr passes known sentinels through and classifies everything else
// coming from a repository or blob store as a persistence failure.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		common.ErrorNotFound,
		common.ErrorAlreadyExists,
		common.ErrValidation,
		common.ErrAuthentication,
		common.ErrAuthorization,
		common.ErrIntegrity,
		common.ErrPersistence,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return common.Persistence(err)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.ErrInvalidEmail
	}
	return email, nil
}
