package services

import (
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// Tamper causes recorded in FILE_TAMPERED events.
const (
	CauseDecryption = "decryption authentication failed"
	CauseSignature  = "signature mismatch"
)

// IntegrityError is returned by Download when stored content fails the
// cipher or signature check. It matches common.ErrIntegrity.
type IntegrityError struct {
	DocumentID string
	Cause      string
	Err        error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.DocumentID, e.Cause, e.Err)
}

// Message is the text that may be shown to the caller.
func (e *IntegrityError) Message() string {
	if e.Cause == CauseSignature {
		return "CRITICAL: document integrity signature mismatch; content may have been forged"
	}
	return "document content is corrupted or has been tampered with"
}

func (e *IntegrityError) Is(target error) bool {
	return target == common.ErrIntegrity
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
