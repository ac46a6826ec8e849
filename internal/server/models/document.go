package models

import "time"

// Document is the metadata of an uploaded file. The ciphertext blob lives
// in object storage under StorageKey.
type Document struct {
	ID           string
	OwnerID      string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	StorageKey   string

	// ContentHash is hex SHA-256 of the plaintext; Signature is hex
	// HMAC-SHA256 over ContentHash. Both are fixed at upload.
	ContentHash string
	Signature   string

	SharedWith []string
	CreatedAt  time.Time
}

// IsSharedWith reports whether accountID was granted read access.
func (d *Document) IsSharedWith(accountID string) bool {
	for _, id := range d.SharedWith {
		if id == accountID {
			return true
		}
	}
	return false
}
