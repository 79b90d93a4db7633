package service

import "github.com/google/uuid"

// newDocumentID returns a fresh random id for every insertion.
func newDocumentID() string {
	return uuid.NewString()
}
