package domain

import "errors"

var (
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrMalformedDocument      = errors.New("malformed document")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrUnauthorized           = errors.New("store credential rejected")
	ErrDocumentNotLoaded      = errors.New("document not loaded")
	ErrAccountIndexOutOfRange = errors.New("account index out of range")
	ErrProbeFailed            = errors.New("probe failed")
	ErrSessionDead            = errors.New("session dead")
	ErrSecretNotFound         = errors.New("secret not found")
	ErrUnsavedChanges         = errors.New("unsaved changes")
)
