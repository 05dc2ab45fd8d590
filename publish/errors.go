package publish

import "errors"

var (
	// ErrAuthMissing halts a run before any network activity; the auth
	// collaborator is signalled so the user can obtain a key.
	ErrAuthMissing = errors.New("publish: no api key configured")
	// ErrNoDocument aborts a run that names no document.
	ErrNoDocument = errors.New("publish: no active document")
	// ErrCaptureParse aborts a run whose captured render could not be parsed.
	// Nothing has been written or uploaded when it is returned.
	ErrCaptureParse = errors.New("publish: captured render could not be parsed")
)
