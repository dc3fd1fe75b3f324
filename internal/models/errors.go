package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers branch on.
var (
	// ErrConfigNotFound means the OBS configuration directory could not be
	// resolved or does not exist.
	ErrConfigNotFound = errors.New("obs config directory not found")

	// ErrMissingCredentials means a remote operation was requested without a
	// token, repository, or selection.
	ErrMissingCredentials = errors.New("github token and repository required")

	// ErrEmptyRemoteBackup means a remote restore found no files under the
	// selected backup path.
	ErrEmptyRemoteBackup = errors.New("no files found in the remote backup")

	// ErrInvalidBackupSource means a local restore source is not a backup
	// bundle in any recognized shape.
	ErrInvalidBackupSource = errors.New("invalid backup source")

	// ErrNotBase64File means the contents API returned something other than
	// a base64-encoded file object where one was expected.
	ErrNotBase64File = errors.New("unexpected content response from github")
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API returned status %d: %s", e.StatusCode, e.Body)
}
