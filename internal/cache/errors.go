package cache

import "errors"

var (
	// ErrNotCached means no file exists for the URL. It is a plain miss, not a failure.
	ErrNotCached = errors.New("not cached")
	// ErrDigestUnavailable means SHA-256 is not linked in and every URL maps to DefaultFingerprint.
	ErrDigestUnavailable = errors.New("sha256 digest unavailable")
)
