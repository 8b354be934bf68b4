package services

import "errors"

// Sentinel errors separate the client-correctable failure categories from
// infrastructure failures; handlers translate them to status codes and the
// worker records them verbatim on failed jobs.
var (
	// ErrValidation marks an upload rejected at the ingest boundary
	// (empty content, disallowed extension)
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateImage is returned when the content hash of an upload
	// already exists
	ErrDuplicateImage = errors.New("duplicate image detected")

	// ErrImageNotFound is returned for reads, variation requests, and
	// deletes against an unknown image id
	ErrImageNotFound = errors.New("image not found")

	// ErrJobNotFound is returned for status lookups against an unknown
	// job id
	ErrJobNotFound = errors.New("thumbnail job not found")
)
