package wire

import "github.com/pkg/errors"

// Sentinel errors for the codec. Callers distinguish them with errors.Is.
var (
	// ErrShortFrame means fewer bytes were available than the length
	// prefix declared; the caller should read more and retry.
	ErrShortFrame = errors.New("wire: short frame")

	// ErrInvalidTag means the header itself could not be decoded: the
	// declared frame length is smaller than the 12-byte header.
	ErrInvalidTag = errors.New("wire: frame too short for header")

	// ErrInvalidGroupCount means an Ex message declared a group count
	// outside 1..MaxGroups.
	ErrInvalidGroupCount = errors.New("wire: invalid group count")
)
