package frontier

import (
	"errors"
	"fmt"
)

// Frontier integrity errors.
//
// Design decision: Integrity errors are fatal to a crawl run. Continuing
// after one of them would risk breaking the dedupe invariant that makes the
// frontier safe to resume from, so callers are expected to stop and let a
// human look at the file.
var (
	// ErrCorruptStore is returned when the persisted frontier is not well-formed.
	ErrCorruptStore = errors.New("corrupt frontier store")

	// ErrUnknownURL is returned when marking a URL that has no entry.
	ErrUnknownURL = errors.New("unknown frontier URL")

	// ErrDanglingLink is returned when a visited entry would reference an
	// internal link that is not itself an entry.
	ErrDanglingLink = errors.New("internal link has no frontier entry")

	// ErrAlreadyVisited is returned when marking an entry that is already scraped.
	ErrAlreadyVisited = errors.New("frontier URL already visited")

	// ErrNoSeed is returned when no frontier file exists and no seed URL was given.
	ErrNoSeed = errors.New("no frontier file and no seed URL")

	// ErrInvalidURL is returned when a URL cannot be canonicalized.
	ErrInvalidURL = errors.New("invalid URL")
)

// CorruptStoreError describes why a frontier file was rejected.
// It matches ErrCorruptStore with errors.Is.
type CorruptStoreError struct {
	// Path is the file that failed to load.
	Path string

	// Reason is a short description of the violation.
	Reason string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *CorruptStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", ErrCorruptStore, e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", ErrCorruptStore, e.Path, e.Reason)
}

// Unwrap returns the underlying decode error.
func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCorruptStore.
func (e *CorruptStoreError) Is(target error) bool {
	return target == ErrCorruptStore
}

// IsIntegrityError reports whether err is one of the errors that must stop
// a crawl run.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrCorruptStore) ||
		errors.Is(err, ErrUnknownURL) ||
		errors.Is(err, ErrDanglingLink) ||
		errors.Is(err, ErrAlreadyVisited)
}
