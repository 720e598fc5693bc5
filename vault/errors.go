package vault

import (
	"errors"
	"fmt"
)

// ErrorKind classifies vault failures. No kind is fatal to the session: the
// vault stays interactive and retry is always a manual repeat of the action.
type ErrorKind string

const (
	// KindLoadFailed means a catalog or key list fetch failed. Prior in-memory
	// state, if any, is left intact.
	KindLoadFailed ErrorKind = "load_failed"

	// KindValidationFailed means an empty or invalid key name or an empty
	// value was rejected locally, before any remote call.
	KindValidationFailed ErrorKind = "validation_failed"

	// KindSaveFailed means the remote upsert was rejected or unreachable.
	KindSaveFailed ErrorKind = "save_failed"

	// KindDeleteFailed means the remote delete was rejected or unreachable;
	// the entry remains listed.
	KindDeleteFailed ErrorKind = "delete_failed"
)

// Error is a typed vault failure carrying the offending key name where one
// applies.
type Error struct {
	Kind    ErrorKind
	KeyName string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.KeyName != "" && e.Err != nil:
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.KeyName, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.KeyName != "":
		return fmt.Sprintf("%s (%s)", e.Kind, e.KeyName)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is (or wraps) a vault Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Kind == kind
}

func loadFailed(err error) *Error {
	return &Error{Kind: KindLoadFailed, Err: err}
}

func validationFailed(keyName, msg string) *Error {
	return &Error{Kind: KindValidationFailed, KeyName: keyName, Err: errors.New(msg)}
}

func saveFailed(keyName string, err error) *Error {
	return &Error{Kind: KindSaveFailed, KeyName: keyName, Err: err}
}

func deleteFailed(keyName string, err error) *Error {
	return &Error{Kind: KindDeleteFailed, KeyName: keyName, Err: err}
}
