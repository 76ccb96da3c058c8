package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation      = errors.New("validation")             // 400
	ErrUnauthenticated = errors.New("unauthenticated")        // 401
	ErrForbidden       = errors.New("forbidden")              // 403
	ErrNotFound        = errors.New("not found")              // 404
	ErrConflict        = errors.New("conflict")               // 409
	ErrDataIntegrity   = errors.New("data integrity")         // 500
	ErrTimeout         = errors.New("store timeout")          // 503
	ErrUnavailable     = errors.New("dependency unavailable") // 503
)

// errUnknownCaller marks an order header rejected because its user is gone.
var errUnknownCaller = errors.New("order owner does not exist")

// ClientError is a failure whose message is safe to show to the caller.
type ClientError struct {
	Kind error
	Msg  string
}

func (e *ClientError) Error() string { return e.Kind.Error() + ": " + e.Msg }
func (e *ClientError) Unwrap() error { return e.Kind }

func clientErr(kind error, format string, args ...any) error {
	return &ClientError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// storeErr classifies a repository error. Unknown errors pass through and end
// up as 500s.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
