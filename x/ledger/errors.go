package ledger

import (
	"fmt"

	"github.com/iov-one/quorum/errors"
)

// UnauthorizedError is returned when the account auth procedure rejected a
// transaction. It carries the summary that has to be signed for the
// transaction to pass.
type UnauthorizedError struct {
	Summary *TransactionSummary
	// Valid is the number of valid approver signatures found.
	Valid uint64
	// Threshold is the number of signatures required.
	Threshold uint64
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%d of %d required signatures: %s", e.Valid, e.Threshold, errors.ErrUnauthorized.Error())
}

// Cause returns ErrUnauthorized, so that errors.ErrUnauthorized.Is matches.
func (e *UnauthorizedError) Cause() error {
	return errors.ErrUnauthorized
}

// AsUnauthorized unwraps err until an UnauthorizedError is found.
func AsUnauthorized(err error) (*UnauthorizedError, bool) {
	type causer interface {
		Cause() error
	}
	for err != nil {
		if u, ok := err.(*UnauthorizedError); ok {
			return u, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}
