package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	domainbooking "doorly/internal/domain/booking"
)

const writeConflictCode = 112

// IsConflict reports errors that a retry of the whole command may resolve.
func IsConflict(err error) bool {
	if errors.Is(err, domainbooking.ErrConcurrentModification) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// mapWriteErr turns transaction write conflicts into the domain's concurrent
// modification error.
func mapWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if IsConflict(err) || mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s: %v", domainbooking.ErrConcurrentModification, what, err)
	}
	return err
}
