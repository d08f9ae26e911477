package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/fieldlog/internal/store"
)

// ErrTransactionConflict indicates a SurrealDB transaction conflict.
// This occurs when concurrent writes touch the same record; callers may retry.
var ErrTransactionConflict = errors.New("transaction conflict")

// wrapQueryError inspects a SurrealDB error and wraps it with the appropriate
// sentinel error if it's a known query error type. Returns the original error
// if it's not a QueryError or doesn't match known patterns.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
		// Schema ASSERT and TYPE violations.
		if strings.Contains(msg, "Found") && strings.Contains(msg, "but field") {
			return fmt.Errorf("%w: %s", store.ErrInvalid, msg)
		}
	}

	return err
}
