package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the ledger reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgQueryCanceled       = "57014"
)

// AsPgError extracts *pgconn.PgError from the chain.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports a unique index rejection.
func IsUniqueViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports a missing referenced row.
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgForeignKeyViolation
}

// IsCheckViolation reports a CHECK constraint rejection.
func IsCheckViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgCheckViolation
}

// IsStatementTimeout reports statement_timeout or lock wait cancellation.
func IsStatementTimeout(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgQueryCanceled
}

// MapStatementError converts lock-wait timeouts into a retryable AppError
// and leaves everything else to the caller.
func MapStatementError(err error) error {
	if IsStatementTimeout(err) {
		return apperror.NewTimeout(err)
	}
	return err
}
