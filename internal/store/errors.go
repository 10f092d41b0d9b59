package store

import (
	"context"
	"database/sql"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
)

// MapPostgresError translates driver errors into the portal's error
// taxonomy so callers can branch with errors.Is.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrQueryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.ErrQueryTimeout
		}
		return models.ErrBackendUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23503": // foreign_key_violation
			return models.ErrBadRequest
		case "23502": // not_null_violation
			return models.ErrBadRequest
		case "57014": // query_canceled (statement_timeout)
			return models.ErrQueryTimeout
		case "08000", "08003", "08006": // connection failures
			return models.ErrBackendUnavailable
		}
		return err
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return models.ErrBackendUnavailable
	}

	return err
}
