package syncerr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classify maps an arbitrary failure from a store or transport call to the
// sync taxonomy. Errors that already carry a kind pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	// Malformed payloads are rejected, not retried.
	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return Validation(op, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(op, err)
	}

	// Postgres rejections: constraint and data errors are validation,
	// anything connection-shaped is transient.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "23", "22": // integrity constraint / data exception
			return Validation(op, err)
		case "08": // connection exception
			return Network(op, err)
		}
		return Validation(op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Network(op, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Network(op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Network(op, err)
	}
	if errors.Is(err, context.Canceled) {
		// Teardown in progress; retrying would outlive the caller.
		return Validation(op, err)
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "broken pipe") || strings.Contains(errStr, "EOF") {
		return Network(op, err)
	}

	// Unknown failures are treated as non-retryable so a programming
	// error cannot loop forever behind the retry policy.
	return Validation(op, err)
}
