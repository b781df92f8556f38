package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Stable error classification exposed to callers. Handlers map these onto
// HTTP statuses; services wrap them with a human-readable message via %w.
var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrInvalidInstallmentRef = errors.New("invalid installment reference")
	ErrOverpayment           = errors.New("overpayment rejected")
	ErrConflict              = errors.New("write conflict")
	ErrStore                 = errors.New("store failure")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDisabled    = errors.New("account disabled")
)

// classifyStoreError maps driver-level failures onto the stable taxonomy.
// Serialization and deadlock SQLSTATEs surface as ErrConflict so callers know
// a retry may succeed; everything else unexpected is a store failure.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", ErrStore, err)
}
