package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
)

const uniqueViolation = "23505"

var ErrAttemptNotFound = errors.New("checkout attempt not found")

// AttemptRepository is the ledger of checkout submissions. Card data never reaches it.
type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(conn *Connection) *AttemptRepository {
	return &AttemptRepository{
		db: conn.GetDB(),
	}
}

func (r *AttemptRepository) RecordAttempt(ctx context.Context, attempt checkout.Attempt) error {
	query := `
		INSERT INTO checkout_attempts (
			reference, session_id, user_id, payment_type, amount, currency, status,
			transaction_id, wompi_transaction_id, error, product_ids, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	productIDs := attempt.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}

	_, err := monitoring.InstrumentExec(ctx, r.db, "insert", "checkout_attempts", query,
		attempt.Reference,
		attempt.SessionID,
		attempt.UserID,
		string(attempt.PaymentType),
		attempt.Amount,
		attempt.Currency,
		string(attempt.Status),
		attempt.TransactionID,
		attempt.WompiTransactionID,
		attempt.Error,
		pq.Array(productIDs),
		attempt.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domainErrors.ErrReferenceConflict, attempt.Reference)
		}
		return fmt.Errorf("insert checkout attempt: %w", err)
	}
	return nil
}

const attemptColumns = `
	reference, session_id, user_id, payment_type, amount, currency, status,
	transaction_id, wompi_transaction_id, error, product_ids, created_at
`

func (r *AttemptRepository) GetByReference(ctx context.Context, reference string) (*checkout.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE reference = $1`

	row := monitoring.InstrumentQueryRow(ctx, r.db, "select", "checkout_attempts", query, reference)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query attempt by reference: %w", err)
	}
	return attempt, nil
}

func (r *AttemptRepository) ListBySession(ctx context.Context, sessionID string) ([]checkout.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE session_id = $1 ORDER BY created_at, id`

	rows, err := monitoring.InstrumentQuery(ctx, r.db, "select", "checkout_attempts", query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query attempts by session: %w", err)
	}
	defer rows.Close()

	var attempts []checkout.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, *attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(s scanner) (*checkout.Attempt, error) {
	var (
		a           checkout.Attempt
		paymentType string
		status      string
		productIDs  []string
	)
	err := s.Scan(
		&a.Reference,
		&a.SessionID,
		&a.UserID,
		&paymentType,
		&a.Amount,
		&a.Currency,
		&status,
		&a.TransactionID,
		&a.WompiTransactionID,
		&a.Error,
		pq.Array(&productIDs),
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.PaymentType = checkout.PaymentType(paymentType)
	a.Status = checkout.AttemptStatus(status)
	a.ProductIDs = productIDs
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
