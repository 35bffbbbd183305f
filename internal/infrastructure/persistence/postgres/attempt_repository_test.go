package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yuzvak/checkout-service/internal/config"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func setupTestDB(t *testing.T, driver string) *AttemptRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := NewConnection(ctx, config.DatabaseConfig{
		Driver:   driver,
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.RunMigrations("./migrations", logger.Nop()))
	// a second run is a no-op
	require.NoError(t, conn.RunMigrations("./migrations", logger.Nop()))

	return NewAttemptRepository(conn)
}

func newAttempt(reference string) checkout.Attempt {
	return checkout.Attempt{
		SessionID:     "sess-1",
		UserID:        "user-1",
		Reference:     reference,
		PaymentType:   checkout.PaymentTypeDirect,
		Amount:        3500,
		Currency:      "COP",
		Status:        checkout.AttemptDeclined,
		TransactionID: "tx-1",
		Error:         "Pago declined: rechazado",
		ProductIDs:    []string{"alb-1", "alb-2"},
		CreatedAt:     time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestAttemptRepository(t *testing.T) {
	for _, driver := range []string{DriverPQ, DriverPGX} {
		t.Run(driver, func(t *testing.T) {
			repo := setupTestDB(t, driver)
			ctx := context.Background()

			first := newAttempt("CART-1-aaaaaaaaa")
			require.NoError(t, repo.RecordAttempt(ctx, first))

			second := newAttempt("CART-2-bbbbbbbbb")
			second.Status = checkout.AttemptApproved
			second.Error = ""
			second.CreatedAt = first.CreatedAt.Add(time.Minute)
			require.NoError(t, repo.RecordAttempt(ctx, second))

			err := repo.RecordAttempt(ctx, first)
			assert.ErrorIs(t, err, domainErrors.ErrReferenceConflict)

			fetched, err := repo.GetByReference(ctx, first.Reference)
			require.NoError(t, err)
			assert.Equal(t, first.SessionID, fetched.SessionID)
			assert.Equal(t, first.Amount, fetched.Amount)
			assert.Equal(t, first.Status, fetched.Status)
			assert.Equal(t, first.PaymentType, fetched.PaymentType)
			assert.Equal(t, first.ProductIDs, fetched.ProductIDs)
			assert.True(t, first.CreatedAt.Equal(fetched.CreatedAt))

			_, err = repo.GetByReference(ctx, "missing")
			assert.ErrorIs(t, err, ErrAttemptNotFound)

			attempts, err := repo.ListBySession(ctx, "sess-1")
			require.NoError(t, err)
			require.Len(t, attempts, 2)
			assert.Equal(t, first.Reference, attempts[0].Reference)
			assert.Equal(t, checkout.AttemptApproved, attempts[1].Status)
		})
	}
}
