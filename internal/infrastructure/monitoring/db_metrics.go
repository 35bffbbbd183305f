package monitoring

import (
	"context"
	"database/sql"
	"time"
)

// DBMetricsCollector samples connection pool stats for the attempt ledger database.
type DBMetricsCollector struct {
	db *sql.DB
}

func NewDBMetricsCollector(db *sql.DB) *DBMetricsCollector {
	return &DBMetricsCollector{db: db}
}

// StartCollecting samples once immediately, then every interval until ctx is done.
func (c *DBMetricsCollector) StartCollecting(ctx context.Context, interval time.Duration) {
	c.collect()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collect()
			}
		}
	}()
}

func (c *DBMetricsCollector) collect() {
	stats := c.db.Stats()
	DBConnectionsActive.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
	DBConnectionsWaitCount.Set(float64(stats.WaitCount))
}

func InstrumentExec(ctx context.Context, db *sql.DB, queryType, table, query string, args ...interface{}) (sql.Result, error) {
	end := TimeDBQuery(queryType, table)
	res, err := db.ExecContext(ctx, query, args...)
	end()
	recordDBError(queryType, table, err)
	return res, err
}

func InstrumentQuery(ctx context.Context, db *sql.DB, queryType, table, query string, args ...interface{}) (*sql.Rows, error) {
	end := TimeDBQuery(queryType, table)
	rows, err := db.QueryContext(ctx, query, args...)
	end()
	recordDBError(queryType, table, err)
	return rows, err
}

// InstrumentQueryRow times the round trip only; row errors surface at Scan.
func InstrumentQueryRow(ctx context.Context, db *sql.DB, queryType, table, query string, args ...interface{}) *sql.Row {
	end := TimeDBQuery(queryType, table)
	defer end()
	return db.QueryRowContext(ctx, query, args...)
}

func recordDBError(queryType, table string, err error) {
	if err != nil {
		DBQueryErrorsTotal.WithLabelValues(queryType, table).Inc()
	}
}
