// Package verify performs a connectivity preflight against a
// destination MySQL DSN, so an operator learns about a bad
// credential or unreachable host before streaming a multi-gigabyte
// anonymized dump into `mysql <`.
package verify

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// Probe opens a connection against dsn and pings it. It never parses
// or executes SQL beyond the driver's own connection handshake.
func Probe(ctx context.Context, dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
