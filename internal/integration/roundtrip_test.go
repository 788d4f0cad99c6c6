// Package integration holds a live round-trip check: anonymize a
// seed dump in-process, load the result into a real MySQL container,
// and confirm the transformed dump is still loadable and carries
// hash-shaped values instead of the originals.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"regexp"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"sqlanon/internal/config"
	"sqlanon/internal/dump"
)

const seedConfig = "secret = 'itest' tables = { `customers` = { `email` = texthash 8 } }"

const seedDump = "CREATE TABLE `customers` (\n" +
	"  `id` int(11) NOT NULL,\n" +
	"  `email` varchar(255) NOT NULL\n" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n" +
	"INSERT INTO `customers` VALUES (1,'alice@example.com'),(2,'bob@example.com');\n"

func TestAnonymizedDumpLoadsBackIntoMySQL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc := setupMySQL(t, ctx)

	cfg, err := config.NewParser(seedConfig).Parse()
	require.NoError(t, err)

	proc := dump.NewProcessor(cfg, nil)
	var anonymized bytes.Buffer
	require.NoError(t, proc.Process(bytes.NewBufferString(seedDump), &anonymized))

	requireHashShapedEmails(t, anonymized.String())

	loadDump(t, ctx, tc.dsn, anonymized.String())

	var count int
	require.NoError(t, tc.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&count))
	require.Equal(t, 2, count)

	var email string
	require.NoError(t, tc.db.QueryRowContext(ctx, "SELECT email FROM customers WHERE id = 1").Scan(&email))
	require.Regexp(t, regexp.MustCompile(`^[a-z]{8}$`), email)
}

func requireHashShapedEmails(t *testing.T, anonymized string) {
	t.Helper()
	require.Regexp(t, regexp.MustCompile(`VALUES \(1,'[a-z]{8}'\),\(2,'[a-z]{8}'\);`), anonymized)
}

func loadDump(t *testing.T, ctx context.Context, dsn, statements string) {
	t.Helper()
	db, err := sql.Open("mysql", dsn+"&multiStatements=true")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	_, err = db.ExecContext(ctx, statements)
	require.NoError(t, err)
}

type testMySQLContainer struct {
	container *mysql.MySQLContainer
	dsn       string
	db        *sql.DB
}

func setupMySQL(t *testing.T, ctx context.Context) *testMySQLContainer {
	t.Helper()

	mysqlContainer, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(mysqlContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err, "failed to open direct DB connection")
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close DB connection: %v", err)
		}
	})

	return &testMySQLContainer{
		container: mysqlContainer,
		dsn:       dsn,
		db:        db,
	}
}
