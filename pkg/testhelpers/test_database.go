package testhelpers

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

// TestDatabase is a migrated Postgres container owned by one test
type TestDatabase struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string

	closeOnce sync.Once
}

// NewTestDatabase starts Postgres, applies the goose migrations in migrations and
// tears everything down when the test ends.
func NewTestDatabase(t *testing.T, migrations fs.FS) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("settlement_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLogger(tclog.TestLogger(t)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}

	td := &TestDatabase{Container: container}
	t.Cleanup(func() { td.close(t) })

	if td.ConnStr, err = container.ConnectionString(ctx, "sslmode=disable"); err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	migrate(t, td.ConnStr, migrations)

	if td.Pool, err = pgxpool.New(ctx, td.ConnStr); err != nil {
		t.Fatalf("failed to connect to database: %s", err)
	}
	if err := td.Pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %s", err)
	}

	return td
}

func migrate(t *testing.T, connStr string, migrations fs.FS) {
	t.Helper()
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open sql db for migrations: %s", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		t.Fatalf("failed to create goose provider: %s", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %s", err)
	}
}

// Close releases the pool and the container. It also runs on test cleanup.
func (td *TestDatabase) Close() {
	td.close(nil)
}

func (td *TestDatabase) close(t *testing.T) {
	td.closeOnce.Do(func() {
		if td.Pool != nil {
			td.Pool.Close()
		}
		if err := td.Container.Terminate(context.Background()); err != nil && t != nil {
			t.Logf("failed to terminate postgres container: %s", err)
		}
	})
}
