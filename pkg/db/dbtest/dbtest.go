// Package dbtest opens migrated in-memory SQLite databases for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

var seq atomic.Int64

// Open returns a client backed by a private in-memory SQLite database with every
// embedded migration applied.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, seq.Add(1))

	client, err := db.New(context.Background(), config.DBConfig{
		DSN:    dsn,
		Driver: config.DBDriverSQLite,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}

	migrate.Quiet()
	if err := migrate.Up(context.Background(), sqlDB, client.Dialect()); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return client
}
