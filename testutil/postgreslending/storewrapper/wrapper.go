package storewrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/bookhaven/lending-go/lending/postgresstore"
	"github.com/bookhaven/lending-go/testutil/postgreslending/config"
)

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper interface to abstract over different adapter types
type Wrapper interface {
	GetStore() postgresstore.Store
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store postgresstore.Store
}

func (w *PGXPoolWrapper) GetStore() postgresstore.Store {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db    *sql.DB
	store postgresstore.Store
}

func (w *SQLDBWrapper) GetStore() postgresstore.Store {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db    *sqlx.DB
	store postgresstore.Store
}

func (w *SQLXWrapper) GetStore() postgresstore.Store {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the
// ADAPTER_TYPE environment variable and ensures the schema exists.
func CreateWrapperWithTestConfig(t testing.TB) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	var wrapper Wrapper

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresstore.NewStoreFromPGXPool(connPool)
		assert.NoError(t, err, "error creating lending store")

		wrapper = &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		store, err := postgresstore.NewStoreFromSQLDB(db)
		assert.NoError(t, err, "error creating lending store")

		wrapper = &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		store, err := postgresstore.NewStoreFromSQLX(db)
		assert.NoError(t, err, "error creating lending store")

		wrapper = &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}

	schemaErr := wrapper.GetStore().EnsureSchema(context.Background())
	assert.NoError(t, schemaErr, "error ensuring lending schema in test setup")

	return wrapper
}

// CleanUp truncates all lending tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	tables := postgresstore.DefaultTableNames()
	statement := fmt.Sprintf(
		"TRUNCATE TABLE %s, %s, %s, %s",
		tables.Loans, tables.History, tables.FeeBalances, tables.Books,
	)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), statement)
		assert.NoError(t, err, "error cleaning up the lending tables")

	case *SQLDBWrapper:
		_, err := w.db.Exec(statement)
		assert.NoError(t, err, "error cleaning up the lending tables")

	case *SQLXWrapper:
		_, err := w.db.Exec(statement)
		assert.NoError(t, err, "error cleaning up the lending tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}
