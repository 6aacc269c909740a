package whatsapp

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// driverFor maps SESSION_STORE_DIALECT to a database/sql driver and the
// dialect name sqlstore expects.
func driverFor(dialect string) (driver, storeDialect string, err error) {
	switch dialect {
	case "sqlite3", "sqlite":
		return "sqlite3", "sqlite3", nil
	case "postgres", "pgx":
		return "pgx", "postgres", nil
	default:
		return "", "", fmt.Errorf("unsupported session store dialect %q", dialect)
	}
}

// OpenStore opens the device store and runs its migrations.
func OpenStore(ctx context.Context, dialect, dsn string, log waLog.Logger) (*sqlstore.Container, error) {
	driver, storeDialect, err := driverFor(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach session store: %w", err)
	}

	container := sqlstore.NewWithDB(db, storeDialect, log)
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}

	return container, nil
}
