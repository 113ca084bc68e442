package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"englishbuddy/config"
	"englishbuddy/internal/story/repository"
	"englishbuddy/internal/story/repository/firestore"
	"englishbuddy/internal/story/repository/mongodb"
	"englishbuddy/internal/story/repository/sqldb"
	"englishbuddy/pkg/logger"
)

const (
	pingAttempts = 5
	pingBackoff  = 2 * time.Second
)

// Connect opens a database/sql pool and pings it, retrying a few times in case
// of temporary DNS or network blips.
func Connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			logger.Sugar.Infof("Successfully connected to the %s database", driver)
			return db, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", pingBackoff, err)

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(pingBackoff):
		}
	}

	db.Close()
	return nil, fmt.Errorf("could not connect to %s after %d attempts: %w", driver, pingAttempts, err)
}

// OpenStories returns the story repository selected by cfg.Driver.
func OpenStories(ctx context.Context, cfg config.StoreConfig) (repository.StoryRepository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := Connect(ctx, sqldb.SQLite, sqldb.SQLiteDSN(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		return withSQL(ctx, db, sqldb.SQLite)
	case config.DriverPostgres:
		db, err := Connect(ctx, sqldb.Postgres, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return withSQL(ctx, db, sqldb.Postgres)
	case config.DriverMongo:
		return mongodb.New(ctx, cfg.MongoURL)
	case config.DriverFirestore:
		return firestore.New(ctx, cfg.FirestoreProject, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func withSQL(ctx context.Context, db *sql.DB, dialect string) (repository.StoryRepository, error) {
	repo, err := sqldb.New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
