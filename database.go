package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// normalizeDatabaseURL rewrites postgresql:// to postgres:// and makes sure an
// sslmode is present, for compatibility with hosted connection strings.
func normalizeDatabaseURL(databaseURL string) string {
	if len(databaseURL) > 11 && databaseURL[:11] == "postgresql:" {
		databaseURL = "postgres" + databaseURL[10:]
	}
	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL = databaseURL + separator + "sslmode=disable"
	}
	return databaseURL
}

// initDB opens the PostgreSQL connection pool, waiting for the database to
// come up, and bootstraps the schema. The pool is shared by all requests;
// every query in this service is read-only except user creation and seeding.
func initDB(cfg *Config, log zerolog.Logger) (*sql.DB, error) {
	databaseURL := normalizeDatabaseURL(cfg.DatabaseURL)

	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Wait for database to be ready with retries
	maxRetries := 60
	retryDelay := 2 * time.Second

	var db *sql.DB
	for i := 0; i < maxRetries; i++ {
		db = stdlib.OpenDB(*config)
		if err := db.Ping(); err != nil {
			db.Close()
			if i < maxRetries-1 {
				if i%10 == 0 || i < 5 {
					log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries).
						Dur("retry_in", retryDelay).Msg("database not ready, retrying")
				}
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}
		log.Info().Msg("database connection established")
		break
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
