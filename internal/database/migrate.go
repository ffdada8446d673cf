package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS words (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		keyword      TEXT NOT NULL COLLATE NOCASE UNIQUE,
		abbreviation TEXT NOT NULL COLLATE NOCASE UNIQUE,
		description  TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var mysqlMigrations = []string{
	`CREATE TABLE IF NOT EXISTS words (
		id           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		keyword      VARCHAR(255) NOT NULL,
		abbreviation VARCHAR(64) NOT NULL,
		description  TEXT NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uk_words_keyword (keyword),
		UNIQUE KEY uk_words_abbreviation (abbreviation)
	) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_0900_ai_ci`,
}

// Migrate creates the schema for the connection's driver. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var migrations []string
	switch db.DriverName() {
	case "mysql":
		migrations = mysqlMigrations
	case "sqlite":
		migrations = sqliteMigrations
	default:
		return fmt.Errorf("no migrations for driver %s", db.DriverName())
	}

	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d > %w", i, err)
		}
	}
	return nil
}
