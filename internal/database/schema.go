package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		email      VARCHAR(255) NOT NULL,
		name       VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS shows (
		id             CHAR(36)        NOT NULL PRIMARY KEY,
		movie_id       VARCHAR(64)     NOT NULL,
		movie_title    VARCHAR(255)    NOT NULL DEFAULT '',
		starts_at      DATETIME        NOT NULL,
		price_cents    BIGINT UNSIGNED NOT NULL,
		occupied_seats JSON            NOT NULL,
		version        BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at     DATETIME(3)     NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at     DATETIME(3)     NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_shows_movie_start (movie_id, starts_at),
		KEY idx_shows_starts_at (starts_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id           CHAR(36)        NOT NULL PRIMARY KEY,
		user_id      VARCHAR(64)     NOT NULL,
		show_id      CHAR(36)        NOT NULL,
		booked_seats JSON            NOT NULL,
		amount_cents BIGINT UNSIGNED NOT NULL,
		status       VARCHAR(16)     NOT NULL DEFAULT 'PENDING',
		payment_ref  VARCHAR(255)    NULL,
		payment_url  TEXT            NULL,
		created_at   DATETIME(3)     NOT NULL,
		expires_at   DATETIME(3)     NOT NULL,
		paid_at      DATETIME(3)     NULL,
		KEY idx_bookings_status_expires (status, expires_at),
		KEY idx_bookings_user_created (user_id, created_at),
		CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS favorites (
		user_id    VARCHAR(64) NOT NULL,
		movie_id   VARCHAR(64) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		PRIMARY KEY (user_id, movie_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
