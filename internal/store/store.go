// Package store handles database connectivity, migrations, and data access
// for the federation core. It supports both SQLite (default, no external
// dependencies) and PostgreSQL (for larger deployments).
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store wraps a database connection and provides all data access methods for
// actors, objects, activities, follow requests, reactions, invoices, and the
// supplemented filter-rule and notification tables.
type Store struct {
	db     *sql.DB
	driver string

	// In-memory caches to reduce DB round-trips on hot read paths.
	actorIDByKeyID sync.Map // key id -> actor id, used by ownership checks
	followCache    sync.Map // source|target -> FollowRequest.Status
}

// Open opens a database connection. The URL can be:
//   - a bare file path like "mitra.db" -> SQLite
//   - "sqlite:///path/to/file.db" -> SQLite
//   - "postgres://..." -> PostgreSQL
func Open(databaseURL string) (*Store, error) {
	driver, dsn := detectDriver(databaseURL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if driver == "sqlite" {
		// WAL mode allows multiple concurrent readers alongside one writer.
		// busy_timeout turns single-writer contention into a bounded retry
		// instead of an immediate SQLITE_BUSY to the caller.
		const sqliteMaxConns = 8
		db.SetMaxOpenConns(sqliteMaxConns)
		db.SetMaxIdleConns(sqliteMaxConns)

		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := db.Exec(pragma); err != nil {
				return nil, fmt.Errorf("sqlite pragma (%s): %w", pragma, err)
			}
		}
		slog.Info("sqlite database opened", "max_conns", sqliteMaxConns)
	} else {
		db.SetMaxOpenConns(20)
	}

	return &Store{db: db, driver: driver}, nil
}

// Migrate runs all pending database migrations.
func (s *Store) Migrate() error {
	slog.Info("running database migrations")
	for _, m := range commonMigrations {
		if _, err := s.db.Exec(m); err != nil {
			if s.driver == "postgres" && strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	slog.Info("migrations complete")
	return nil
}

// commonMigrations lists DDL statements shared between SQLite and PostgreSQL.
// Any new migration must be appended here, never edited in place.
var commonMigrations = []string{
	`CREATE TABLE IF NOT EXISTS actors (
		id                  TEXT NOT NULL PRIMARY KEY,
		is_local            INTEGER NOT NULL DEFAULT 0,
		username            TEXT NOT NULL DEFAULT '',
		inbox               TEXT NOT NULL DEFAULT '',
		shared_inbox        TEXT NOT NULL DEFAULT '',
		followers_url       TEXT NOT NULL DEFAULT '',
		public_key_pem      TEXT NOT NULL DEFAULT '',
		public_key_id       TEXT NOT NULL DEFAULT '',
		also_known_as       TEXT NOT NULL DEFAULT '',
		moved_to            TEXT NOT NULL DEFAULT '',
		profile_json        TEXT NOT NULL DEFAULT '{}',
		updated_at          TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS actors_public_key_id ON actors(public_key_id)`,
	`CREATE TABLE IF NOT EXISTS objects (
		id            TEXT NOT NULL PRIMARY KEY,
		object_type   TEXT NOT NULL DEFAULT '',
		attributed_to TEXT NOT NULL DEFAULT '',
		in_reply_to   TEXT NOT NULL DEFAULT '',
		content_json  TEXT NOT NULL DEFAULT '{}',
		deleted       INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS objects_attributed_to ON objects(attributed_to)`,
	`CREATE INDEX IF NOT EXISTS objects_in_reply_to ON objects(in_reply_to)`,
	`CREATE TABLE IF NOT EXISTS follow_requests (
		activity_id TEXT NOT NULL PRIMARY KEY,
		source      TEXT NOT NULL,
		target      TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending',
		UNIQUE(source, target)
	)`,
	`CREATE INDEX IF NOT EXISTS follow_requests_source ON follow_requests(source)`,
	`CREATE INDEX IF NOT EXISTS follow_requests_target ON follow_requests(target)`,
	`CREATE TABLE IF NOT EXISTS reactions (
		activity_id TEXT NOT NULL PRIMARY KEY,
		author      TEXT NOT NULL,
		post_id     TEXT NOT NULL,
		content     TEXT NOT NULL DEFAULT '',
		emoji_name  TEXT NOT NULL DEFAULT '',
		UNIQUE(author, post_id, content)
	)`,
	`CREATE INDEX IF NOT EXISTS reactions_post_id ON reactions(post_id)`,
	`CREATE TABLE IF NOT EXISTS reposts (
		activity_id TEXT NOT NULL PRIMARY KEY,
		announcer   TEXT NOT NULL,
		object_id   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reposts_object_id ON reposts(object_id)`,
	`CREATE INDEX IF NOT EXISTS reposts_announcer ON reposts(announcer)`,
	`CREATE TABLE IF NOT EXISTS pinned_objects (
		actor_id  TEXT NOT NULL,
		object_id TEXT NOT NULL,
		UNIQUE(actor_id, object_id)
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id              TEXT NOT NULL PRIMARY KEY,
		sender          TEXT NOT NULL,
		recipient       TEXT NOT NULL,
		chain_id        TEXT NOT NULL,
		payment_address TEXT NOT NULL DEFAULT '',
		amount          INTEGER NOT NULL,
		status          TEXT NOT NULL DEFAULT 'requested',
		agreement_id    TEXT NOT NULL DEFAULT '',
		payout_tx_id    TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL DEFAULT '',
		updated_at      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS invoices_sender ON invoices(sender)`,
	`CREATE INDEX IF NOT EXISTS invoices_recipient ON invoices(recipient)`,
	`CREATE TABLE IF NOT EXISTS filter_rules (
		id          TEXT NOT NULL PRIMARY KEY,
		target      TEXT NOT NULL,
		is_reject   INTEGER NOT NULL DEFAULT 1,
		specificity INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS filter_rules_target ON filter_rules(target)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT NOT NULL PRIMARY KEY,
		recipient  TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL DEFAULT '',
		read       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient ON notifications(recipient)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		subscriber_id TEXT NOT NULL,
		recipient_id  TEXT NOT NULL,
		invoice_id    TEXT NOT NULL DEFAULT '',
		expires_at    TEXT NOT NULL DEFAULT '',
		UNIQUE(subscriber_id, recipient_id)
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_jobs (
		id          TEXT NOT NULL PRIMARY KEY,
		inbox       TEXT NOT NULL,
		activity_id TEXT NOT NULL,
		payload     TEXT NOT NULL,
		sender_key  TEXT NOT NULL DEFAULT '',
		attempts    INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'pending',
		not_before  TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL DEFAULT '',
		UNIQUE(inbox, activity_id)
	)`,
	`CREATE INDEX IF NOT EXISTS delivery_jobs_status ON delivery_jobs(status, not_before)`,
	`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ph returns the nth SQL placeholder token for the active driver.
// SQLite uses "?" for every position; PostgreSQL uses "$n".
func (s *Store) ph(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *Store) upsertConflictClause(conflictCols string, setCols []string) string {
	if s.driver == "postgres" {
		sets := make([]string, len(setCols))
		for i, c := range setCols {
			sets[i] = fmt.Sprintf("%s=EXCLUDED.%s", c, c)
		}
		return fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET %s", conflictCols, strings.Join(sets, ", "))
	}
	sets := make([]string, len(setCols))
	for i, c := range setCols {
		sets[i] = fmt.Sprintf("%s=excluded.%s", c, c)
	}
	return fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET %s", conflictCols, strings.Join(sets, ", "))
}

func detectDriver(u string) (driver, dsn string) {
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return "postgres", u
	}
	if strings.HasPrefix(u, "sqlite://") {
		return "sqlite", strings.TrimPrefix(u, "sqlite://")
	}
	return "sqlite", u
}

// scanStringRows scans a single-string-column result set into a slice,
// closing rows before returning.
func scanStringRows(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var result []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
