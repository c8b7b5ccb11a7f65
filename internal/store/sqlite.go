package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteDB wraps a sql.DB connection to the journal database.
type sqliteDB struct {
	*sql.DB
	path string
}

// SQLitePersister keeps the collection in a SQLite table. Each Save replaces
// the table contents inside one transaction, which gives the same
// all-or-nothing guarantee as the JSON file's rename.
type SQLitePersister struct {
	db *sqliteDB
}

// OpenSQLite opens (or creates) the database at path, configures pragmas,
// and runs migrations.
func OpenSQLite(path string) (*SQLitePersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newSQLitePersister(&sqliteDB{DB: sqlDB, path: path})
}

// OpenSQLiteMemory opens an in-memory database for testing.
func OpenSQLiteMemory() (*SQLitePersister, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every connection to :memory: is its own database.
	sqlDB.SetMaxOpenConns(1)
	return newSQLitePersister(&sqliteDB{DB: sqlDB, path: ":memory:"})
}

func newSQLitePersister(db *sqliteDB) (*SQLitePersister, error) {
	if err := db.configurePragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (db *sqliteDB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error { return p.db.Close() }

func (p *SQLitePersister) Location() string { return p.db.path }

// Ping reports whether the database is reachable.
func (p *SQLitePersister) Ping() error { return p.db.Ping() }

// Load reads every row in insertion order.
func (p *SQLitePersister) Load() ([]Entry, error) {
	rows, err := p.db.Query(`
		SELECT id, type, timestamp, text, tags, sentiment, description, cooldown_days, owner_id, status
		FROM entries ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var r wireRecord
		var text, tags, sentiment, desc, owner, status sql.NullString
		var cooldown sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Type, &r.Timestamp, &text, &tags, &sentiment, &desc, &cooldown, &owner, &status); err != nil {
			return nil, &CorruptStoreError{Location: p.db.path, Err: err}
		}
		if text.Valid {
			r.Text = &text.String
		}
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
				return nil, &CorruptStoreError{Location: p.db.path, Err: fmt.Errorf("entry %q tags: %w", r.ID, err)}
			}
		}
		r.Sentiment = Sentiment(sentiment.String)
		if desc.Valid {
			r.Description = &desc.String
		}
		if cooldown.Valid {
			days := int(cooldown.Int64)
			r.CooldownDays = &days
		}
		if owner.Valid {
			r.OwnerID = &owner.String
		}
		r.Status = Status(status.String)

		e, err := r.entry()
		if err != nil {
			return nil, &CorruptStoreError{Location: p.db.path, Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &CorruptStoreError{Location: p.db.path, Err: err}
	}
	return entries, nil
}

// Save replaces all rows in a single transaction.
func (p *SQLitePersister) Save(entries []Entry) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (seq, id, type, timestamp, text, tags, sentiment, description, cooldown_days, owner_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		ts := e.Timestamp.UTC().Format(TimeLayout)
		var execErr error
		switch e.Kind {
		case KindEcho:
			tags := e.Tags
			if tags == nil {
				tags = []string{}
			}
			tagJSON, err := json.Marshal(tags)
			if err != nil {
				return fmt.Errorf("encode tags %s: %w", e.ID, err)
			}
			_, execErr = stmt.Exec(i+1, e.ID, string(e.Kind), ts, e.Text, string(tagJSON), string(e.Sentiment), nil, nil, nil, nil)
		case KindHoard:
			_, execErr = stmt.Exec(i+1, e.ID, string(e.Kind), ts, nil, nil, nil, e.Description, e.CooldownDays, e.OwnerID, string(e.Status))
		default:
			return fmt.Errorf("save entry %s: unknown type %q", e.ID, e.Kind)
		}
		if execErr != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
