package local

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nudgeapp/nudge/platform"
)

const schema = `
CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	metadata   TEXT NOT NULL DEFAULT '{}',
	sound      INTEGER NOT NULL DEFAULT 1,
	trigger_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// store persists the pending-reminder set and the permission setting.
type store struct {
	db *sql.DB
}

func openStore(dbPath string) (*store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) close() error { return s.db.Close() }

func (s *store) insert(content platform.Content, trigger platform.Trigger) (platform.Reminder, error) {
	id := uuid.New().String()
	metadata, _ := json.Marshal(content.Metadata)

	_, err := s.db.Exec(`
		INSERT INTO reminders (id, title, body, metadata, sound, trigger_at)
		VALUES (?,?,?,?,?,?)`,
		id, content.Title, content.Body, string(metadata), boolInt(content.Sound), trigger.At,
	)
	if err != nil {
		return platform.Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}
	return platform.Reminder{ID: id, Content: content, Trigger: trigger}, nil
}

func (s *store) delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM reminders WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return platform.ErrNotFound
	}
	return nil
}

func (s *store) deleteAll() error {
	if _, err := s.db.Exec(`DELETE FROM reminders`); err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}
	return nil
}

func (s *store) list() ([]platform.Reminder, error) {
	rows, err := s.db.Query(`SELECT id, title, body, metadata, sound, trigger_at FROM reminders ORDER BY trigger_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []platform.Reminder
	for rows.Next() {
		var r platform.Reminder
		var metadataJSON string
		var sound int
		if err := rows.Scan(&r.ID, &r.Content.Title, &r.Content.Body, &metadataJSON, &sound, &r.Trigger.At); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(metadataJSON), &r.Content.Metadata)
		r.Content.Sound = sound != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *store) permission() (platform.PermissionStatus, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key='permission'`).Scan(&value)
	if err == sql.ErrNoRows {
		return platform.PermissionUndetermined, nil
	}
	if err != nil {
		return platform.PermissionUndetermined, fmt.Errorf("read permission: %w", err)
	}
	return platform.PermissionStatus(value), nil
}

func (s *store) setPermission(status platform.PermissionStatus) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES ('permission', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, string(status))
	if err != nil {
		return fmt.Errorf("write permission: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
