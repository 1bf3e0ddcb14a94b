// Package charstore persists character variable stores between runs using
// SQLite, so a character's state survives separate CLI invocations.
package charstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed persistence layer for character variables.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (creating if needed) the store at the given path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS character_vars (
			character_id TEXT NOT NULL,
			name         TEXT NOT NULL,
			type         TEXT NOT NULL,
			value        TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			PRIMARY KEY (character_id, name)
		);
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveVariables replaces the persisted store of one character with vars.
func (s *Store) SaveVariables(charID string, vars map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM character_vars WHERE character_id = ?", charID); err != nil {
		return fmt.Errorf("clear previous variables: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	stmt, err := tx.Prepare(`
		INSERT INTO character_vars (character_id, name, type, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for name, value := range vars {
		typ, enc := encodeValue(value)
		if _, err := stmt.Exec(charID, name, typ, enc, now); err != nil {
			return fmt.Errorf("insert variable %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// LoadVariables returns one character's persisted variables, an empty map
// when none are stored.
func (s *Store) LoadVariables(charID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT name, type, value FROM character_vars WHERE character_id = ?", charID)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	vars := map[string]interface{}{}
	for rows.Next() {
		var name, typ, raw string
		if err := rows.Scan(&name, &typ, &raw); err != nil {
			return nil, fmt.Errorf("scan variable row: %w", err)
		}
		v, err := decodeValue(typ, raw)
		if err != nil {
			return nil, fmt.Errorf("decode variable %s: %w", name, err)
		}
		vars[name] = v
	}
	return vars, rows.Err()
}

// Characters lists ids that have persisted variables.
func (s *Store) Characters() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT DISTINCT character_id FROM character_vars ORDER BY character_id")
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan character row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeValue(v interface{}) (typ, raw string) {
	switch t := v.(type) {
	case nil:
		return "null", ""
	case bool:
		return "bool", strconv.FormatBool(t)
	case int64:
		return "int", strconv.FormatInt(t, 10)
	case float64:
		return "float", strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return "string", t
	}
	return "string", fmt.Sprintf("%v", v)
}

func decodeValue(typ, raw string) (interface{}, error) {
	switch typ {
	case "null":
		return nil, nil
	case "bool":
		return strconv.ParseBool(raw)
	case "int":
		return strconv.ParseInt(raw, 10, 64)
	case "float":
		return strconv.ParseFloat(raw, 64)
	case "string":
		return raw, nil
	}
	return nil, fmt.Errorf("unknown value type %q", typ)
}
