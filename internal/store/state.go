// Package store provides the SQLite-backed persisted client state: the small
// key-value set a signed-in client keeps between runs.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Well-known keys.
const (
	KeyToken  = "token"
	KeyUserID = "userId"
)

// ErrNotFound is returned by Get for keys that are not set.
var ErrNotFound = errors.New("store: key not found")

// State is the persisted client state database.
type State struct {
	db *sql.DB
}

// Session is the signed-in identity read from persisted state.
type Session struct {
	Token  string
	UserID string
}

// SignedIn reports whether a user identifier is present.
func (s Session) SignedIn() bool { return s.UserID != "" }

// Open opens or creates the state database at the given path.
func Open(dbPath string) (*State, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(2000)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the state database.
func (s *State) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *State) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM client_state WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (s *State) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO client_state (key, value, updated_at)
		VALUES (?, ?, ?)`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *State) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM client_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Session reads the token and user identifier. Missing keys are empty.
func (s *State) Session() (Session, error) {
	token, err := s.getOptional(KeyToken)
	if err != nil {
		return Session{}, err
	}
	userID, err := s.getOptional(KeyUserID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: userID}, nil
}

func (s *State) getOptional(key string) (string, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SaveSession writes both credentials in one transaction.
func (s *State) SaveSession(sess Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, kv := range [][2]string{{KeyToken, sess.Token}, {KeyUserID, sess.UserID}} {
		if kv[1] == "" {
			if _, err := tx.Exec("DELETE FROM client_state WHERE key = ?", kv[0]); err != nil {
				return err
			}
			continue
		}
		_, err := tx.Exec(`INSERT OR REPLACE INTO client_state (key, value, updated_at)
			VALUES (?, ?, ?)`, kv[0], kv[1], now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearSession removes the token and user identifier.
func (s *State) ClearSession() error {
	return s.SaveSession(Session{})
}
