// Package store persists per-user training programs. Each user token maps
// to one JSON record in SQLite, rewritten wholesale on every save. All
// read-modify-write cycles for a user run under that user's lock, so
// concurrent requests for the same token serialize while distinct users
// never contend.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"stride/internal/plan"
)

// ProgramStore is the durable key→program store.
type ProgramStore struct {
	db  *sql.DB
	log *zap.Logger

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// Open initializes the SQLite database at the given path and ensures the
// schema exists. Use ":memory:" for tests.
func Open(path string, log *zap.Logger) (*ProgramStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("Failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("Failed to set sqlite journal_mode=WAL", zap.Error(err))
	}

	schema := `CREATE TABLE IF NOT EXISTS programs (
		user_token TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("Program store opened", zap.String("path", path))
	return &ProgramStore{
		db:    db,
		log:   log,
		users: make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the underlying database handle.
func (s *ProgramStore) Close() error {
	return s.db.Close()
}

// userLock returns the mutex serializing access to one user's record.
func (s *ProgramStore) userLock(user string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.users[user]
	if !ok {
		l = &sync.Mutex{}
		s.users[user] = l
	}
	return l
}

// Load returns the stored program for a user, or an empty program when no
// record exists. A record that exists but cannot be decoded is a storage
// error, never silently replaced.
func (s *ProgramStore) Load(user string) (*plan.Program, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM programs WHERE user_token = ?", user).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.NewProgram(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load program for %s: %w", user, err)
	}

	program := plan.NewProgram()
	if err := json.Unmarshal([]byte(payload), program); err != nil {
		return nil, fmt.Errorf("program record for %s: %w", user, plan.ErrCorruptRecord)
	}
	return program, nil
}

// Save persists the whole program for a user, sessions sorted ascending by
// date. The single upsert statement commits atomically; a failure leaves
// the previous record intact.
func (s *ProgramStore) Save(program *plan.Program, user string) error {
	plan.SortSessions(program.Sessions)

	payload, err := json.Marshal(program)
	if err != nil {
		return fmt.Errorf("failed to encode program for %s: %w", user, err)
	}

	_, err = s.db.Exec(`INSERT INTO programs (user_token, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_token) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		user, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save program for %s: %w", user, err)
	}

	s.log.Debug("Program saved",
		zap.String("user", user),
		zap.Int("sessions", len(program.Sessions)))
	return nil
}

// Update runs fn against the user's current program and persists the
// result, holding the user's lock across the whole load-mutate-save
// cycle. When fn returns an error nothing is persisted.
func (s *ProgramStore) Update(user string, fn func(*plan.Program) error) (*plan.Program, error) {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	program, err := s.Load(user)
	if err != nil {
		return nil, err
	}
	if err := fn(program); err != nil {
		return nil, err
	}
	if err := s.Save(program, user); err != nil {
		return nil, err
	}
	return program, nil
}

// GetSorted returns a user's sessions ordered by date. Order is "asc" or
// "desc"; anything else defaults to ascending.
func (s *ProgramStore) GetSorted(user, order string) ([]plan.Session, error) {
	program, err := s.Load(user)
	if err != nil {
		return nil, err
	}
	if order == "desc" {
		plan.SortSessionsDesc(program.Sessions)
	} else {
		plan.SortSessions(program.Sessions)
	}
	return program.Sessions, nil
}

// FilterByDate returns sessions within an inclusive day-only range. Both
// bounds are optional dd-mm-yyyy strings; time of day is ignored.
func (s *ProgramStore) FilterByDate(user, from, to string) ([]plan.Session, error) {
	var fromDay, toDay time.Time
	var hasFrom, hasTo bool

	if from != "" {
		t, err := time.Parse(plan.FilterDateLayout, from)
		if err != nil {
			return nil, &plan.ValidationError{
				Field:  "from_date",
				Reason: fmt.Sprintf("%q does not match %s", from, plan.FilterDateLayout),
			}
		}
		fromDay, hasFrom = t, true
	}
	if to != "" {
		t, err := time.Parse(plan.FilterDateLayout, to)
		if err != nil {
			return nil, &plan.ValidationError{
				Field:  "to_date",
				Reason: fmt.Sprintf("%q does not match %s", to, plan.FilterDateLayout),
			}
		}
		toDay, hasTo = t, true
	}

	program, err := s.Load(user)
	if err != nil {
		return nil, err
	}

	filtered := make([]plan.Session, 0, len(program.Sessions))
	for _, session := range program.Sessions {
		t, err := session.Time()
		if err != nil {
			continue
		}
		day := t.Truncate(24 * time.Hour)
		if hasFrom && day.Before(fromDay) {
			continue
		}
		if hasTo && day.After(toDay) {
			continue
		}
		filtered = append(filtered, session)
	}
	return filtered, nil
}

// GetProfile returns the stored athlete profile for a user.
func (s *ProgramStore) GetProfile(user string) (map[string]any, error) {
	program, err := s.Load(user)
	if err != nil {
		return nil, err
	}
	return program.Profile, nil
}

// UpdateProfile replaces the athlete profile, leaving sessions untouched.
func (s *ProgramStore) UpdateProfile(profile map[string]any, user string) (*plan.Program, error) {
	return s.Update(user, func(p *plan.Program) error {
		p.Profile = profile
		return nil
	})
}

// Delete removes a user's record. Deleting an absent record is a no-op.
func (s *ProgramStore) Delete(user string) error {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.db.Exec("DELETE FROM programs WHERE user_token = ?", user); err != nil {
		return fmt.Errorf("failed to delete program for %s: %w", user, err)
	}
	return nil
}
