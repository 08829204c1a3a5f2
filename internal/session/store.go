// Package session keeps the signed session token of a CLI user on disk so
// it survives between invocations until an explicit logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

type record struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
}

// FileStore persists one session record as JSON.
type FileStore struct {
	path   string
	tokens ports.TokenIssuer
}

func NewFileStore(path string, tokens ports.TokenIssuer) *FileStore {
	return &FileStore{path: path, tokens: tokens}
}

func (s *FileStore) Path() string { return s.path }

// Save signs sess and writes it, replacing any previous record.
func (s *FileStore) Save(sess domain.Session) error {
	tok, err := s.tokens.Issue(sess)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(record{Token: tok, Session: sess}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load returns the stored session after re-validating its token. A record
// that no longer validates is removed and reported as ErrNoSession.
func (s *FileStore) Load() (domain.Session, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, ErrNoSession
		}
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		_ = s.Clear()
		return domain.Session{}, ErrNoSession
	}
	sess, err := s.tokens.Parse(rec.Token)
	if err != nil {
		_ = s.Clear()
		return domain.Session{}, ErrNoSession
	}
	return sess, nil
}

// Token returns the raw signed token of the stored session.
func (s *FileStore) Token() (string, error) {
	if _, err := s.Load(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return "", err
	}
	return rec.Token, nil
}

// Clear forgets the session. Clearing an absent session is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
