package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/roach88/rowbridge/internal/ir"
)

var userPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@+-]*$`)

// ValidUser reports whether user can name a database file.
func ValidUser(user string) error {
	if !userPattern.MatchString(user) {
		return fmt.Errorf("invalid user %q", user)
	}
	return nil
}

// Pool hands out sessions on per-user databases under one directory.
// Databases are opened on first use and kept open until Close.
// A Pool is safe for concurrent use.
type Pool struct {
	dir string

	mu     sync.Mutex
	stores map[string]*Store
	closed bool
}

// NewPool creates a pool rooted at dir. The directory is created on first use.
func NewPool(dir string) *Pool {
	return &Pool{dir: dir, stores: make(map[string]*Store)}
}

// Dir returns the pool's root directory.
func (p *Pool) Dir() string {
	return p.dir
}

// Store returns user's database, opening it if needed.
func (p *Pool) Store(user string) (*Store, error) {
	if err := ValidUser(user); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("store: pool closed")
	}
	if s, ok := p.stores[user]; ok {
		return s, nil
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	s, err := Open(filepath.Join(p.dir, user+".db"))
	if err != nil {
		return nil, fmt.Errorf("open database for %s: %w", user, err)
	}
	p.stores[user] = s
	return s, nil
}

// Acquire opens a session on user's database.
func (p *Pool) Acquire(ctx context.Context, user string, mode Mode) (*Session, error) {
	s, err := p.Store(user)
	if err != nil {
		return nil, err
	}
	return s.Session(ctx, mode)
}

// EnsureSchema creates the model tables in user's database.
func (p *Pool) EnsureSchema(ctx context.Context, user string, defs []ir.ModelDefinition) error {
	s, err := p.Store(user)
	if err != nil {
		return err
	}
	return s.EnsureSchema(ctx, defs)
}

// Close closes every open database. The pool cannot be used afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	for user, s := range p.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", user, err))
		}
		delete(p.stores, user)
	}
	return errors.Join(errs...)
}
