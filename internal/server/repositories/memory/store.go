// Package memory is an in-process implementation of every repository plus
// dbx.Transactor. It backs "memory://" deployments and service tests.
//
// Transactions are serialised: WithinTx holds txMu for its whole duration,
// snapshots state on entry and restores it if fn fails. Writes made outside
// a transaction take txMu too, so they never interleave with one. Reads made
// outside a transaction see the snapshot while one is in flight, so they
// never observe writes that may still be rolled back.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/applications"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/otps"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/skills"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/users"
)

var errNoSQL = errors.New("memory store does not execute SQL")

type state struct {
	users  map[string]models.User
	otps   []models.OTP // insertion order, newest last
	tasks  map[string]models.Task
	apps   map[string]models.Application
	skills map[string]models.Skill
	links  map[string]map[string]struct{} // user id -> skill ids
}

func newState() state {
	return state{
		users:  map[string]models.User{},
		tasks:  map[string]models.Task{},
		apps:   map[string]models.Application{},
		skills: map[string]models.Skill{},
		links:  map[string]map[string]struct{}{},
	}
}

func (s *state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	c.otps = append([]models.OTP(nil), s.otps...)
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.skills {
		c.skills[k] = v
	}
	for u, set := range s.links {
		cs := make(map[string]struct{}, len(set))
		for id := range set {
			cs[id] = struct{}{}
		}
		c.links[u] = cs
	}
	return c
}

// Store holds all tables.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state
	// committed is the pre-transaction snapshot while WithinTx runs.
	committed *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// handle satisfies dbx.DBTX so memory repos can be vended through the same
// RepositoryManager API as SQL ones. It never runs SQL.
type handle struct {
	inTx bool
}

func (handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func asHandle(db dbx.DBTX) handle {
	if h, ok := db.(*handle); ok {
		return *h
	}
	return handle{}
}

func (s *Store) Conn() dbx.DBTX { return &handle{} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.committed = &snapshot
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.finish(&snapshot)
			panic(p)
		}
		if err != nil {
			s.finish(&snapshot)
			return
		}
		s.finish(nil)
	}()

	return fn(ctx, &handle{inTx: true})
}

// finish ends a transaction, rolling back to snapshot when it is not nil.
func (s *Store) finish(snapshot *state) {
	s.mu.Lock()
	if snapshot != nil {
		s.st = *snapshot
	}
	s.committed = nil
	s.mu.Unlock()
}

func (s *Store) read(h handle, fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !h.inTx && s.committed != nil {
		return fn(s.committed)
	}
	return fn(&s.st)
}

func (s *Store) write(h handle, fn func(st *state) error) error {
	if !h.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.st)
}

// RunMigrations is a no-op; the schema is implicit.
func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *Store) Users(db dbx.DBTX) users.Repository {
	return &userRepo{s: s, h: asHandle(db)}
}

func (s *Store) OTPs(db dbx.DBTX) otps.Repository {
	return &otpRepo{s: s, h: asHandle(db)}
}

func (s *Store) Tasks(db dbx.DBTX) tasks.Repository {
	return &taskRepo{s: s, h: asHandle(db)}
}

func (s *Store) Applications(db dbx.DBTX) applications.Repository {
	return &applicationRepo{s: s, h: asHandle(db)}
}

func (s *Store) Skills(db dbx.DBTX) skills.Repository {
	return &skillRepo{s: s, h: asHandle(db)}
}

// page applies skip/limit to an already ordered slice. limit <= 0 means all.
func page[T any](in []T, skip, limit int) []T {
	if skip >= len(in) {
		return nil
	}
	if skip > 0 {
		in = in[skip:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
