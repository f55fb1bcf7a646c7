// Package postgres is the lib/pq-backed implementation of store.Driver,
// following the teacher's raw-SQL repository style (store/db/postgres)
// rather than an ORM: explicit placeholders, RETURNING clauses, and
// fmt.Errorf-wrapped errors at the query boundary.
package postgres

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// DB is the concrete store.Driver backed by PostgreSQL.
//
// sessionLocks gives each session_id its own mutex so that concurrent
// turns on the same session serialize (spec.md §5 "writes to a single
// session's history and workflow state are serializable"), while turns on
// distinct sessions proceed fully in parallel.
type DB struct {
	db *sql.DB

	locksMu      sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// Open connects to dsn and verifies connectivity with a ping.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres: dsn required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open")
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	return &DB{db: sqlDB, sessionLocks: make(map[string]*sync.Mutex)}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// SQLDB exposes the underlying *sql.DB for sibling packages (vectorstore,
// migrations) that need to issue raw queries DB's repository methods don't
// cover.
func (d *DB) SQLDB() *sql.DB {
	return d.db
}

// sessionLock returns the mutex guarding sessionID, creating it on first use.
func (d *DB) sessionLock(sessionID string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	m, ok := d.sessionLocks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		d.sessionLocks[sessionID] = m
	}
	return m
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

func wrap(err error, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("postgres: %s: %w", action, err)
}
