package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

const recordColumns = `id, manifest_path, crate_name, model, provider, prompt_tokens, description, status, error_kind, created_at`

// SQLiteDescriptionStore is an implementation of DescriptionStore that uses SQLite.
// A single connection is shared and guarded by a mutex.
type SQLiteDescriptionStore struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
}

// NewSQLiteDescriptionStore creates a new SQLiteDescriptionStore instance.
func NewSQLiteDescriptionStore() *SQLiteDescriptionStore {
	return &SQLiteDescriptionStore{}
}

// Open creates a store and initializes it at dbPath.
func Open(dbPath string) (*SQLiteDescriptionStore, error) {
	s := NewSQLiteDescriptionStore()
	if err := s.Initialize(dbPath); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize initializes the store with the given database path.
func (s *SQLiteDescriptionStore) Initialize(dbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open SQLite database").
			WithField("path", dbPath)
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return errortypes.DatabaseError(err, "failed to create table").
			WithField("path", dbPath)
	}

	return nil
}

// createTable creates the crate_descriptions table if it doesn't exist.
func (s *SQLiteDescriptionStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS crate_descriptions (
		id TEXT PRIMARY KEY,
		manifest_path TEXT NOT NULL,
		crate_name TEXT NOT NULL,
		model TEXT NOT NULL,
		provider TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	return s.exec(createTableSQL)
}

func (s *SQLiteDescriptionStore) exec(query string) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteDescriptionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *SQLiteDescriptionStore) ready() error {
	if s.conn == nil {
		return errortypes.DatabaseError(errors.New("store not initialized"), "description store unavailable")
	}
	return nil
}

// Save stores the record in the database.
func (s *SQLiteDescriptionStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		return errortypes.ValidationError(errors.New("record id is empty"), "invalid description record")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	insertSQL := `
	INSERT OR REPLACE INTO crate_descriptions (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := s.conn.Prepare(insertSQL)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare insert statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, rec.ID)
	stmt.BindText(2, rec.ManifestPath)
	stmt.BindText(3, rec.CrateName)
	stmt.BindText(4, rec.Model)
	stmt.BindText(5, rec.Provider)
	stmt.BindInt64(6, int64(rec.PromptTokens))
	stmt.BindText(7, rec.Description)
	stmt.BindText(8, rec.Status)
	stmt.BindText(9, rec.ErrorKind)
	stmt.BindInt64(10, rec.CreatedAt.UnixNano())

	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to insert description").
			WithField("id", rec.ID)
	}

	return nil
}

// Get returns the record with the given id.
func (s *SQLiteDescriptionStore) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return Record{}, err
	}

	stmt, err := s.conn.Prepare(`SELECT ` + recordColumns + ` FROM crate_descriptions WHERE id = ?;`)
	if err != nil {
		return Record{}, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	hasRow, err := stmt.Step()
	if err != nil {
		return Record{}, errortypes.DatabaseError(err, "failed to read description").WithField("id", id)
	}
	if !hasRow {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return scanRecord(stmt), nil
}

// List returns up to limit records ordered by creation time, newest first.
func (s *SQLiteDescriptionStore) List(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	// SQLite treats a negative LIMIT as no limit.
	if limit <= 0 {
		limit = -1
	}

	stmt, err := s.conn.Prepare(`SELECT ` + recordColumns + ` FROM crate_descriptions
	ORDER BY created_at DESC, id ASC LIMIT ?;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindInt64(1, int64(limit))

	records := []Record{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to list descriptions")
		}
		if !hasRow {
			break
		}
		records = append(records, scanRecord(stmt))
	}
	return records, nil
}

// Delete removes the record with the given id.
func (s *SQLiteDescriptionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	stmt, err := s.conn.Prepare(`DELETE FROM crate_descriptions WHERE id = ?;`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare delete statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to delete description").WithField("id", id)
	}
	if s.conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes all records.
func (s *SQLiteDescriptionStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return 0, err
	}

	if err := s.exec(`DELETE FROM crate_descriptions;`); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear descriptions")
	}
	return s.conn.Changes(), nil
}

// scanRecord reads the current row. Column order follows recordColumns.
func scanRecord(stmt *sqlite.Stmt) Record {
	return Record{
		ID:           stmt.ColumnText(0),
		ManifestPath: stmt.ColumnText(1),
		CrateName:    stmt.ColumnText(2),
		Model:        stmt.ColumnText(3),
		Provider:     stmt.ColumnText(4),
		PromptTokens: int(stmt.ColumnInt64(5)),
		Description:  stmt.ColumnText(6),
		Status:       stmt.ColumnText(7),
		ErrorKind:    stmt.ColumnText(8),
		CreatedAt:    time.Unix(0, stmt.ColumnInt64(9)),
	}
}
