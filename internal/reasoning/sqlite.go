package reasoning

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/logging"
)

// SQLiteStore persists reasoning chains in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logging.Logger
}

// OpenSQLite opens (or creates) the chain database at path and runs
// migrations. Use ":memory:" for an in-memory database in tests.
func OpenSQLite(path string, log *logging.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// a single connection sidesteps SQLITE_BUSY on concurrent writes
	// and keeps ":memory:" databases coherent across the pool
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.Sub("reasoning")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.log.Info().Str("path", path).Msg("chain database opened")
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateChain allocates a new empty chain.
func (s *SQLiteStore) CreateChain() (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO chains (id, created_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("creating chain: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) chainExists(chainID string) error {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM chains WHERE id = ?`, chainID).Scan(&one)
	if err == sql.ErrNoRows {
		return hive.NotFound("chain", chainID)
	}
	return err
}

// SaveEntry appends an entry to the main chain.
func (s *SQLiteStore) SaveEntry(chainID string, e domain.Entry) error {
	return s.insertEntry(chainID, "", e)
}

// SaveBranchEntry appends an entry to a named branch.
func (s *SQLiteStore) SaveBranchEntry(chainID, branchID string, e domain.Entry) error {
	e.BranchID = branchID
	return s.insertEntry(chainID, branchID, e)
}

func (s *SQLiteStore) insertEntry(chainID, branchID string, e domain.Entry) error {
	if err := s.chainExists(chainID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO entries
		   (chain_id, branch_id, thought_number, content, agent_id, branch_from, content_hash, parent_hash, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chainID, branchID, e.ThoughtNumber, e.Content, e.AgentID,
		e.BranchFromThought, e.ContentHash, e.ParentHash,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return nil
}

// Entry returns the main-chain entry at thought number n (1-based).
func (s *SQLiteStore) Entry(chainID string, n int) (domain.Entry, error) {
	row := s.db.QueryRow(
		`SELECT branch_id, thought_number, content, agent_id, branch_from, content_hash, parent_hash, timestamp
		 FROM entries WHERE chain_id = ? AND branch_id = '' AND thought_number = ?`,
		chainID, n,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		if cerr := s.chainExists(chainID); cerr != nil {
			return domain.Entry{}, cerr
		}
		return domain.Entry{}, hive.New(hive.CodeNotFound, "chain %s has no entry %d", chainID, n)
	}
	return e, err
}

// EntryCount returns the main chain's length.
func (s *SQLiteStore) EntryCount(chainID string) (int, error) {
	if err := s.chainExists(chainID); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM entries WHERE chain_id = ? AND branch_id = ''`, chainID,
	).Scan(&n)
	return n, err
}

// Entries returns all main-chain entries in order.
func (s *SQLiteStore) Entries(chainID string) ([]domain.Entry, error) {
	if err := s.chainExists(chainID); err != nil {
		return nil, err
	}
	return s.queryEntries(
		`SELECT branch_id, thought_number, content, agent_id, branch_from, content_hash, parent_hash, timestamp
		 FROM entries WHERE chain_id = ? AND branch_id = '' ORDER BY id`, chainID)
}

// Branch returns a branch's entries in order.
func (s *SQLiteStore) Branch(chainID, branchID string) ([]domain.Entry, error) {
	if err := s.chainExists(chainID); err != nil {
		return nil, err
	}
	return s.queryEntries(
		`SELECT branch_id, thought_number, content, agent_id, branch_from, content_hash, parent_hash, timestamp
		 FROM entries WHERE chain_id = ? AND branch_id = ? ORDER BY id`, chainID, branchID)
}

func (s *SQLiteStore) queryEntries(query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.Entry, error) {
	var e domain.Entry
	var ts string
	err := row.Scan(
		&e.BranchID, &e.ThoughtNumber, &e.Content, &e.AgentID,
		&e.BranchFromThought, &e.ContentHash, &e.ParentHash, &ts,
	)
	if err != nil {
		return domain.Entry{}, err
	}
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	return e, nil
}
