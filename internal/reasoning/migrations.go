package reasoning

import "fmt"

// migration is a single schema migration for the chain database.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create chains and entries",
		SQL: `
			CREATE TABLE chains (
				id         TEXT PRIMARY KEY,
				created_at TEXT NOT NULL
			);

			CREATE TABLE entries (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				chain_id       TEXT NOT NULL REFERENCES chains(id) ON DELETE CASCADE,
				branch_id      TEXT NOT NULL DEFAULT '',
				thought_number INTEGER NOT NULL,
				content        TEXT NOT NULL,
				agent_id       TEXT NOT NULL DEFAULT '',
				branch_from    INTEGER NOT NULL DEFAULT 0,
				content_hash   TEXT NOT NULL DEFAULT '',
				parent_hash    TEXT NOT NULL DEFAULT '',
				timestamp      TEXT NOT NULL
			);

			CREATE INDEX idx_entries_chain ON entries (chain_id, branch_id);
		`,
	},
}

// migrate applies pending migrations inside transactions.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version,
		).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		s.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
