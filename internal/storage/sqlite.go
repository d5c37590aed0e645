// Package storage persists sessions, dialogue, records and reports in
// SQLite. Dialogue and record tables are append-only: the engine never
// updates or deletes rows in them.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for sessions, dialogue
// logs, response records, reports, and knowledge documents.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "escuta.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that
// haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Sessions ---

func (s *Store) SaveSession(sess Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, route, profile_id, consent, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Route, sess.ProfileID, boolToInt(sess.Consent), boolToInt(sess.Completed),
		sess.CreatedAt.UTC().Format(time.RFC3339), sess.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateSession(sess Session) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET profile_id = ?, consent = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		sess.ProfileID, boolToInt(sess.Consent), boolToInt(sess.Completed),
		sess.UpdatedAt.UTC().Format(time.RFC3339), sess.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	var consent, completed int
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, route, profile_id, consent, completed, created_at, updated_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Route, &sess.ProfileID, &consent, &completed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	sess.Consent = consent != 0
	sess.Completed = completed != 0
	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Session{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if sess.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Session{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return sess, nil
}

// --- Dialogue log ---

func (s *Store) AppendMessage(m DialogueMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO dialogue_messages (id, session_id, author, content, stage_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Author, m.Content, m.StageID,
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListMessages(sessionID string) ([]DialogueMessage, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, author, content, stage_id, created_at
		FROM dialogue_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DialogueMessage
	for rows.Next() {
		var m DialogueMessage
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Author, &m.Content, &m.StageID, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// --- Response records ---

func (s *Store) AppendRecord(r ResponseRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO response_records (session_id, question, answer, category, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.SessionID, r.Question, r.Answer, r.Category,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListRecords(sessionID string) ([]ResponseRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, question, answer, category, created_at
		FROM response_records WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ResponseRecord
	for rows.Next() {
		var r ResponseRecord
		var createdAt string
		if err := rows.Scan(&r.SessionID, &r.Question, &r.Answer, &r.Category, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Reports ---

func (s *Store) SaveReport(r Report) error {
	_, err := s.db.Exec(`
		INSERT INTO reports (inference_id, session_id, source, narrative, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.InferenceID, r.SessionID, r.Source, r.Narrative, r.ReportJSON,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetReport(inferenceID string) (Report, error) {
	var r Report
	var createdAt string
	err := s.db.QueryRow(`
		SELECT inference_id, session_id, source, narrative, report_json, created_at
		FROM reports WHERE inference_id = ?`, inferenceID,
	).Scan(&r.InferenceID, &r.SessionID, &r.Source, &r.Narrative, &r.ReportJSON, &createdAt)
	if err == sql.ErrNoRows {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Report{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return r, nil
}

// ListReports returns the reports for a session, newest first.
func (s *Store) ListReports(sessionID string) ([]Report, error) {
	rows, err := s.db.Query(`
		SELECT inference_id, session_id, source, narrative, report_json, created_at
		FROM reports WHERE session_id = ? ORDER BY created_at DESC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Report
	for rows.Next() {
		var r Report
		var createdAt string
		if err := rows.Scan(&r.InferenceID, &r.SessionID, &r.Source, &r.Narrative, &r.ReportJSON, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Knowledge documents ---

func (s *Store) SaveDoc(d KnowledgeDoc) error {
	_, err := s.db.Exec(`
		INSERT INTO knowledge_docs (id, title, content, source, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.Source,
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetDoc(id string) (KnowledgeDoc, error) {
	var d KnowledgeDoc
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, title, content, source, created_at
		FROM knowledge_docs WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Content, &d.Source, &createdAt)
	if err == sql.ErrNoRows {
		return KnowledgeDoc{}, ErrNotFound
	}
	if err != nil {
		return KnowledgeDoc{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return KnowledgeDoc{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return d, nil
}

func (s *Store) ListDocs() ([]KnowledgeDoc, error) {
	rows, err := s.db.Query(`
		SELECT id, title, content, source, created_at
		FROM knowledge_docs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []KnowledgeDoc
	for rows.Next() {
		var d KnowledgeDoc
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Source, &createdAt); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
