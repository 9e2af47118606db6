package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (e.g. two signups racing on the same email). The database constraint is
// the only guard; there is no application-level locking.
var ErrDuplicate = errors.New("duplicate record")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity for the health probe.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'USER',
		active INTEGER NOT NULL DEFAULT 1,
		email_verified INTEGER NOT NULL DEFAULT 0,
		verification_code TEXT,
		verification_expiry DATETIME,
		reset_token TEXT,
		reset_expiry DATETIME,
		profile_image TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_option INTEGER NOT NULL,
		difficulty TEXT NOT NULL DEFAULT 'MEDIUM',
		subject TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		image TEXT NOT NULL DEFAULT '',
		author_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published INTEGER NOT NULL DEFAULT 0,
		total_marks INTEGER NOT NULL DEFAULT 0,
		time_limit INTEGER NOT NULL DEFAULT 0,
		password TEXT NOT NULL DEFAULT '',
		author_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_sections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		marks INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS exam_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		section_id INTEGER NOT NULL DEFAULT 0,
		question_id INTEGER NOT NULL,
		marks INTEGER NOT NULL DEFAULT 1,
		position INTEGER NOT NULL DEFAULT 0,
		UNIQUE(exam_id, section_id, question_id),
		FOREIGN KEY (exam_id) REFERENCES exams(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		exam_id INTEGER NOT NULL,
		answers TEXT NOT NULL DEFAULT '{}',
		score INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at DATETIME,
		created_at DATETIME NOT NULL,
		UNIQUE(user_id, exam_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS rankings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		exam_id INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		score INTEGER NOT NULL,
		percentage REAL NOT NULL,
		completed_at DATETIME NOT NULL,
		UNIQUE(user_id, exam_id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation detects sqlite unique-constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
