package testgenpro

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSessionNotFound is returned for unknown session IDs
var ErrSessionNotFound = errors.New("session not found")

// Store keeps per-user session state (active quiz, answers, score history,
// generated notes and podcast) in sqlite. The default DSN is an in-memory
// database that lives as long as the process.
type Store struct {
	db *sql.DB
}

// Artifacts are the notes and podcast generated in a session
type Artifacts struct {
	Notes   string
	Summary string
	Audio   []byte
}

// OpenStore opens the database and creates the tables
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			quiz_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			question_type TEXT NOT NULL,
			subject TEXT NOT NULL,
			questions TEXT NOT NULL,
			review TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE TABLE IF NOT EXISTS answers (
			session_id TEXT NOT NULL,
			question_key TEXT NOT NULL,
			record TEXT NOT NULL,
			PRIMARY KEY (session_id, question_key)
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			percentage REAL NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			session_id TEXT PRIMARY KEY,
			notes TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			audio BLOB
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateSession registers a new session for a user
func (s *Store) CreateSession(sessionID, username string) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, username, created_at) VALUES (?, ?, ?)",
		sessionID, username, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SessionUser returns the user a session belongs to
func (s *Store) SessionUser(sessionID string) (string, error) {
	var username string
	err := s.db.QueryRow("SELECT username FROM sessions WHERE id = ?", sessionID).Scan(&username)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return username, nil
}

// DeleteSession removes a session and everything stored for it
func (s *Store) DeleteSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		"DELETE FROM answers WHERE session_id = ?",
		"DELETE FROM scores WHERE session_id = ?",
		"DELETE FROM artifacts WHERE session_id = ?",
		"DELETE FROM quizzes WHERE session_id = ?",
		"DELETE FROM sessions WHERE id = ?",
	} {
		if _, err := tx.Exec(query, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return tx.Commit()
}

// SaveQuiz stores a newly generated quiz as the session's active quiz and clears its answers
func (s *Store) SaveQuiz(sessionID string, quiz *Quiz, review string) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO quizzes (id, session_id, question_type, subject, questions, review, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		quiz.ID, sessionID, string(quiz.Type), quiz.Subject, string(questions), review, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	res, err := tx.Exec("UPDATE sessions SET quiz_id = ? WHERE id = ?", quiz.ID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if _, err := tx.Exec("DELETE FROM answers WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear answers: %w", err)
	}
	return tx.Commit()
}

// GetQuiz retrieves a quiz and its review by ID
func (s *Store) GetQuiz(quizID string) (*Quiz, string, error) {
	var (
		quiz      Quiz
		qtype     string
		questions string
		review    sql.NullString
	)
	err := s.db.QueryRow(
		"SELECT id, question_type, subject, questions, review, created_at FROM quizzes WHERE id = ?",
		quizID,
	).Scan(&quiz.ID, &qtype, &quiz.Subject, &questions, &review, &quiz.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", fmt.Errorf("quiz not found: %s", quizID)
		}
		return nil, "", fmt.Errorf("failed to get quiz: %w", err)
	}
	quiz.Type = QuestionType(qtype)
	if err := json.Unmarshal([]byte(questions), &quiz.Questions); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	return &quiz, review.String, nil
}

// LoadSession rebuilds the QuizSession for a session ID. The quiz is nil if
// none has been generated yet.
func (s *Store) LoadSession(sessionID string) (*QuizSession, error) {
	var quizID sql.NullString
	err := s.db.QueryRow("SELECT quiz_id FROM sessions WHERE id = ?", sessionID).Scan(&quizID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !quizID.Valid {
		return RestoreQuizSession(sessionID, nil, nil), nil
	}

	quiz, _, err := s.GetQuiz(quizID.String)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT question_key, record FROM answers WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[string]AnswerRecord)
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		var record AnswerRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answer %s: %w", key, err)
		}
		answers[key] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}

	return RestoreQuizSession(sessionID, quiz, answers), nil
}

// SaveAnswers replaces the stored answers with the session's current answers
func (s *Store) SaveAnswers(session *QuizSession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM answers WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("failed to clear answers: %w", err)
	}
	for key, record := range session.Answers() {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal answer %s: %w", key, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO answers (session_id, question_key, record) VALUES (?, ?, ?)",
			session.ID, key, string(data),
		); err != nil {
			return fmt.Errorf("failed to store answer %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// AppendScore adds a graded score to the session's history
func (s *Store) AppendScore(sessionID string, entry ScoreEntry) error {
	_, err := s.db.Exec(
		"INSERT INTO scores (session_id, percentage, recorded_at) VALUES (?, ?, ?)",
		sessionID, entry.Percentage, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	return nil
}

// LoadHistory returns the session's score history in insertion order
func (s *Store) LoadHistory(sessionID string) (*PerformanceHistory, error) {
	rows, err := s.db.Query(
		"SELECT percentage, recorded_at FROM scores WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var entry ScoreEntry
		if err := rows.Scan(&entry.Percentage, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}
	return NewPerformanceHistory(entries...), nil
}

// SaveNotes stores the latest generated notes for a session
func (s *Store) SaveNotes(sessionID, notes string) error {
	_, err := s.db.Exec(
		`INSERT INTO artifacts (session_id, notes) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET notes = excluded.notes`,
		sessionID, notes,
	)
	if err != nil {
		return fmt.Errorf("failed to store notes: %w", err)
	}
	return nil
}

// SavePodcast stores the latest podcast summary and audio for a session
func (s *Store) SavePodcast(sessionID string, podcast *Podcast) error {
	_, err := s.db.Exec(
		`INSERT INTO artifacts (session_id, summary, audio) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET summary = excluded.summary, audio = excluded.audio`,
		sessionID, podcast.Summary, podcast.Audio,
	)
	if err != nil {
		return fmt.Errorf("failed to store podcast: %w", err)
	}
	return nil
}

// LoadArtifacts returns the notes and podcast stored for a session; empty if none
func (s *Store) LoadArtifacts(sessionID string) (*Artifacts, error) {
	var a Artifacts
	err := s.db.QueryRow(
		"SELECT notes, summary, audio FROM artifacts WHERE session_id = ?",
		sessionID,
	).Scan(&a.Notes, &a.Summary, &a.Audio)
	if err != nil {
		if err == sql.ErrNoRows {
			return &Artifacts{}, nil
		}
		return nil, fmt.Errorf("failed to get artifacts: %w", err)
	}
	return &a, nil
}
