package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shacademia/estudy/internal/model"
)

// QuestionFilter narrows ListQuestions. Zero values mean no filtering.
type QuestionFilter struct {
	Difficulty string
	Subject    string
	Topic      string
	Limit      int
	Offset     int
}

// InsertQuestion stores a question. Options and tags are JSON-encoded.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO questions (content, options, correct_option, difficulty, subject, topic, tags, image, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Content, string(options), q.CorrectOption, q.Difficulty, q.Subject, q.Topic, string(tagsJSON), q.Image, q.AuthorID, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	var options, tags string
	err := row.Scan(&q.ID, &q.Content, &options, &q.CorrectOption, &q.Difficulty,
		&q.Subject, &q.Topic, &tags, &q.Image, &q.AuthorID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return q, fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
		return q, fmt.Errorf("decode tags for question %d: %w", q.ID, err)
	}
	return q, nil
}

const questionColumns = `id, content, options, correct_option, difficulty, subject, topic, tags, image, author_id, created_at, updated_at`

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	return scanQuestion(s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
}

// ListQuestions returns questions matching the filter, newest first.
func (s *Store) ListQuestions(f QuestionFilter) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if f.Difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, f.Difficulty)
	}
	if f.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, f.Subject)
	}
	if f.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, f.Topic)
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpdateQuestion replaces a question's editable fields.
func (s *Store) UpdateQuestion(q model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE questions SET content = ?, options = ?, correct_option = ?, difficulty = ?,
		 subject = ?, topic = ?, tags = ?, updated_at = ? WHERE id = ?`,
		q.Content, string(options), q.CorrectOption, q.Difficulty, q.Subject, q.Topic, string(tagsJSON), time.Now(), q.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetQuestionImage stores the image path for a question.
func (s *Store) SetQuestionImage(id int64, image string) error {
	_, err := s.db.Exec(`UPDATE questions SET image = ?, updated_at = ? WHERE id = ?`, image, time.Now(), id)
	return err
}

// DeleteQuestion removes a question and its exam placements.
func (s *Store) DeleteQuestion(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM exam_questions WHERE question_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// QuestionCount returns the number of questions in the bank.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
