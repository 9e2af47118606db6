package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shacademia/estudy/internal/model"
)

// CreateSubmission records a completed attempt. Returns ErrDuplicate when
// the (user, exam) pair already has a submission.
func (s *Store) CreateSubmission(sub model.Submission) (int64, error) {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return 0, fmt.Errorf("encode answers: %w", err)
	}
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO submissions (user_id, exam_id, answers, score, total_questions, completed, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		sub.UserID, sub.ExamID, string(answers), sub.Score, sub.TotalQuestions, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	var sub model.Submission
	var answers string
	var completedAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.UserID, &sub.ExamID, &answers, &sub.Score,
		&sub.TotalQuestions, &sub.Completed, &completedAt, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return nil, fmt.Errorf("decode answers for submission %d: %w", sub.ID, err)
	}
	if completedAt.Valid {
		sub.CompletedAt = completedAt.Time
	}
	return &sub, nil
}

const submissionColumns = `id, user_id, exam_id, answers, score, total_questions, completed, completed_at, created_at`

// GetSubmission returns the submission for a (user, exam) pair, or nil.
func (s *Store) GetSubmission(userID, examID int64) (*model.Submission, error) {
	return scanSubmission(s.db.QueryRow(
		`SELECT `+submissionColumns+` FROM submissions WHERE user_id = ? AND exam_id = ?`, userID, examID,
	))
}

// ListSubmissionsForExam returns all submissions for an exam, best first.
func (s *Store) ListSubmissionsForExam(examID int64) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT `+submissionColumns+` FROM submissions WHERE exam_id = ? ORDER BY score DESC, completed_at ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// RecomputeRankings rebuilds the materialized leaderboard for an exam from
// its submissions. Ties break on earlier completion.
func (s *Store) RecomputeRankings(examID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var totalMarks int
	if err := tx.QueryRow(`SELECT total_marks FROM exams WHERE id = ?`, examID).Scan(&totalMarks); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM rankings WHERE exam_id = ?`, examID); err != nil {
		return err
	}

	rows, err := tx.Query(
		`SELECT user_id, score, completed_at FROM submissions
		 WHERE exam_id = ? AND completed = 1 ORDER BY score DESC, completed_at ASC`, examID,
	)
	if err != nil {
		return err
	}
	type entry struct {
		userID      int64
		score       int
		completedAt time.Time
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.userID, &e.score, &e.completedAt); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, e := range entries {
		pct := 0.0
		if totalMarks > 0 {
			pct = float64(e.score) / float64(totalMarks) * 100
		}
		if _, err := tx.Exec(
			`INSERT INTO rankings (user_id, exam_id, rank, score, percentage, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.userID, examID, i+1, e.score, pct, e.completedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRankings returns the leaderboard for an exam.
func (s *Store) GetRankings(examID int64) ([]model.Ranking, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.user_id, u.name, r.exam_id, r.rank, r.score, r.percentage, r.completed_at
		 FROM rankings r JOIN users u ON u.id = r.user_id
		 WHERE r.exam_id = ? ORDER BY r.rank`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rankings []model.Ranking
	for rows.Next() {
		var r model.Ranking
		if err := rows.Scan(&r.ID, &r.UserID, &r.UserName, &r.ExamID, &r.Rank, &r.Score, &r.Percentage, &r.CompletedAt); err != nil {
			return nil, err
		}
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}

// GetGlobalRankings aggregates scores across all published exams.
func (s *Store) GetGlobalRankings() ([]model.GlobalRank, error) {
	rows, err := s.db.Query(
		`SELECT sub.user_id, u.name, SUM(sub.score), COUNT(*)
		 FROM submissions sub
		 JOIN exams e ON e.id = sub.exam_id AND e.published = 1
		 JOIN users u ON u.id = sub.user_id
		 WHERE sub.completed = 1
		 GROUP BY sub.user_id, u.name
		 ORDER BY SUM(sub.score) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ranks []model.GlobalRank
	for rows.Next() {
		var g model.GlobalRank
		if err := rows.Scan(&g.UserID, &g.UserName, &g.TotalScore, &g.ExamsTaken); err != nil {
			return nil, err
		}
		g.Rank = len(ranks) + 1
		ranks = append(ranks, g)
	}
	return ranks, rows.Err()
}
