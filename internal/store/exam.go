package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shacademia/estudy/internal/model"
)

// ErrExamEmpty is returned when publishing an exam with no questions.
var ErrExamEmpty = errors.New("exam has no questions")

// CreateExam creates an unpublished exam draft.
func (s *Store) CreateExam(e model.Exam) (int64, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO exams (name, description, published, total_marks, time_limit, password, author_id, created_at, updated_at)
		 VALUES (?, ?, 0, 0, ?, ?, ?, ?, ?)`,
		e.Name, e.Description, e.TimeLimit, e.Password, e.AuthorID, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const examColumns = `id, name, description, published, total_marks, time_limit, password, author_id, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (model.Exam, error) {
	var e model.Exam
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Published, &e.TotalMarks,
		&e.TimeLimit, &e.Password, &e.AuthorID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	return scanExam(s.db.QueryRow(`SELECT `+examColumns+` FROM exams WHERE id = ?`, id))
}

// ListExams returns exams, optionally restricted to published ones.
func (s *Store) ListExams(publishedOnly bool) ([]model.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams`
	if publishedOnly {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY id DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// UpdateExam replaces an exam's editable fields.
func (s *Store) UpdateExam(e model.Exam) error {
	res, err := s.db.Exec(
		`UPDATE exams SET name = ?, description = ?, time_limit = ?, password = ?, updated_at = ? WHERE id = ?`,
		e.Name, e.Description, e.TimeLimit, e.Password, time.Now(), e.ID,
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

// DeleteExam removes an exam and cascades to sections, placements,
// submissions and rankings.
func (s *Store) DeleteExam(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM exam_questions WHERE exam_id = ?`,
		`DELETE FROM exam_sections WHERE exam_id = ?`,
		`DELETE FROM submissions WHERE exam_id = ?`,
		`DELETE FROM rankings WHERE exam_id = ?`,
		`DELETE FROM exams WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateSection adds a section to an exam.
func (s *Store) CreateSection(sec model.ExamSection) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO exam_sections (exam_id, name, marks, position) VALUES (?, ?, 0, ?)`,
		sec.ExamID, sec.Name, sec.Position,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSections returns an exam's sections in order.
func (s *Store) ListSections(examID int64) ([]model.ExamSection, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, name, marks, position FROM exam_sections WHERE exam_id = ? ORDER BY position, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sections []model.ExamSection
	for rows.Next() {
		var sec model.ExamSection
		if err := rows.Scan(&sec.ID, &sec.ExamID, &sec.Name, &sec.Marks, &sec.Position); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// GetSection returns a section by ID.
func (s *Store) GetSection(id int64) (model.ExamSection, error) {
	var sec model.ExamSection
	err := s.db.QueryRow(
		`SELECT id, exam_id, name, marks, position FROM exam_sections WHERE id = ?`, id,
	).Scan(&sec.ID, &sec.ExamID, &sec.Name, &sec.Marks, &sec.Position)
	return sec, err
}

// AddExamQuestion places a question on an exam (sectionID 0 = direct).
// Returns ErrDuplicate if the question is already placed there.
func (s *Store) AddExamQuestion(eq model.ExamQuestion) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO exam_questions (exam_id, section_id, question_id, marks, position) VALUES (?, ?, ?, ?, ?)`,
		eq.ExamID, eq.SectionID, eq.QuestionID, eq.Marks, eq.Position,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

// RemoveExamQuestion removes a placement by ID.
func (s *Store) RemoveExamQuestion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM exam_questions WHERE id = ?`, id)
	return err
}

// ListExamQuestions returns all placements for an exam in order.
func (s *Store) ListExamQuestions(examID int64) ([]model.ExamQuestion, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, section_id, question_id, marks, position
		 FROM exam_questions WHERE exam_id = ? ORDER BY section_id, position, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var placements []model.ExamQuestion
	for rows.Next() {
		var eq model.ExamQuestion
		if err := rows.Scan(&eq.ID, &eq.ExamID, &eq.SectionID, &eq.QuestionID, &eq.Marks, &eq.Position); err != nil {
			return nil, err
		}
		placements = append(placements, eq)
	}
	return placements, rows.Err()
}

// GetExamView builds the full exam with sections and placements.
func (s *Store) GetExamView(examID int64) (*model.ExamView, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return nil, err
	}
	sections, err := s.ListSections(examID)
	if err != nil {
		return nil, err
	}
	questions, err := s.ListExamQuestions(examID)
	if err != nil {
		return nil, err
	}
	return &model.ExamView{Exam: exam, Sections: sections, Questions: questions}, nil
}

// PublishExam marks an exam published, recomputing total marks from
// direct and section-nested placements. Returns ErrExamEmpty when the
// exam has no questions anywhere.
func (s *Store) PublishExam(examID int64) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM exam_questions WHERE exam_id = ?`, examID).Scan(&count); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrExamEmpty
	}

	var total int
	if err := tx.QueryRow(`SELECT COALESCE(SUM(marks), 0) FROM exam_questions WHERE exam_id = ?`, examID).Scan(&total); err != nil {
		return 0, err
	}

	// Refresh per-section aggregates along the way.
	if _, err := tx.Exec(
		`UPDATE exam_sections SET marks = (
			SELECT COALESCE(SUM(marks), 0) FROM exam_questions
			WHERE exam_questions.section_id = exam_sections.id
		) WHERE exam_id = ?`, examID,
	); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`UPDATE exams SET published = 1, total_marks = ?, updated_at = ? WHERE id = ?`,
		total, time.Now(), examID,
	); err != nil {
		return 0, err
	}

	return total, tx.Commit()
}
