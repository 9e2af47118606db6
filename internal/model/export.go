package model

import "time"

// ExamResultsExport is the top-level JSON structure for exam results export.
type ExamResultsExport struct {
	ExamID     int64           `json:"exam_id"`
	ExamName   string          `json:"exam_name"`
	TotalMarks int             `json:"total_marks"`
	ExportedAt time.Time       `json:"exported_at"`
	Results    []StudentResult `json:"results"`
}

// StudentResult holds one student's submission data for export.
type StudentResult struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Percentage  float64   `json:"percentage"`
	Rank        int       `json:"rank"`
	CompletedAt time.Time `json:"completed_at"`
}
