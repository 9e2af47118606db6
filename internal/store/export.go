package store

import (
	"fmt"
	"time"

	"github.com/shacademia/estudy/internal/model"
)

// ExportExamResults builds export-ready student results for an exam from
// its submissions and the materialized leaderboard.
func (s *Store) ExportExamResults(examID int64) (*model.ExamResultsExport, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", examID, err)
	}

	rankings, err := s.GetRankings(examID)
	if err != nil {
		return nil, fmt.Errorf("get rankings: %w", err)
	}

	var results []model.StudentResult
	for _, r := range rankings {
		user, err := s.GetUserByID(r.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", r.UserID, err)
		}
		var email, name string
		if user != nil {
			email = user.Email
			name = user.Name
		}
		results = append(results, model.StudentResult{
			UserID:      r.UserID,
			Email:       email,
			Name:        name,
			Score:       r.Score,
			Percentage:  r.Percentage,
			Rank:        r.Rank,
			CompletedAt: r.CompletedAt,
		})
	}

	return &model.ExamResultsExport{
		ExamID:     exam.ID,
		ExamName:   exam.Name,
		TotalMarks: exam.TotalMarks,
		ExportedAt: time.Now(),
		Results:    results,
	}, nil
}
