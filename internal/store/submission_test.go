package store

import (
	"errors"
	"testing"

	"github.com/shacademia/estudy/internal/model"
)

// publishedExam creates an exam with two placed questions worth 3 and 7 marks.
func publishedExam(t *testing.T, s *Store) (examID, q1, q2 int64) {
	t.Helper()
	examID = createTestExam(t, s, "Quiz")
	q1 = insertTestQuestion(t, s, "Q1", "EASY", "math")
	q2 = insertTestQuestion(t, s, "Q2", "HARD", "math")
	for _, p := range []struct {
		qid   int64
		marks int
	}{{q1, 3}, {q2, 7}} {
		if _, err := s.AddExamQuestion(model.ExamQuestion{ExamID: examID, QuestionID: p.qid, Marks: p.marks}); err != nil {
			t.Fatalf("AddExamQuestion: %v", err)
		}
	}
	if _, err := s.PublishExam(examID); err != nil {
		t.Fatalf("PublishExam: %v", err)
	}
	return examID, q1, q2
}

func TestSubmissionRoundtrip(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "student@example.com", model.RoleUser)
	examID, q1, q2 := publishedExam(t, s)

	_, err := s.CreateSubmission(model.Submission{
		UserID:         userID,
		ExamID:         examID,
		Answers:        map[int64]int{q1: 1, q2: 0},
		Score:          3,
		TotalQuestions: 2,
	})
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	sub, err := s.GetSubmission(userID, examID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub == nil {
		t.Fatal("expected submission")
	}
	if sub.Score != 3 || sub.TotalQuestions != 2 {
		t.Errorf("score/total = %d/%d", sub.Score, sub.TotalQuestions)
	}
	if sub.Answers[q1] != 1 || sub.Answers[q2] != 0 {
		t.Errorf("answers = %v", sub.Answers)
	}
	if !sub.Completed {
		t.Error("submission should be completed")
	}

	missing, err := s.GetSubmission(userID, 9999)
	if err != nil {
		t.Fatalf("GetSubmission(missing): %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing submission")
	}
}

func TestOneSubmissionPerUserExam(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "once@example.com", model.RoleUser)
	examID, q1, _ := publishedExam(t, s)

	sub := model.Submission{UserID: userID, ExamID: examID, Answers: map[int64]int{q1: 1}, Score: 3, TotalQuestions: 2}
	if _, err := s.CreateSubmission(sub); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	_, err := s.CreateSubmission(sub)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRankingsOrderAndPercentage(t *testing.T) {
	s := newTestStore(t)
	examID, q1, q2 := publishedExam(t, s)

	users := []struct {
		email string
		score int
	}{
		{"low@example.com", 3},
		{"high@example.com", 10},
		{"mid@example.com", 7},
	}
	for _, u := range users {
		uid := createTestUser(t, s, u.email, model.RoleUser)
		if _, err := s.CreateSubmission(model.Submission{
			UserID: uid, ExamID: examID,
			Answers: map[int64]int{q1: 1, q2: 1}, Score: u.score, TotalQuestions: 2,
		}); err != nil {
			t.Fatalf("CreateSubmission(%s): %v", u.email, err)
		}
	}

	if err := s.RecomputeRankings(examID); err != nil {
		t.Fatalf("RecomputeRankings: %v", err)
	}

	rankings, err := s.GetRankings(examID)
	if err != nil {
		t.Fatalf("GetRankings: %v", err)
	}
	if len(rankings) != 3 {
		t.Fatalf("got %d rankings, want 3", len(rankings))
	}

	wantScores := []int{10, 7, 3}
	for i, r := range rankings {
		if r.Rank != i+1 {
			t.Errorf("row %d rank = %d", i, r.Rank)
		}
		if r.Score != wantScores[i] {
			t.Errorf("row %d score = %d, want %d", i, r.Score, wantScores[i])
		}
	}
	// Exam total is 10, so the top score is 100%.
	if rankings[0].Percentage != 100 {
		t.Errorf("top percentage = %v, want 100", rankings[0].Percentage)
	}

	// Recomputing is idempotent, not additive.
	if err := s.RecomputeRankings(examID); err != nil {
		t.Fatalf("RecomputeRankings again: %v", err)
	}
	rankings, _ = s.GetRankings(examID)
	if len(rankings) != 3 {
		t.Errorf("after recompute got %d rankings, want 3", len(rankings))
	}
}

func TestGlobalRankings(t *testing.T) {
	s := newTestStore(t)
	examID, q1, _ := publishedExam(t, s)

	a := createTestUser(t, s, "a@example.com", model.RoleUser)
	b := createTestUser(t, s, "b@example.com", model.RoleUser)
	if _, err := s.CreateSubmission(model.Submission{UserID: a, ExamID: examID, Answers: map[int64]int{q1: 1}, Score: 10, TotalQuestions: 2}); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if _, err := s.CreateSubmission(model.Submission{UserID: b, ExamID: examID, Answers: map[int64]int{q1: 0}, Score: 3, TotalQuestions: 2}); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	ranks, err := s.GetGlobalRankings()
	if err != nil {
		t.Fatalf("GetGlobalRankings: %v", err)
	}
	if len(ranks) != 2 {
		t.Fatalf("got %d rows, want 2", len(ranks))
	}
	if ranks[0].UserID != a || ranks[0].Rank != 1 || ranks[0].TotalScore != 10 {
		t.Errorf("top row = %+v", ranks[0])
	}
	if ranks[1].UserID != b || ranks[1].ExamsTaken != 1 {
		t.Errorf("second row = %+v", ranks[1])
	}
}

func TestExportExamResults(t *testing.T) {
	s := newTestStore(t)
	examID, q1, _ := publishedExam(t, s)
	uid := createTestUser(t, s, "exp@example.com", model.RoleUser)
	if _, err := s.CreateSubmission(model.Submission{UserID: uid, ExamID: examID, Answers: map[int64]int{q1: 1}, Score: 3, TotalQuestions: 2}); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if err := s.RecomputeRankings(examID); err != nil {
		t.Fatalf("RecomputeRankings: %v", err)
	}

	export, err := s.ExportExamResults(examID)
	if err != nil {
		t.Fatalf("ExportExamResults: %v", err)
	}
	if export.ExamID != examID || export.TotalMarks != 10 {
		t.Errorf("export header = %+v", export)
	}
	if len(export.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(export.Results))
	}
	r := export.Results[0]
	if r.Email != "exp@example.com" || r.Score != 3 || r.Rank != 1 {
		t.Errorf("result = %+v", r)
	}
}
