package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/shacademia/estudy/internal/model"
)

// createQuestion inserts a bank question through the API and returns its ID.
func (e *testEnv) createQuestion(t *testing.T, bearer, content string, correct int) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/questions", bearer, map[string]any{
		"content":        content,
		"options":        []string{"red", "green", "blue", "yellow"},
		"correct_option": correct,
		"difficulty":     "MEDIUM",
		"subject":        "Colors",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create question: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	_, data := decodeEnvelope(t, rec)
	var q model.Question
	if err := json.Unmarshal(data, &q); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	return q.ID
}

func (e *testEnv) createExam(t *testing.T, bearer, name string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/exams", bearer, map[string]any{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exam: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	_, data := decodeEnvelope(t, rec)
	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		t.Fatalf("decode exam: %v", err)
	}
	return exam.ID
}

func (e *testEnv) placeQuestion(t *testing.T, bearer string, examID, questionID, sectionID int64, marks int) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/questions", bearer, map[string]any{
		"question_id": questionID,
		"section_id":  sectionID,
		"marks":       marks,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("place question: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestQuestionCRUD(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "qadmin@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	id := e.createQuestion(t, tok, "What color is the sky?", 2)

	rec := e.do(t, http.MethodGet, "/api/questions/"+itoa(id), tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodPut, "/api/questions/"+itoa(id), tok, map[string]any{
		"content":        "What color is grass?",
		"options":        []string{"red", "green"},
		"correct_option": 1,
		"difficulty":     "EASY",
		"subject":        "Colors",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodDelete, "/api/questions/"+itoa(id), tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/questions/"+itoa(id), tok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestCreateQuestionCorrectOptionOutOfRange(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "range@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	rec := e.do(t, http.MethodPost, "/api/questions", tok, map[string]any{
		"content":        "Broken",
		"options":        []string{"a", "b"},
		"correct_option": 5,
		"difficulty":     "EASY",
		"subject":        "Math",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPublishEmptyExamRejected(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "pub@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	examID := e.createExam(t, tok, "Empty Exam")
	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/publish", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty exam, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestPublishComputesTotalMarks(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "marks@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	examID := e.createExam(t, tok, "Marks Exam")

	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/sections", tok, map[string]any{"name": "Part A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create section: expected 201, got %d", rec.Code)
	}
	_, data := decodeEnvelope(t, rec)
	var sec struct {
		SectionID int64 `json:"section_id"`
	}
	if err := json.Unmarshal(data, &sec); err != nil {
		t.Fatalf("decode section: %v", err)
	}

	q1 := e.createQuestion(t, tok, "Direct question", 0)
	q2 := e.createQuestion(t, tok, "Section question one", 1)
	q3 := e.createQuestion(t, tok, "Section question two", 2)
	e.placeQuestion(t, tok, examID, q1, 0, 2)
	e.placeQuestion(t, tok, examID, q2, sec.SectionID, 3)
	e.placeQuestion(t, tok, examID, q3, sec.SectionID, 5)

	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/publish", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	_, data = decodeEnvelope(t, rec)
	var result struct {
		TotalMarks int `json:"total_marks"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TotalMarks != 10 {
		t.Errorf("expected total marks 10, got %d", result.TotalMarks)
	}

	// Publishing twice is a no-op error.
	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/publish", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("re-publish: expected 400, got %d", rec.Code)
	}
}

func TestDuplicatePlacementConflict(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "dupq@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	examID := e.createExam(t, tok, "Dup Exam")
	q := e.createQuestion(t, tok, "Only once", 0)
	e.placeQuestion(t, tok, examID, q, 0, 1)

	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/questions", tok, map[string]any{
		"question_id": q, "section_id": 0, "marks": 1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSectionMustBelongToExam(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "xsec@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	examA := e.createExam(t, tok, "Exam A")
	examB := e.createExam(t, tok, "Exam B")

	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examB)+"/sections", tok, map[string]any{"name": "B Section"})
	_, data := decodeEnvelope(t, rec)
	var sec struct {
		SectionID int64 `json:"section_id"`
	}
	if err := json.Unmarshal(data, &sec); err != nil {
		t.Fatalf("decode: %v", err)
	}

	q := e.createQuestion(t, tok, "Misplaced", 0)
	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(examA)+"/questions", tok, map[string]any{
		"question_id": q, "section_id": sec.SectionID, "marks": 1,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign section should 404, got %d", rec.Code)
	}
}

func TestStudentExamVisibility(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "vadmin@example.com", model.RoleAdmin, "password123")
	student := e.createUser(t, "vstudent@example.com", model.RoleUser, "password123")
	adminTok := e.sessionToken(t, admin)
	studentTok := e.sessionToken(t, student)

	draftID := e.createExam(t, adminTok, "Draft Exam")
	liveID := e.createExam(t, adminTok, "Live Exam")
	q := e.createQuestion(t, adminTok, "Visible question", 1)
	e.placeQuestion(t, adminTok, liveID, q, 0, 4)
	if rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(liveID)+"/publish", adminTok, nil); rec.Code != http.StatusOK {
		t.Fatalf("publish: %d", rec.Code)
	}

	// Student list shows only the published exam.
	rec := e.do(t, http.MethodGet, "/api/exams", studentTok, nil)
	_, data := decodeEnvelope(t, rec)
	var exams []model.Exam
	if err := json.Unmarshal(data, &exams); err != nil {
		t.Fatalf("decode exams: %v", err)
	}
	if len(exams) != 1 || exams[0].ID != liveID {
		t.Fatalf("student should see exactly the published exam, got %+v", exams)
	}

	// Unpublished exam is invisible to the student.
	if rec := e.do(t, http.MethodGet, "/api/exams/"+itoa(draftID), studentTok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("draft exam: expected 404 for student, got %d", rec.Code)
	}

	// Published exam view never leaks the answer key.
	rec = e.do(t, http.MethodGet, "/api/exams/"+itoa(liveID), studentTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live exam: expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correct_option") {
		t.Error("student exam view must not contain correct_option")
	}

	// Content managers see everything.
	rec = e.do(t, http.MethodGet, "/api/exams", adminTok, nil)
	_, data = decodeEnvelope(t, rec)
	if err := json.Unmarshal(data, &exams); err != nil {
		t.Fatalf("decode exams: %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("admin should see both exams, got %d", len(exams))
	}
}

func TestSubmitAndRank(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "sadmin@example.com", model.RoleAdmin, "password123")
	alice := e.createUser(t, "alice@example.com", model.RoleUser, "password123")
	bob := e.createUser(t, "bob@example.com", model.RoleUser, "password123")
	adminTok := e.sessionToken(t, admin)
	aliceTok := e.sessionToken(t, alice)
	bobTok := e.sessionToken(t, bob)

	examID := e.createExam(t, adminTok, "Scored Exam")
	q1 := e.createQuestion(t, adminTok, "Q1", 0)
	q2 := e.createQuestion(t, adminTok, "Q2", 1)
	e.placeQuestion(t, adminTok, examID, q1, 0, 3)
	e.placeQuestion(t, adminTok, examID, q2, 0, 7)
	if rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/publish", adminTok, nil); rec.Code != http.StatusOK {
		t.Fatalf("publish: %d", rec.Code)
	}

	// Alice answers both correctly, Bob only the first.
	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/submit", aliceTok, map[string]any{
		"answers": map[string]int{itoa(q1): 0, itoa(q2): 1},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("alice submit: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	_, data := decodeEnvelope(t, rec)
	var result struct {
		Score      int `json:"score"`
		TotalMarks int `json:"total_marks"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Score != 10 || result.TotalMarks != 10 {
		t.Errorf("alice: expected 10/10, got %d/%d", result.Score, result.TotalMarks)
	}

	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/submit", bobTok, map[string]any{
		"answers": map[string]int{itoa(q1): 0, itoa(q2): 3},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bob submit: expected 201, got %d", rec.Code)
	}

	// One attempt per exam.
	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/submit", aliceTok, map[string]any{
		"answers": map[string]int{itoa(q1): 0},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second submit: expected 409, got %d", rec.Code)
	}

	// Leaderboard orders Alice first.
	rec = e.do(t, http.MethodGet, "/api/exams/"+itoa(examID)+"/rankings", aliceTok, nil)
	_, data = decodeEnvelope(t, rec)
	var rankings []model.Ranking
	if err := json.Unmarshal(data, &rankings); err != nil {
		t.Fatalf("decode rankings: %v", err)
	}
	if len(rankings) != 2 || rankings[0].UserID != alice.ID || rankings[1].UserID != bob.ID {
		t.Fatalf("unexpected ranking order: %+v", rankings)
	}
	if rankings[0].Percentage != 100 {
		t.Errorf("alice percentage: expected 100, got %f", rankings[0].Percentage)
	}

	// My-submission endpoint.
	rec = e.do(t, http.MethodGet, "/api/exams/"+itoa(examID)+"/submission", bobTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("my submission: expected 200, got %d", rec.Code)
	}
	_, data = decodeEnvelope(t, rec)
	var sub model.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.Score != 3 {
		t.Errorf("bob score: expected 3, got %d", sub.Score)
	}

	// Global rankings aggregate across published exams.
	rec = e.do(t, http.MethodGet, "/api/rankings", bobTok, nil)
	_, data = decodeEnvelope(t, rec)
	var global []model.GlobalRank
	if err := json.Unmarshal(data, &global); err != nil {
		t.Fatalf("decode global: %v", err)
	}
	if len(global) != 2 || global[0].UserID != alice.ID {
		t.Fatalf("unexpected global rankings: %+v", global)
	}

	// Admin sees all submissions.
	rec = e.do(t, http.MethodGet, "/api/exams/"+itoa(examID)+"/submissions", adminTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list submissions: expected 200, got %d", rec.Code)
	}
}

func TestSubmitUnpublishedExam(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "uadmin@example.com", model.RoleAdmin, "password123")
	student := e.createUser(t, "ustudent@example.com", model.RoleUser, "password123")
	adminTok := e.sessionToken(t, admin)
	studentTok := e.sessionToken(t, student)

	examID := e.createExam(t, adminTok, "Hidden Exam")
	rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/submit", studentTok, map[string]any{
		"answers": map[string]int{"1": 0},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unpublished exam, got %d", rec.Code)
	}
}

func TestSubmitPasswordProtectedExam(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "padmin@example.com", model.RoleAdmin, "password123")
	student := e.createUser(t, "pstudent@example.com", model.RoleUser, "password123")
	adminTok := e.sessionToken(t, admin)
	studentTok := e.sessionToken(t, student)

	rec := e.do(t, http.MethodPost, "/api/exams", adminTok, map[string]any{
		"name": "Locked Exam", "password": "open-sesame",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exam: %d", rec.Code)
	}
	_, data := decodeEnvelope(t, rec)
	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		t.Fatalf("decode: %v", err)
	}

	q := e.createQuestion(t, adminTok, "Locked question", 0)
	e.placeQuestion(t, adminTok, exam.ID, q, 0, 1)
	if rec := e.do(t, http.MethodPost, "/api/exams/"+itoa(exam.ID)+"/publish", adminTok, nil); rec.Code != http.StatusOK {
		t.Fatalf("publish: %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(exam.ID)+"/submit", studentTok, map[string]any{
		"answers": map[string]int{itoa(q): 0}, "password": "wrong",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong exam password: expected 403, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/exams/"+itoa(exam.ID)+"/submit", studentTok, map[string]any{
		"answers": map[string]int{itoa(q): 0}, "password": "open-sesame",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("correct exam password: expected 201, got %d", rec.Code)
	}
}

func TestDeleteExamCascades(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "dadmin@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	examID := e.createExam(t, tok, "Doomed Exam")
	q := e.createQuestion(t, tok, "Survivor", 0)
	e.placeQuestion(t, tok, examID, q, 0, 1)

	rec := e.do(t, http.MethodDelete, "/api/exams/"+itoa(examID), tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/api/exams/"+itoa(examID), tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
	// The bank question is untouched.
	if rec := e.do(t, http.MethodGet, "/api/questions/"+itoa(q), tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("question should survive exam deletion, got %d", rec.Code)
	}
}

func TestDraftQuestionsUnconfigured(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "llm@example.com", model.RoleAdmin, "password123")
	tok := e.sessionToken(t, admin)

	rec := e.do(t, http.MethodPost, "/api/questions/draft", tok, map[string]any{
		"subject": "Math", "difficulty": "EASY", "count": 2,
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when drafting is unconfigured, got %d", rec.Code)
	}
}
