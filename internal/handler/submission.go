package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/store"
)

// handleSubmitExam scores and records an attempt. Each account gets one
// attempt per exam; the result is immutable once stored.
func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	examID, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	var req model.SubmitExamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	exam, err := h.store.GetExam(examID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !exam.Published {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}
	if exam.Password != "" && req.Password != exam.Password {
		respondError(w, http.StatusForbidden, "incorrect exam password")
		return
	}

	placements, err := h.store.ListExamQuestions(examID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	score := 0
	for _, p := range placements {
		answer, answered := req.Answers[p.QuestionID]
		if !answered {
			continue
		}
		q, err := h.store.GetQuestion(p.QuestionID)
		if err != nil {
			respondInternal(w, err)
			return
		}
		if answer == q.CorrectOption {
			score += p.Marks
		}
	}

	id, err := h.store.CreateSubmission(model.Submission{
		UserID:         user.ID,
		ExamID:         examID,
		Answers:        req.Answers,
		Score:          score,
		TotalQuestions: len(placements),
	})
	if errors.Is(err, store.ErrDuplicate) {
		respondError(w, http.StatusConflict, "exam already submitted")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}

	if err := h.store.RecomputeRankings(examID); err != nil {
		// The submission is recorded; a stale leaderboard heals on the
		// next successful recompute.
		slog.Error("ranking recompute failed", "exam", examID, "error", err)
	}

	respondOK(w, http.StatusCreated, "exam submitted", map[string]any{
		"submission_id": id,
		"score":         score,
		"total_marks":   exam.TotalMarks,
	})
}

func (h *Handler) handleMySubmission(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	examID, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	sub, err := h.store.GetSubmission(user.ID, examID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if sub == nil {
		respondError(w, http.StatusNotFound, "no submission for this exam")
		return
	}
	respondOK(w, http.StatusOK, "", sub)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	examID, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}
	subs, err := h.store.ListSubmissionsForExam(examID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", subs)
}

func (h *Handler) handleExamRankings(w http.ResponseWriter, r *http.Request) {
	examID, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}
	rankings, err := h.store.GetRankings(examID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", rankings)
}

func (h *Handler) handleGlobalRankings(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.store.GetGlobalRankings()
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", ranks)
}
