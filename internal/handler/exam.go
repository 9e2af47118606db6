package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/policy"
	"github.com/shacademia/estudy/internal/store"
)

func canManageExams(u *model.User) bool {
	return policy.Allows(u.Role, policy.PermManageExam)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	author := model.UserFromContext(r.Context())

	var req model.CreateExamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.store.CreateExam(model.Exam{
		Name:        req.Name,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		Password:    req.Password,
		AuthorID:    author.ID,
	})
	if err != nil {
		respondInternal(w, err)
		return
	}

	exam, err := h.store.GetExam(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusCreated, "exam created", exam)
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	var req model.CreateExamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.store.UpdateExam(model.Exam{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		Password:    req.Password,
	})
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}

	exam, err := h.store.GetExam(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "exam updated", exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}
	if _, err := h.store.GetExam(id); errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	} else if err != nil {
		respondInternal(w, err)
		return
	}
	if err := h.store.DeleteExam(id); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "exam deleted", nil)
}

// handleListExams shows all exams to content managers and only published
// ones to everyone else.
func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	exams, err := h.store.ListExams(!canManageExams(user))
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", exams)
}

// sanitizeView strips answer keys from placements for the student view.
// The placement list tells the client which questions to fetch and how
// much each is worth; question bodies come from a separate call path.
func sanitizeQuestions(placements []model.ExamQuestion, questions map[int64]model.Question) []map[string]any {
	var out []map[string]any
	for _, p := range placements {
		q, ok := questions[p.QuestionID]
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"placement_id": p.ID,
			"section_id":   p.SectionID,
			"question_id":  q.ID,
			"content":      q.Content,
			"options":      q.Options,
			"marks":        p.Marks,
			"image":        q.Image,
		})
	}
	return out
}

// handleGetExam returns the full view to content managers. Students see
// a published exam with the correct answers removed.
func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	id, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	view, err := h.store.GetExamView(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}

	if canManageExams(user) {
		respondOK(w, http.StatusOK, "", view)
		return
	}

	if !view.Exam.Published {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}

	questions := make(map[int64]model.Question, len(view.Questions))
	for _, p := range view.Questions {
		q, err := h.store.GetQuestion(p.QuestionID)
		if err != nil {
			respondInternal(w, err)
			return
		}
		questions[p.QuestionID] = q
	}
	respondOK(w, http.StatusOK, "", map[string]any{
		"exam":      view.Exam,
		"sections":  view.Sections,
		"questions": sanitizeQuestions(view.Questions, questions),
	})
}

// handleAddExamQuestion places a question on an exam, directly or inside
// one of its sections.
func (h *Handler) handleAddExamQuestion(w http.ResponseWriter, r *http.Request) {
	examID, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	var req model.AddExamQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.store.GetExam(examID); errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	} else if err != nil {
		respondInternal(w, err)
		return
	}
	if _, err := h.store.GetQuestion(req.QuestionID); errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "question not found")
		return
	} else if err != nil {
		respondInternal(w, err)
		return
	}
	if req.SectionID != 0 {
		sec, err := h.store.GetSection(req.SectionID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && sec.ExamID != examID) {
			respondError(w, http.StatusNotFound, "section not found on this exam")
			return
		}
		if err != nil {
			respondInternal(w, err)
			return
		}
	}

	placements, err := h.store.ListExamQuestions(examID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	id, err := h.store.AddExamQuestion(model.ExamQuestion{
		ExamID:     examID,
		SectionID:  req.SectionID,
		QuestionID: req.QuestionID,
		Marks:      req.Marks,
		Position:   len(placements) + 1,
	})
	if errors.Is(err, store.ErrDuplicate) {
		respondError(w, http.StatusConflict, "question already placed there")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusCreated, "question placed", map[string]any{"placement_id": id})
}

func (h *Handler) handleRemoveExamQuestion(w http.ResponseWriter, r *http.Request) {
	if _, ok := urlParamID(r, "examID"); !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}
	placementID, ok := urlParamID(r, "placementID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid placement ID")
		return
	}
	if err := h.store.RemoveExamQuestion(placementID); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "question removed", nil)
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	examID, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	var req model.CreateSectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.store.GetExam(examID); errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	} else if err != nil {
		respondInternal(w, err)
		return
	}

	sections, err := h.store.ListSections(examID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	id, err := h.store.CreateSection(model.ExamSection{
		ExamID:   examID,
		Name:     req.Name,
		Position: len(sections) + 1,
	})
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusCreated, "section created", map[string]any{"section_id": id})
}

// handlePublishExam makes an exam visible to students. Publishing an
// empty exam is rejected; total marks are computed at this point.
func (h *Handler) handlePublishExam(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "examID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}

	exam, err := h.store.GetExam(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}
	if exam.Published {
		respondError(w, http.StatusBadRequest, "exam already published")
		return
	}

	total, err := h.store.PublishExam(id)
	if errors.Is(err, store.ErrExamEmpty) {
		respondError(w, http.StatusBadRequest, "cannot publish an exam with no questions")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "exam published", map[string]any{"total_marks": total})
}
