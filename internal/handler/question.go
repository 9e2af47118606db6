package handler

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/store"
	"github.com/shacademia/estudy/internal/upload"
)

const defaultPageSize = 20

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultPageSize
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}

	questions, err := h.store.ListQuestions(store.QuestionFilter{
		Difficulty: q.Get("difficulty"),
		Subject:    q.Get("subject"),
		Topic:      q.Get("topic"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		respondInternal(w, err)
		return
	}

	total, err := h.store.QuestionCount()
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{
		"questions": questions,
		"page":      page,
		"limit":     limit,
		"total":     total,
	})
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	author := model.UserFromContext(r.Context())

	var req model.CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CorrectOption >= len(req.Options) {
		respondError(w, http.StatusBadRequest, "correct_option out of range")
		return
	}

	id, err := h.store.InsertQuestion(model.Question{
		Content:       req.Content,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Difficulty:    req.Difficulty,
		Subject:       req.Subject,
		Topic:         req.Topic,
		Tags:          req.Tags,
		AuthorID:      author.ID,
	})
	if err != nil {
		respondInternal(w, err)
		return
	}

	question, err := h.store.GetQuestion(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusCreated, "question created", question)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "questionID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid question ID")
		return
	}
	question, err := h.store.GetQuestion(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", question)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "questionID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid question ID")
		return
	}

	var req model.CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CorrectOption >= len(req.Options) {
		respondError(w, http.StatusBadRequest, "correct_option out of range")
		return
	}

	err := h.store.UpdateQuestion(model.Question{
		ID:            id,
		Content:       req.Content,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Difficulty:    req.Difficulty,
		Subject:       req.Subject,
		Topic:         req.Topic,
		Tags:          req.Tags,
	})
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		respondInternal(w, err)
		return
	}

	question, err := h.store.GetQuestion(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "question updated", question)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "questionID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid question ID")
		return
	}
	if _, err := h.store.GetQuestion(id); errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "question not found")
		return
	} else if err != nil {
		respondInternal(w, err)
		return
	}
	if err := h.store.DeleteQuestion(id); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "question deleted", nil)
}

// handleImportQuestions bulk-loads questions from an uploaded JSON file.
// A file whose content hash matches a previous import is skipped so the
// same export cannot be loaded twice.
func (h *Handler) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	author := model.UserFromContext(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, upload.MaxImageSize))
	if err != nil {
		respondInternal(w, err)
		return
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	prev, err := h.store.GetImportedFileHash(header.Filename)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if prev == hash {
		respondOK(w, http.StatusOK, "file already imported, skipping", map[string]any{"imported": 0})
		return
	}

	var imports []model.QuestionImport
	if err := json.Unmarshal(data, &imports); err != nil {
		respondError(w, http.StatusBadRequest, "file is not a JSON array of questions")
		return
	}

	imported := 0
	for i, q := range imports {
		if q.Content == "" || len(q.Options) < 2 || q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			slog.Warn("skipping malformed question on import", "file", header.Filename, "index", i)
			continue
		}
		if _, err := h.store.InsertQuestion(model.Question{
			Content:       q.Content,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Difficulty:    q.Difficulty,
			Subject:       q.Subject,
			Topic:         q.Topic,
			Tags:          q.Tags,
			AuthorID:      author.ID,
		}); err != nil {
			respondInternal(w, err)
			return
		}
		imported++
	}

	if err := h.store.SetImportedFileHash(header.Filename, hash); err != nil {
		respondInternal(w, err)
		return
	}
	slog.Info("questions imported", "file", header.Filename, "count", imported)
	respondOK(w, http.StatusOK, "questions imported", map[string]any{"imported": imported})
}

// handleDraftQuestions returns machine-drafted question suggestions for
// review. Nothing is stored.
func (h *Handler) handleDraftQuestions(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		respondError(w, http.StatusServiceUnavailable, "question drafting is not configured")
		return
	}

	var req model.DraftQuestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	drafts, err := h.llm.DraftQuestions(r.Context(), req.Subject, req.Topic, req.Difficulty, req.Count)
	if err != nil {
		slog.Error("question drafting failed", "error", err)
		respondError(w, http.StatusBadGateway, "drafting service failed")
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"drafts": drafts})
}
