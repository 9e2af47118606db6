package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/upload"
)

// saveImage validates and stores the "image" multipart field, returning
// the stored file name.
func (h *Handler) saveImage(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseMultipartForm(upload.MaxImageSize); err != nil {
		respondError(w, http.StatusBadRequest, "image too large or malformed form")
		return "", false
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing image field")
		return "", false
	}
	defer file.Close()

	if header.Size > upload.MaxImageSize {
		respondError(w, http.StatusBadRequest, "image too large")
		return "", false
	}
	ext, ok := upload.AllowedType(header.Header.Get("Content-Type"))
	if !ok {
		respondError(w, http.StatusBadRequest, "unsupported image type")
		return "", false
	}

	name, err := h.uploads.Save(file, ext)
	if err != nil {
		respondInternal(w, err)
		return "", false
	}
	return name, true
}

func (h *Handler) handleUploadProfileImage(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	name, ok := h.saveImage(w, r)
	if !ok {
		return
	}

	if user.ProfileImage != "" {
		if err := h.uploads.Remove(user.ProfileImage); err != nil {
			respondInternal(w, err)
			return
		}
	}
	if err := h.store.UpdateProfile(user.ID, user.Name, name); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "profile image updated", map[string]any{"image": name})
}

func (h *Handler) handleUploadQuestionImage(w http.ResponseWriter, r *http.Request) {
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

	name, ok := h.saveImage(w, r)
	if !ok {
		return
	}

	if question.Image != "" {
		if err := h.uploads.Remove(question.Image); err != nil {
			respondInternal(w, err)
			return
		}
	}
	if err := h.store.SetQuestionImage(id, name); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "question image updated", map[string]any{"image": name})
}
