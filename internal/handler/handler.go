package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shacademia/estudy/internal/llm"
	"github.com/shacademia/estudy/internal/mailer"
	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/policy"
	"github.com/shacademia/estudy/internal/store"
	"github.com/shacademia/estudy/internal/token"
	"github.com/shacademia/estudy/internal/upload"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds runtime handler parameters.
type Config struct {
	SecureCookies bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	codec   *token.Codec
	mail    mailer.Sender
	llm     *llm.Client // nil when drafting is not configured
	uploads *upload.Store
	config  Config
}

// New creates a new Handler. llmClient may be nil.
func New(s *store.Store, codec *token.Codec, mail mailer.Sender, llmClient *llm.Client, uploads *upload.Store, cfg Config) *Handler {
	return &Handler{store: s, codec: codec, mail: mail, llm: llmClient, uploads: uploads, config: cfg}
}

// Routes registers all HTTP routes. The caller mounts this under /api
// with the edge gate applied.
func (h *Handler) Routes(r chi.Router) {
	// Public routes, also listed in the edge gate allow-list.
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Post("/reset-password", h.handleResetPassword)
	r.Get("/echo", h.handleEcho)
	r.Get("/dbcheck", h.handleDBCheck)
	r.Get("/uploadcheck", h.handleUploadCheck)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/me", h.handleMe)
		r.Put("/me", h.handleUpdateProfile)
		r.Post("/me/photo", h.handleUploadProfileImage)
		r.Post("/verify/send", h.handleSendVerification)
		r.Post("/verify", h.handleVerifyEmail)

		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Post("/exams/{examID}/submit", h.handleSubmitExam)
		r.Get("/exams/{examID}/submission", h.handleMySubmission)
		r.Get("/exams/{examID}/rankings", h.handleExamRankings)
		r.Get("/rankings", h.handleGlobalRankings)

		// Content management.
		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.RoleAdmin, model.RoleModerator))

			r.Get("/questions", h.handleListQuestions)
			r.Post("/questions", h.handleCreateQuestion)
			r.Post("/questions/import", h.handleImportQuestions)
			r.Post("/questions/draft", h.handleDraftQuestions)
			r.Get("/questions/{questionID}", h.handleGetQuestion)
			r.Put("/questions/{questionID}", h.handleUpdateQuestion)
			r.Delete("/questions/{questionID}", h.handleDeleteQuestion)
			r.Post("/questions/{questionID}/image", h.handleUploadQuestionImage)

			r.Post("/exams", h.handleCreateExam)
			r.Put("/exams/{examID}", h.handleUpdateExam)
			r.Delete("/exams/{examID}", h.handleDeleteExam)
			r.Post("/exams/{examID}/questions", h.handleAddExamQuestion)
			r.Delete("/exams/{examID}/questions/{placementID}", h.handleRemoveExamQuestion)
			r.Post("/exams/{examID}/sections", h.handleCreateSection)
			r.Post("/exams/{examID}/publish", h.handlePublishExam)
			r.Get("/exams/{examID}/submissions", h.handleListSubmissions)

			r.Get("/users", h.handleListUsers)
			r.Get("/users/{userID}", h.handleGetUser)
			r.Put("/users/{userID}/role", h.handleChangeRole)
		})

		r.Group(func(r chi.Router) {
			r.Use(requirePermission(policy.PermToggleActive))
			r.Post("/users/{userID}/active", h.handleToggleActive)
		})
	})
}

// envelope is the uniform response body shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondOK(w http.ResponseWriter, status int, msg string, data any) {
	respond(w, status, envelope{Success: true, Message: msg, Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, envelope{Success: false, Message: msg})
}

// respondInternal hides storage-layer detail behind a generic 500.
func respondInternal(w http.ResponseWriter, err error) {
	slog.Error("internal error", "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON parses and validates a request body into dst. Unknown fields
// and schema violations are rejected before any business logic runs.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	var parts []string
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed on "+fe.Tag())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func urlParamID(r *http.Request, name string) (int64, bool) {
	id, err := parseID(chi.URLParam(r, name))
	return id, err == nil
}

// handleEcho is a diagnostic endpoint that reflects what the middleware
// chain saw, including whether the internal token header was injected.
func (h *Handler) handleEcho(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, "echo", map[string]any{
		"method":             r.Method,
		"path":               r.URL.Path,
		"has_internal_token": r.Header.Get(internalTokenHeader) != "",
		"has_authorization":  r.Header.Get("Authorization") != "",
	})
}

// handleDBCheck is the database-connectivity probe.
func (h *Handler) handleDBCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		slog.Error("db probe failed", "error", err)
		respondError(w, http.StatusInternalServerError, "database unreachable")
		return
	}
	respondOK(w, http.StatusOK, "database ok", nil)
}

// handleUploadCheck is the upload-configuration probe.
func (h *Handler) handleUploadCheck(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, "upload config", map[string]any{
		"dir":      h.uploads.Dir(),
		"writable": h.uploads.Writable(),
		"max_size": upload.MaxImageSize,
	})
}
