package handler

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/shacademia/estudy/internal/i18n"
	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/policy"
	"github.com/shacademia/estudy/internal/token"
)

// generateCode produces a 6-digit numeric verification code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// handleSendVerification issues a fresh verification code, superseding
// any prior pending one, and emails it to the account address.
func (h *Handler) handleSendVerification(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if user.EmailVerified {
		respondError(w, http.StatusBadRequest, "email already verified")
		return
	}

	code, err := generateCode()
	if err != nil {
		respondInternal(w, err)
		return
	}
	expiry := time.Now().Add(token.ResetTTL)
	if err := h.store.SetVerificationCode(user.ID, code, expiry); err != nil {
		respondInternal(w, err)
		return
	}

	body := appI18n.Td(r.Context(), "VerificationEmailBody", map[string]any{
		"Code":    code,
		"Minutes": int(token.ResetTTL.Minutes()),
	})
	if err := h.mail.Send(user.Email, appI18n.T(r.Context(), "VerificationEmailSubject"), body); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to send verification email")
		return
	}

	respondOK(w, http.StatusOK, "verification code sent", nil)
}

// handleVerifyEmail consumes a verification code. A wrong code mutates
// nothing; an expired one is cleared so the caller must re-request.
func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req model.VerifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if user.EmailVerified {
		respondError(w, http.StatusBadRequest, "email already verified")
		return
	}
	if user.VerificationCode == nil || user.VerificationExpiry == nil {
		respondError(w, http.StatusBadRequest, "no verification code pending")
		return
	}
	if time.Now().After(*user.VerificationExpiry) {
		if err := h.store.ClearVerificationCode(user.ID); err != nil {
			slog.Error("clear expired verification code", "user", user.ID, "error", err)
		}
		respondError(w, http.StatusBadRequest, "verification code expired, request a new one")
		return
	}
	if req.Code != *user.VerificationCode {
		respondError(w, http.StatusBadRequest, "incorrect verification code")
		return
	}

	if err := h.store.MarkEmailVerified(user.ID); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "email verified", nil)
}

// handleForgotPassword starts a reset flow. The response is identical
// whether or not the email exists.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(strings.ToLower(req.Email))
	if err != nil {
		respondInternal(w, err)
		return
	}

	if user != nil && user.Active {
		resetToken := uuid.NewString()
		expiry := time.Now().Add(token.ResetTTL)
		if err := h.store.SetResetToken(user.ID, resetToken, expiry); err != nil {
			respondInternal(w, err)
			return
		}
		body := appI18n.Td(r.Context(), "ResetEmailBody", map[string]any{
			"Token":   resetToken,
			"Minutes": int(token.ResetTTL.Minutes()),
		})
		if err := h.mail.Send(user.Email, appI18n.T(r.Context(), "ResetEmailSubject"), body); err != nil {
			slog.Error("reset email failed", "email", user.Email, "error", err)
		}
	}

	respondOK(w, http.StatusOK, appI18n.T(r.Context(), "ForgotPasswordSent"), nil)
}

// handleResetPassword consumes a reset token. Only the most recently
// issued token resolves; issuing a new one overwrote any prior value.
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByResetToken(req.Token)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusBadRequest, "invalid reset token")
		return
	}
	if user.ResetExpiry == nil || time.Now().After(*user.ResetExpiry) {
		if err := h.store.ClearResetToken(user.ID); err != nil {
			slog.Error("clear expired reset token", "user", user.ID, "error", err)
		}
		respondError(w, http.StatusBadRequest, "reset token expired, request a new one")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if err := h.store.UpdatePassword(user.ID, string(hash)); err != nil {
		respondInternal(w, err)
		return
	}
	if err := h.store.ClearResetToken(user.ID); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "password updated", nil)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req model.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.store.UpdateProfile(user.ID, req.Name, user.ProfileImage); err != nil {
		respondInternal(w, err)
		return
	}
	updated, err := h.store.GetUserByID(user.ID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "profile updated", updated)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "", users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r, "userID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "AccountNotFound"))
		return
	}
	respondOK(w, http.StatusOK, "", user)
}

// handleChangeRole updates another account's role. Self-service role
// changes are rejected outright.
func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor := model.UserFromContext(r.Context())

	id, ok := urlParamID(r, "userID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	if id == actor.ID {
		respondError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	var req model.ChangeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := h.store.GetUserByID(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if target == nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "AccountNotFound"))
		return
	}
	if target.Role == req.Role {
		respondError(w, http.StatusBadRequest, "role unchanged")
		return
	}
	if !policy.CanAssignRole(actor.Role, target.Role, req.Role) {
		respondError(w, http.StatusForbidden, appI18n.T(r.Context(), "Forbidden"))
		return
	}

	if err := h.store.UpdateRole(id, req.Role); err != nil {
		respondInternal(w, err)
		return
	}
	slog.Info("role changed", "actor", actor.ID, "target", id, "from", target.Role, "to", req.Role)
	respondOK(w, http.StatusOK, "role updated", nil)
}

func (h *Handler) handleToggleActive(w http.ResponseWriter, r *http.Request) {
	actor := model.UserFromContext(r.Context())

	id, ok := urlParamID(r, "userID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	if id == actor.ID {
		respondError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	target, err := h.store.GetUserByID(id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if target == nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "AccountNotFound"))
		return
	}

	if err := h.store.ToggleUserActive(id); err != nil {
		respondInternal(w, err)
		return
	}
	respondOK(w, http.StatusOK, "active flag toggled", nil)
}
