package gateway_http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"docvault/internal/contracts"
	"docvault/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	auth           Caller
	files          Caller
	uploadTimeout  time.Duration
	maxUploadBytes int64
	logger         *zap.Logger
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		h.logger.Debug("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		renderJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegisterRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	var user contracts.User
	if err := h.auth.Send(r.Context(), contracts.PatternRegister, req, &user); err != nil {
		renderCallError(w, r, contracts.PatternRegister, err, h.logger)
		return
	}
	renderJSON(w, http.StatusCreated, user, h.logger)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req contracts.LoginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	var resp contracts.LoginResponse
	if err := h.auth.Send(r.Context(), contracts.PatternLogin, req, &resp); err != nil {
		renderCallError(w, r, contracts.PatternLogin, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, resp, h.logger)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		renderJSONError(w, "token is required", http.StatusBadRequest)
		return
	}
	if err := h.auth.Send(r.Context(), contracts.PatternVerifyEmail, token, nil); err != nil {
		renderCallError(w, r, contracts.PatternVerifyEmail, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"}, h.logger)
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req contracts.PasswordResetRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.Send(r.Context(), contracts.PatternRequestPasswordReset, req, nil); err != nil {
		renderCallError(w, r, contracts.PatternRequestPasswordReset, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, messageResponse{
		Message: "If an account with that email exists, a password reset link has been sent",
	}, h.logger)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req contracts.ResetPasswordRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.Send(r.Context(), contracts.PatternResetPassword, req, nil); err != nil {
		renderCallError(w, r, contracts.PatternResetPassword, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset successfully"}, h.logger)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var user contracts.User
	if err := h.auth.Send(r.Context(), contracts.PatternGetUserProfile, claims.UserID(), &user); err != nil {
		renderCallError(w, r, contracts.PatternGetUserProfile, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, user, h.logger)
}

func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderJSONError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		renderJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		renderJSONError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		renderJSONError(w, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	req := contracts.UploadFileRequest{
		File:   contracts.NewFilePayload(header.Filename, mimeType, content),
		UserID: claims.UserID(),
		Email:  claims.Email,
	}
	var rec contracts.FileRecord
	err = h.files.Send(r.Context(), contracts.PatternUploadFile, req, &rec, transport.WithTimeout(h.uploadTimeout))
	if err != nil {
		renderCallError(w, r, contracts.PatternUploadFile, err, h.logger)
		return
	}
	renderJSON(w, http.StatusCreated, rec, h.logger)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	files := []contracts.FileRecord{}
	if err := h.files.Send(r.Context(), contracts.PatternGetFilesByUser, claims.UserID(), &files); err != nil {
		renderCallError(w, r, contracts.PatternGetFilesByUser, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, files, h.logger)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	ref := contracts.FileRef{FileID: chi.URLParam(r, "id"), UserID: claims.UserID()}

	var rec contracts.FileRecord
	if err := h.files.Send(r.Context(), contracts.PatternGetFileByID, ref, &rec); err != nil {
		renderCallError(w, r, contracts.PatternGetFileByID, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, rec, h.logger)
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	ref := contracts.FileRef{FileID: chi.URLParam(r, "id"), UserID: claims.UserID()}

	var resp contracts.DeleteFileResponse
	if err := h.files.Send(r.Context(), contracts.PatternDeleteFile, ref, &resp); err != nil {
		renderCallError(w, r, contracts.PatternDeleteFile, err, h.logger)
		return
	}
	renderJSON(w, http.StatusOK, resp, h.logger)
}
