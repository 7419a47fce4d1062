package auth

import (
	"encoding/json"
	"net/http"

	"github.com/memorymate/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler exchanges the owner password for a bearer token.
type Handler struct {
	passwordHash []byte
	tokens       *TokenIssuer
	logger       *zap.Logger
}

func NewHandler(passwordHash string, tokens *TokenIssuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{passwordHash: []byte(passwordHash), tokens: tokens, logger: logger}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Password is required"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		h.logger.Warn("owner login rejected")
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid password"})
		return
	}

	token, exp, err := h.tokens.Issue()
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, ExpiresAt: exp.Unix()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
