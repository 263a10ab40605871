package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/message-bus/internal/auth"
	"github.com/hongminglow/message-bus/internal/http/respond"
	"github.com/hongminglow/message-bus/internal/storage"
)

// AuthHandler owns the login endpoint. Accounts are provisioned elsewhere;
// this handler only verifies credentials and issues tokens.
type AuthHandler struct {
	users  storage.UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(users storage.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// Register attaches the login route to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", h.handleLogin)
}

type loginResponse struct {
	Status int    `json:"status"`
	Token  string `json:"token"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.Error(w, http.StatusBadRequest, "Please provide username and password")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		respond.Error(w, http.StatusBadRequest, "Please provide username and password")
		return
	}

	user, err := h.users.FindUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusForbidden, "Not a current account")
			return
		}
		h.logger.Error("login: user lookup failed", "username", username, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not verify credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.IsActive {
		respond.Error(w, http.StatusForbidden, "Not a current account")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error("login: token generation failed", "user_id", user.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not get JWT token")
		return
	}

	respond.JSON(w, http.StatusOK, loginResponse{Status: 1, Token: token})
}
