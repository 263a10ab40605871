package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/hongminglow/message-bus/internal/auth"
	"github.com/hongminglow/message-bus/internal/http/respond"
	"github.com/hongminglow/message-bus/internal/middleware"
	"github.com/hongminglow/message-bus/internal/models"
	"github.com/hongminglow/message-bus/internal/storage"
)

// MessageHandler owns the message endpoints. Reads are scoped to the
// effective reader; writes and deletes require a privileged caller.
type MessageHandler struct {
	messages storage.MessageStore
	users    storage.UserStore
	resolver *auth.IdentityResolver
	logger   *slog.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(messages storage.MessageStore, users storage.UserStore, resolver *auth.IdentityResolver, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, users: users, resolver: resolver, logger: logger}
}

// Register attaches message routes to the mux behind the authentication
// gate.
func (h *MessageHandler) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	mux.Handle("GET /messages/{$}", authn(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /messages/{$}", authn(http.HandlerFunc(h.handleSave)))
	mux.Handle("POST /messages/{id}/{$}", authn(http.HandlerFunc(h.handleSave)))
	mux.Handle("DELETE /messages/{$}", authn(http.HandlerFunc(h.handleDelete)))
	mux.Handle("DELETE /messages/{id}/{$}", authn(http.HandlerFunc(h.handleDelete)))
}

// fieldErrors carries per-field validation detail for 400 responses.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, reason string) {
	f[field] = append(f[field], reason)
}

func (h *MessageHandler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	reader, ok := h.resolver.EffectiveReader(caller, r.URL.Query().Get("token"))
	if !ok {
		// Unusable override token reads as an empty set, not an error.
		respond.List(w, http.StatusOK, 0, nil)
		return
	}

	msgs, err := h.messages.ListMessagesByOwner(r.Context(), reader)
	if err != nil {
		h.logger.Error("list messages failed", "owner_id", reader, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not list messages")
		return
	}
	if len(msgs) == 0 {
		respond.List(w, http.StatusOK, 0, nil)
		return
	}
	respond.List(w, http.StatusOK, len(msgs), msgs)
}

// handleSave creates a message when the path carries no id, and partially
// updates the addressed message otherwise.
func (h *MessageHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}
	if !caller.Privileged() {
		respond.Error(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	if err := r.ParseForm(); err != nil {
		respond.Error(w, http.StatusBadRequest, "Malformed form body")
		return
	}

	if raw := r.PathValue("id"); raw != "" {
		h.update(w, r, raw)
		return
	}
	h.create(w, r)
}

func (h *MessageHandler) create(w http.ResponseWriter, r *http.Request) {
	errs := fieldErrors{}

	var ownerID int64
	switch raw := r.PostForm.Get("user"); {
	case raw == "":
		errs.add("user", "This field is required.")
	default:
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			errs.add("user", "A valid integer is required.")
		} else {
			ownerID = id
		}
	}

	text := r.PostForm.Get("message")
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		errs.add("message", fmt.Sprintf("Ensure this field has no more than %d characters.", models.MaxMessageLength))
	}

	if ownerID > 0 && !h.ownerExists(w, r, ownerID, errs) {
		return
	}
	if len(errs) > 0 {
		respond.Error(w, http.StatusBadRequest, errs)
		return
	}

	msg, err := h.messages.CreateMessage(r.Context(), ownerID, text)
	if err != nil {
		h.logger.Error("create message failed", "owner_id", ownerID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not create message")
		return
	}
	respond.Item(w, http.StatusCreated, msg)
}

func (h *MessageHandler) update(w http.ResponseWriter, r *http.Request, raw string) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, fmt.Sprintf("Message %s not found", raw))
		return
	}
	if _, err := h.messages.GetMessage(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, fmt.Sprintf("Message %d not found", id))
			return
		}
		h.logger.Error("fetch message failed", "message_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not fetch message")
		return
	}

	errs := fieldErrors{}
	var patch models.MessagePatch

	if r.PostForm.Has("user") {
		ownerID, err := strconv.ParseInt(r.PostForm.Get("user"), 10, 64)
		if err != nil || ownerID <= 0 {
			errs.add("user", "A valid integer is required.")
		} else if !h.ownerExists(w, r, ownerID, errs) {
			return
		} else {
			patch.UserID = &ownerID
		}
	}
	if r.PostForm.Has("message") {
		text := r.PostForm.Get("message")
		if utf8.RuneCountInString(text) > models.MaxMessageLength {
			errs.add("message", fmt.Sprintf("Ensure this field has no more than %d characters.", models.MaxMessageLength))
		} else {
			patch.Text = &text
		}
	}

	if len(errs) > 0 {
		respond.Error(w, http.StatusBadRequest, errs)
		return
	}

	msg, err := h.messages.UpdateMessage(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, fmt.Sprintf("Message %d not found", id))
			return
		}
		h.logger.Error("update message failed", "message_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not update message")
		return
	}
	respond.Item(w, http.StatusOK, msg)
}

func (h *MessageHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}
	if !caller.Privileged() {
		respond.Error(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	raw := r.PathValue("id")
	if raw == "" {
		respond.Error(w, http.StatusBadRequest, "Deleting message requires an id")
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, fmt.Sprintf("Message %s not found", raw))
		return
	}

	if err := h.messages.DeleteMessage(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, fmt.Sprintf("Message %d not found", id))
			return
		}
		h.logger.Error("delete message failed", "message_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not delete message")
		return
	}
	respond.OK(w, http.StatusOK)
}

// ownerExists validates that the referenced owner account exists, adding a
// field error when it does not. A store fault is reported immediately and
// the return value is false.
func (h *MessageHandler) ownerExists(w http.ResponseWriter, r *http.Request, ownerID int64, errs fieldErrors) bool {
	_, err := h.users.FindUserByID(r.Context(), ownerID)
	if err == nil {
		return true
	}
	if errors.Is(err, storage.ErrNotFound) {
		errs.add("user", fmt.Sprintf("Invalid user %d - account does not exist.", ownerID))
		respond.Error(w, http.StatusBadRequest, errs)
		return false
	}
	h.logger.Error("owner lookup failed", "user_id", ownerID, "error", err)
	respond.Error(w, http.StatusInternalServerError, "Could not verify message owner")
	return false
}
