package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/message-bus/internal/auth"
	"github.com/hongminglow/message-bus/internal/config"
	"github.com/hongminglow/message-bus/internal/models"
	"github.com/hongminglow/message-bus/internal/server"
	"github.com/hongminglow/message-bus/internal/storage/memory"
)

const testPassword = "takehome-password"

// env runs the full handler chain (CORS, logging, authentication) over the
// in-memory store.
type env struct {
	ts     *httptest.Server
	store  *memory.Store
	tokens *auth.TokenManager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Config{
		Port:        "0",
		JWTSecret:   "test-secret",
		JWTIssuer:   "message-bus",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
	}
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := httptest.NewServer(server.Routes(cfg, logger, store, store))
	t.Cleanup(ts.Close)

	return &env{
		ts:     ts,
		store:  store,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
	}
}

func (e *env) seedUser(t *testing.T, username string, staff, superuser, active bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := e.store.CreateUser(context.Background(), models.User{
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      staff,
		IsSuperuser:  superuser,
		IsActive:     active,
	})
	require.NoError(t, err)
	return user
}

func (e *env) seedMessage(t *testing.T, owner models.User, text string) models.Message {
	t.Helper()
	msg, err := e.store.CreateMessage(context.Background(), owner.ID, text)
	require.NoError(t, err)
	return msg
}

func (e *env) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.tokens.Generate(user)
	require.NoError(t, err)
	return token
}

// do issues a request with an optional bearer token and form body.
func (e *env) do(t *testing.T, method, path, bearer string, form url.Values) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// apiResponse mirrors the wire envelope; Count is a pointer so tests can
// distinguish "count": 0 from an absent field.
type apiResponse struct {
	Status int             `json:"status"`
	Count  *int            `json:"count"`
	Token  string          `json:"token"`
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func decodeBody(t *testing.T, resp *http.Response) apiResponse {
	t.Helper()
	defer resp.Body.Close()
	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (a apiResponse) message(t *testing.T) models.Message {
	t.Helper()
	var msg models.Message
	require.NoError(t, json.Unmarshal(a.Data, &msg))
	return msg
}

func (a apiResponse) messages(t *testing.T) []models.Message {
	t.Helper()
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(a.Data, &msgs))
	return msgs
}

func (a apiResponse) errorString(t *testing.T) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(a.Errors, &s))
	return s
}

func (a apiResponse) fieldErrors(t *testing.T) map[string][]string {
	t.Helper()
	fields := map[string][]string{}
	require.NoError(t, json.Unmarshal(a.Errors, &fields))
	return fields
}
