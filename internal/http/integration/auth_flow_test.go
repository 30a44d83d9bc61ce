package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/user"
	apphttp "github.com/taskhub/taskhub/internal/http"
	"github.com/taskhub/taskhub/internal/repo/memory"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		AuthRateWindow:      time.Minute,
	}
}

type testEnv struct {
	router *gin.Engine
	users  *memory.UsersRepo
	tasks  *memory.TasksRepo
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUsersRepo()
	tasks := memory.NewTasksRepo()

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := apphttp.NewRouter(logger, testConfig(), apphttp.Deps{
		Users: users,
		Tasks: tasks,
	})

	return &testEnv{router: router, users: users, tasks: tasks}
}

func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader

	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func register(t *testing.T, env *testEnv, email, password string) user.Public {
	t.Helper()

	body := `{"email":"` + email + `","password":"` + password + `","passwordConfirm":"` + password + `"}`
	w := doRequest(env.router, http.MethodPost, "/auth/register", body, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("register(%s) got status %d, body=%s", email, w.Code, w.Body.String())
	}

	var pub user.Public
	mustReadJSON(t, w, &pub)

	return pub
}

func login(t *testing.T, env *testEnv, email, password string) string {
	t.Helper()

	body := `{"email":"` + email + `","password":"` + password + `"}`
	w := doRequest(env.router, http.MethodPost, "/auth/login", body, "")

	if w.Code != http.StatusOK {
		t.Fatalf("login(%s) got status %d, body=%s", email, w.Code, w.Body.String())
	}

	var tok tokenResponse
	mustReadJSON(t, w, &tok)

	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %+v", tok)
	}

	return tok.AccessToken
}

func TestRegisterLoginMe(t *testing.T) {
	env := setupTestRouter(t)

	pub := register(t, env, "alice@x.com", "pw12345678")

	if pub.Email != "alice@x.com" || !pub.IsActive || pub.IsVerified {
		t.Fatalf("unexpected registered user: %+v", pub)
	}

	token := login(t, env, "alice@x.com", "pw12345678")

	w := doRequest(env.router, http.MethodGet, "/auth/me", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("me got status %d, body=%s", w.Code, w.Body.String())
	}

	var me user.Public
	mustReadJSON(t, w, &me)

	if me.ID != pub.ID {
		t.Fatalf("me returned id %q, want %q", me.ID, pub.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupTestRouter(t)

	register(t, env, "alice@x.com", "pw12345678")

	body := `{"email":"alice@x.com","password":"pw12345678","passwordConfirm":"pw12345678"}`
	w := doRequest(env.router, http.MethodPost, "/auth/register", body, "")

	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register got status %d, body=%s", w.Code, w.Body.String())
	}

	var e apiErrorResponse
	mustReadJSON(t, w, &e)

	if e.Error.Code != "email_taken" {
		t.Fatalf("got code %q, want email_taken", e.Error.Code)
	}
}

func TestRegisterPasswordMismatchCreatesNoRecord(t *testing.T) {
	env := setupTestRouter(t)

	body := `{"email":"alice@x.com","password":"pw12345678","passwordConfirm":"pw87654321"}`
	w := doRequest(env.router, http.MethodPost, "/auth/register", body, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("mismatched register got status %d, body=%s", w.Code, w.Body.String())
	}

	// the rejected registration must not have created the account
	loginBody := `{"email":"alice@x.com","password":"pw12345678"}`
	w = doRequest(env.router, http.MethodPost, "/auth/login", loginBody, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login after failed register got status %d, want 401", w.Code)
	}
}

func TestDeactivatedUserTokenRejected(t *testing.T) {
	env := setupTestRouter(t)

	pub := register(t, env, "alice@x.com", "pw12345678")
	token := login(t, env, "alice@x.com", "pw12345678")

	// token works while the account is active
	if w := doRequest(env.router, http.MethodGet, "/auth/me", "", token); w.Code != http.StatusOK {
		t.Fatalf("me got status %d, body=%s", w.Code, w.Body.String())
	}

	if err := env.users.Deactivate(t.Context(), pub.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	// the token is still structurally valid but the resolver cuts it off
	w := doRequest(env.router, http.MethodGet, "/auth/me", "", token)

	if w.Code != http.StatusForbidden {
		t.Fatalf("me after deactivation got status %d, want 403, body=%s", w.Code, w.Body.String())
	}

	var e apiErrorResponse
	mustReadJSON(t, w, &e)

	if e.Error.Code != "account_disabled" {
		t.Fatalf("got code %q, want account_disabled", e.Error.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	env := setupTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/api/tasks"},
		{http.MethodGet, "/api/tasks/my"},
		{http.MethodPost, "/api/tasks"},
	}

	for _, p := range paths {
		w := doRequest(env.router, p.method, p.path, "", "")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s got status %d, want 401, body=%s", p.method, p.path, w.Code, w.Body.String())
		}
	}
}
