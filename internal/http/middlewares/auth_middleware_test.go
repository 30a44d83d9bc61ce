package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeParser struct {
	subject string
	err     error
}

func (f *fakeParser) Parse(token string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.subject, time.Now().Add(time.Minute), nil
}

type fakeUserReader struct {
	users map[string]user.User
}

func (f *fakeUserReader) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, ok := f.users[email]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func TestRequireAuth(t *testing.T) {
	active := user.New("alice@x.com", "hash")
	inactive := user.New("bob@x.com", "hash")
	inactive.IsActive = false

	reader := &fakeUserReader{users: map[string]user.User{
		"alice@x.com": active,
		"bob@x.com":   inactive,
	}}

	tests := []struct {
		name           string
		header         string
		parser         *fakeParser
		wantStatusCode int
	}{
		{
			name:           "missing_header",
			header:         "",
			parser:         &fakeParser{subject: "alice@x.com"},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "not_bearer",
			header:         "Basic abc123",
			parser:         &fakeParser{subject: "alice@x.com"},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid_token",
			header:         "Bearer garbage",
			parser:         &fakeParser{err: errors.New("invalid token")},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "unknown_subject",
			header:         "Bearer some-token",
			parser:         &fakeParser{subject: "ghost@x.com"},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "inactive_user",
			header:         "Bearer some-token",
			parser:         &fakeParser{subject: "bob@x.com"},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "active_user",
			header:         "Bearer some-token",
			parser:         &fakeParser{subject: "alice@x.com"},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewAuthMiddleware(tt.parser, reader)

			r := gin.New()
			r.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
				u, ok := middlewares.CurrentUserFromContext(c)

				if !ok {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "no user on context"})
					return
				}

				c.JSON(http.StatusOK, gin.H{"email": u.Email})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRequireAuthNeverLeaksHashNorSubjectExistence(t *testing.T) {
	reader := &fakeUserReader{users: map[string]user.User{}}

	forged := middlewares.NewAuthMiddleware(&fakeParser{err: errors.New("invalid token")}, reader)
	unknown := middlewares.NewAuthMiddleware(&fakeParser{subject: "ghost@x.com"}, reader)

	responses := make([]string, 0, 2)

	for _, m := range []*middlewares.AuthMiddleware{forged, unknown} {
		r := gin.New()
		r.GET("/p", m.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "Bearer whatever")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}

		responses = append(responses, w.Body.String())
	}

	// forged token vs unknown subject must be indistinguishable
	if responses[0] != responses[1] {
		t.Fatalf("response bodies differ:\n%s\n%s", responses[0], responses[1])
	}
}
