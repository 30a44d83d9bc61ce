package middlewares_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/http/middlewares"
)

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PATCH("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name           string
		method         string
		body           io.Reader
		contentType    string
		wantStatusCode int
	}{
		{
			name:           "json_accepted",
			method:         http.MethodPost,
			body:           strings.NewReader(`{"a":1}`),
			contentType:    "application/json",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "json_with_charset_accepted",
			method:         http.MethodPost,
			body:           strings.NewReader(`{"a":1}`),
			contentType:    "application/json; charset=utf-8",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "form_rejected",
			method:         http.MethodPost,
			body:           strings.NewReader("a=1"),
			contentType:    "application/x-www-form-urlencoded",
			wantStatusCode: http.StatusUnsupportedMediaType,
		},
		{
			name:   "chunked_non_json_rejected",
			method: http.MethodPost,
			// an unsized reader has ContentLength -1, not 0, and must
			// still hit the content-type check
			body:           io.NopCloser(strings.NewReader("a=1")),
			contentType:    "text/plain",
			wantStatusCode: http.StatusUnsupportedMediaType,
		},
		{
			name:           "empty_patch_allowed",
			method:         http.MethodPatch,
			body:           nil,
			contentType:    "",
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", tt.body)

			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
