package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/logging"
	"taskboard-backend/pkg/utils"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(id))
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewJWTService("secret", time.Hour)
	token, _, err := tokens.GenerateAccessToken("user-1")
	require.NoError(t, err)

	h := AuthMiddleware(tokens)(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"no bearer prefix", token, http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequestLoggerRecordsCaller(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "DEBUG", true)

	tokens := utils.NewJWTService("secret", time.Hour)
	token, _, err := tokens.GenerateAccessToken("user-42")
	require.NoError(t, err)

	h := RequestLogger(log)(AuthMiddleware(tokens)(http.HandlerFunc(echoUser)))
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"path":"/api/users/me"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"user_id":"user-42"`)
}

func TestRecovery(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	Recovery(false)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	rec = httptest.NewRecorder()
	Recovery(true)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestContentTypeJSON(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := ContentTypeJSON(ok)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	get := func(h http.Handler, origin string) http.Header {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Header()
	}

	cfg := &config.Config{
		AllowedOrigins:       []string{"https://app.example.com"},
		CORSAllowCredentials: true,
		CORSMaxAge:           10 * time.Minute,
	}
	h := CORS(cfg)(ok)

	hdr := get(h, "https://app.example.com")
	assert.Equal(t, "https://app.example.com", hdr.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", hdr.Get("Access-Control-Allow-Credentials"))

	assert.Empty(t, get(h, "https://evil.example.com").Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/tasks/1", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, preflight)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	cfg.CORSAllowCredentials = false
	assert.Empty(t, get(CORS(cfg)(ok), "https://app.example.com").Get("Access-Control-Allow-Credentials"))

	wildcard := &config.Config{AllowedOrigins: []string{"*"}, CORSAllowCredentials: true}
	hdr = get(CORS(wildcard)(ok), "https://anywhere.example.com")
	assert.Equal(t, "*", hdr.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, hdr.Get("Access-Control-Allow-Credentials"))
}
