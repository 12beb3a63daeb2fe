package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/logging"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page      int `json:"page"`
		PerPage   int `json:"perPage"`
		Total     int `json:"total"`
		PageCount int `json:"pageCount"`
	} `json:"meta"`
}

type client struct {
	t      *testing.T
	server *httptest.Server
}

func newClient(t *testing.T) *client {
	t.Helper()
	cfg := &config.Config{
		Environment:    "test",
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		BcryptCost:     4,
		AllowedOrigins: []string{"*"},
		LogLevel:       "ERROR",
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
	srv := httptest.NewServer(NewRouter(cfg, database.NewMemoryDatabase(), logging.Discard()))
	t.Cleanup(srv.Close)
	return &client{t: t, server: srv}
}

func (c *client) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type ident struct {
	ID string `json:"id"`
}

// register signs a user up and returns its id and access token.
func (c *client) register(name string) (string, string) {
	c.t.Helper()
	email := name + "@example.com"
	status, env := c.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  name,
		"firstName": "First" + name,
		"lastName":  "Last" + name,
		"email":     email,
		"password":  "secret123",
	})
	require.Equal(c.t, http.StatusCreated, status)
	user := decode[ident](c.t, env)

	status, env = c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(c.t, http.StatusOK, status)
	login := decode[struct {
		AccessToken string `json:"accessToken"`
	}](c.t, env)
	require.NotEmpty(c.t, login.AccessToken)
	return user.ID, login.AccessToken
}

func TestTaskBoardFlow(t *testing.T) {
	c := newClient(t)

	_, alice := c.register("alice")
	bobID, bob := c.register("bob")
	_, carol := c.register("carol")

	status, env := c.do(http.MethodPost, "/api/organizations", alice, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, status)
	org := decode[ident](t, env)

	status, _ = c.do(http.MethodPost, "/api/organizations/"+org.ID+"/members", alice, map[string]string{"userId": bobID})
	require.Equal(t, http.StatusCreated, status)

	status, env = c.do(http.MethodPost, "/api/projects", alice, map[string]string{"organizationId": org.ID, "name": "Website"})
	require.Equal(t, http.StatusCreated, status)
	project := decode[ident](t, env)

	status, env = c.do(http.MethodPost, "/api/tasks", alice, map[string]string{
		"name":        "Landing page",
		"description": "Build it",
		"projectId":   project.ID,
		"assigneeId":  bobID,
		"dueDate":     "2030-01-15",
	})
	require.Equal(t, http.StatusCreated, status)
	task := decode[ident](t, env)
	taskPath := "/api/tasks/" + task.ID

	t.Run("assignee reads and moves the task", func(t *testing.T) {
		status, _ := c.do(http.MethodGet, taskPath, bob, nil)
		assert.Equal(t, http.StatusOK, status)

		status, env := c.do(http.MethodPatch, taskPath, bob, map[string]string{"status": "IN_PROGRESS"})
		require.Equal(t, http.StatusOK, status)
		updated := decode[struct {
			Status string `json:"status"`
		}](t, env)
		assert.Equal(t, "In Progress", updated.Status)

		status, env = c.do(http.MethodPatch, taskPath, bob, map[string]string{"name": "Renamed"})
		assert.Equal(t, http.StatusForbidden, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	})

	t.Run("owner cannot change status", func(t *testing.T) {
		status, _ := c.do(http.MethodPatch, taskPath, alice, map[string]string{"status": "DONE"})
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = c.do(http.MethodPatch, taskPath, alice, map[string]string{"name": "Renamed"})
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("member sees only assigned tasks without assignee", func(t *testing.T) {
		status, env := c.do(http.MethodGet, "/api/projects/"+project.ID+"/tasks", bob, nil)
		require.Equal(t, http.StatusOK, status)
		tasks := decode[[]map[string]interface{}](t, env)
		require.Len(t, tasks, 1)
		assert.NotContains(t, tasks[0], "assignee")

		status, env = c.do(http.MethodGet, "/api/projects/"+project.ID+"/tasks", alice, nil)
		require.Equal(t, http.StatusOK, status)
		tasks = decode[[]map[string]interface{}](t, env)
		require.Len(t, tasks, 1)
		assert.Contains(t, tasks[0], "assignee")
	})

	t.Run("outsider is kept out", func(t *testing.T) {
		status, _ := c.do(http.MethodGet, "/api/organizations/"+org.ID+"/projects", carol, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = c.do(http.MethodGet, "/api/organizations/"+org.ID, carol, nil)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = c.do(http.MethodPatch, "/api/organizations/"+org.ID, carol, map[string]string{})
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = c.do(http.MethodGet, taskPath, carol, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = c.do(http.MethodDelete, taskPath, carol, nil)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = c.do(http.MethodDelete, taskPath, bob, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("organization rename needs a name", func(t *testing.T) {
		status, env := c.do(http.MethodPatch, "/api/organizations/"+org.ID, alice, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

		status, _ = c.do(http.MethodPatch, "/api/organizations/"+org.ID, alice, map[string]string{"name": "Acme Labs"})
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("owner deletes the task", func(t *testing.T) {
		status, _ := c.do(http.MethodDelete, taskPath, alice, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = c.do(http.MethodGet, taskPath, alice, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestAuthRequired(t *testing.T) {
	c := newClient(t)

	status, env := c.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = c.do(http.MethodGet, "/api/organizations", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSignUpValidation(t *testing.T) {
	c := newClient(t)

	status, env := c.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  "ab",
		"firstName": "First",
		"lastName":  "Last",
		"email":     "not-an-email",
		"password":  "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	c.register("dave")
	status, _ = c.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  "dave",
		"firstName": "First",
		"lastName":  "Last",
		"email":     "DAVE@example.com",
		"password":  "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "dave@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUserSearchPagination(t *testing.T) {
	c := newClient(t)

	var token string
	for i := 0; i < 23; i++ {
		_, token = c.register(fmt.Sprintf("user%02d", i))
	}

	status, env := c.do(http.MethodGet, "/api/users/search?q=user&page=2", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.Page)
	assert.Equal(t, 20, env.Meta.PerPage)
	assert.Equal(t, 23, env.Meta.Total)
	assert.Equal(t, 2, env.Meta.PageCount)
	assert.Len(t, decode[[]ident](t, env), 3)

	status, env = c.do(http.MethodGet, "/api/users/search?q=user&page=500000000000000000", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 23, env.Meta.Total)
	assert.Empty(t, decode[[]ident](t, env))
}

func TestDeleteMe(t *testing.T) {
	c := newClient(t)
	_, token := c.register("erin")

	status, _ := c.do(http.MethodDelete, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	c := newClient(t)

	status, env := c.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, status)
	health := decode[map[string]interface{}](t, env)
	assert.Equal(t, "healthy", health["db_status"])

	status, env = c.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
}
