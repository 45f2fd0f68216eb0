// AngelaMos | 2026
// app_test.go

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mediahub/internal/config"
)

func testApp(t *testing.T) http.Handler {
	t.Helper()

	cfg, err := config.Defaults()
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.GenerateKeys = true
	cfg.JWT.PrivateKeyPath = filepath.Join(dir, "keys", "private.pem")
	cfg.JWT.PublicKeyPath = filepath.Join(dir, "keys", "public.pem")
	cfg.Media.Storage.FS.BaseDir = filepath.Join(dir, "uploads")
	cfg.Media.PublicBaseURL = "http://api.test"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })

	return a.server.Router()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(
	t *testing.T,
	h http.Handler,
	method, path, token string,
	body io.Reader,
	contentType string,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func callJSON(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return call(t, h, method, path, token, r, "application/json")
}

func TestWriterFlow(t *testing.T) {
	h := testApp(t)

	rec, _ := callJSON(t, h, http.MethodPost, "/api/auth/register", "",
		`{"email":"writer1@x.com","password":"secret1","name":"Writer One"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := callJSON(t, h, http.MethodPost, "/api/auth/login", "",
		`{"email":"writer1@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "writer", login.User.Role)

	rec, _ = callJSON(t, h, http.MethodPost, "/api/content", login.Token,
		`{"title":"Hello","body":"World"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = callJSON(t, h, http.MethodGet, "/api/content", login.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []struct {
		Title    string `json:"title"`
		Status   string `json:"status"`
		AuthorID string `json:"author_id"`
		Author   struct {
			Name string `json:"name"`
		} `json:"author"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Hello", items[0].Title)
	assert.Equal(t, "draft", items[0].Status)
	assert.Equal(t, login.User.ID, items[0].AuthorID)
	assert.Equal(t, "Writer One", items[0].Author.Name)
}

func TestUploadFlow(t *testing.T) {
	h := testApp(t)

	rec, env := callJSON(t, h, http.MethodPost, "/api/auth/register", "",
		`{"email":"writer1@x.com","password":"secret1","name":"Writer One"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="report.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("%"), 2048))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec, _ = call(t, h, http.MethodPost, "/api/media/upload", reg.Token, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = callJSON(t, h, http.MethodGet, "/api/media", reg.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Size int64  `json:"size"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "document", assets[0].Type)
	assert.Equal(t, int64(2048), assets[0].Size)
	require.True(t, strings.HasPrefix(assets[0].URL, "http://api.test/uploads/"))

	path := strings.TrimPrefix(assets[0].URL, "http://api.test")
	rec, _ = call(t, h, http.MethodGet, path, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2048, rec.Body.Len())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment"))
	assert.Equal(t, "sandbox", rec.Header().Get("Content-Security-Policy"))
}

func TestTokenErrors(t *testing.T) {
	h := testApp(t)

	rec, env := callJSON(t, h, http.MethodGet, "/api/content", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = callJSON(t, h, http.MethodGet, "/api/content", "not.a.token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWriterCannotReachAdmin(t *testing.T) {
	h := testApp(t)

	_, env := callJSON(t, h, http.MethodPost, "/api/auth/register", "",
		`{"email":"writer1@x.com","password":"secret1","name":"Writer One"}`)
	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))

	rec, _ := callJSON(t, h, http.MethodGet, "/api/admin/stats", reg.Token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = callJSON(t, h, http.MethodGet, "/api/users", reg.Token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPingAndProbes(t *testing.T) {
	h := testApp(t)

	rec, env := callJSON(t, h, http.MethodGet, "/api/test", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "server is running")

	rec, _ = call(t, h, http.MethodGet, "/readyz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"storage"`)

	rec, _ = call(t, h, http.MethodGet, "/.well-known/jwks.json", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCredentialEndpointsThrottled(t *testing.T) {
	h := testApp(t)

	body := `{"email":"nobody@x.com","password":"wrong-password"}`
	for range 5 {
		rec, _ := callJSON(t, h, http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, env := callJSON(t, h, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	rec, _ = callJSON(t, h, http.MethodGet, "/api/test", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCredentialBudgetIgnoresSpoofedForwarding(t *testing.T) {
	h := testApp(t)

	body := `{"email":"nobody@x.com","password":"wrong-password"}`
	login := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.RemoteAddr = "203.0.113.50:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := range 5 {
		require.Equal(t, http.StatusUnauthorized, login(fmt.Sprintf("198.51.100.%d", i)))
	}
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.99"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(config.LogConfig{Level: "WARN", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	logger = newLogger(config.LogConfig{Level: "verbose"}, &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.NotContains(t, buf.String(), "hidden")
}
