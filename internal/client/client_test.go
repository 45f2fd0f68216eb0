// AngelaMos | 2026
// client_test.go

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mediahub/internal/auth"
	"github.com/carterperez-dev/mediahub/internal/content"
	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/media"
)

const testToken = "tok-123"

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()

	requireToken := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				core.Unauthorized(w, "access token required")
				return
			}
			next(w, r)
		}
	}

	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret1" {
			core.Unauthorized(w, "invalid email or password")
			return
		}
		core.OK(w, auth.AuthResponse{
			Token:     testToken,
			TokenType: "Bearer",
			ExpiresAt: time.Now().Add(time.Hour),
			User:      auth.UserResponse{ID: "u1", Email: req.Email, Role: "writer"},
		})
	})

	r.Get("/api/content", requireToken(func(w http.ResponseWriter, _ *http.Request) {
		core.OK(w, []content.ContentWithAuthor{
			{Content: content.Content{ID: "c1", Title: "Hello", Status: content.StatusDraft}},
		})
	}))

	r.Delete("/api/content/{id}", requireToken(func(w http.ResponseWriter, r *http.Request) {
		core.OK(w, content.DeleteResponse{Message: "content deleted successfully", ID: chi.URLParam(r, "id")})
	}))

	r.Post("/api/media/upload", requireToken(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			core.BadRequest(w, "no file uploaded")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		core.Created(w, media.AssetResponse{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Type:     media.Classify(header.Header.Get("Content-Type")),
			Size:     int64(len(data)),
		})
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginAndAuthorizedCalls(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL + "/")
	ctx := context.Background()

	s, err := c.Login(ctx, "writer1@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, testToken, s.Token)
	assert.Equal(t, "writer1@x.com", s.User.Email)

	items, err := c.ListContent(ctx, s)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hello", items[0].Title)

	require.NoError(t, c.DeleteContent(ctx, s, "c1"))
}

func TestCallsWithoutSessionFail(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL)

	_, err := c.ListContent(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestLoginFailure(t *testing.T) {
	srv := fakeAPI(t)

	_, err := New(srv.URL).Login(context.Background(), "writer1@x.com", "nope")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestUploadStreamsMultipart(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL)
	s := &Session{Token: testToken}

	asset, err := c.Upload(context.Background(), s, "report.pdf", "application/pdf",
		strings.NewReader(strings.Repeat("x", 2048)))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", asset.Name)
	assert.Equal(t, media.TypeDocument, asset.Type)
	assert.Equal(t, int64(2048), asset.Size)
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := LoadSession(path)
	assert.ErrorIs(t, err, ErrNoSession)

	s := &Session{
		Token:     testToken,
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User:      auth.UserResponse{ID: "u1", Email: "writer1@x.com"},
	}
	require.NoError(t, s.Save(path))

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, s.Token, loaded.Token)
	assert.True(t, s.ExpiresAt.Equal(loaded.ExpiresAt))
	assert.False(t, loaded.Expired(time.Now()))
	assert.True(t, loaded.Expired(time.Now().Add(2*time.Hour)))

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path))
	_, err = LoadSession(path)
	assert.ErrorIs(t, err, ErrNoSession)
}
