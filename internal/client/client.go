// AngelaMos | 2026
// client.go

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/carterperez-dev/mediahub/internal/auth"
	"github.com/carterperez-dev/mediahub/internal/content"
	"github.com/carterperez-dev/mediahub/internal/media"
)

// APIError is a non-2xx answer decoded from the response envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (*Session, error) {
	var resp auth.AuthResponse
	if err := c.doJSON(ctx, nil, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return sessionFrom(&resp), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	req := auth.LoginRequest{Email: email, Password: password}

	var resp auth.AuthResponse
	if err := c.doJSON(ctx, nil, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return sessionFrom(&resp), nil
}

func (c *Client) Me(ctx context.Context, s *Session) (*auth.UserResponse, error) {
	var out auth.UserResponse
	if err := c.doJSON(ctx, s, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListContent(ctx context.Context, s *Session) ([]content.ContentWithAuthor, error) {
	var out []content.ContentWithAuthor
	if err := c.doJSON(ctx, s, http.MethodGet, "/api/content", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateContent(
	ctx context.Context,
	s *Session,
	req content.CreateContentRequest,
) (*content.ContentWithAuthor, error) {
	var out content.ContentWithAuthor
	if err := c.doJSON(ctx, s, http.MethodPost, "/api/content", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateContent(
	ctx context.Context,
	s *Session,
	id string,
	req content.UpdateContentRequest,
) (*content.ContentWithAuthor, error) {
	var out content.ContentWithAuthor
	if err := c.doJSON(ctx, s, http.MethodPut, "/api/content/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteContent(ctx context.Context, s *Session, id string) error {
	return c.doJSON(ctx, s, http.MethodDelete, "/api/content/"+id, nil, nil)
}

func (c *Client) ListMedia(ctx context.Context, s *Session) ([]media.AssetResponse, error) {
	var out []media.AssetResponse
	if err := c.doJSON(ctx, s, http.MethodGet, "/api/media", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload streams r as the multipart "file" field through a pipe, so the
// payload is never held in memory.
func (c *Client) Upload(
	ctx context.Context,
	s *Session,
	filename, contentType string,
	r io.Reader,
) (*media.AssetResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(
			`form-data; name="file"; filename=%q`, filename,
		))
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}

		part, err := mw.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, s, http.MethodPost, "/api/media/upload", pr)
	if err != nil {
		_ = pr.Close() //nolint:errcheck // unblocks the writer goroutine
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out media.AssetResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(
	ctx context.Context,
	s *Session,
	method, path string,
	body, out any,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, s, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) newRequest(
	ctx context.Context,
	s *Session,
	method, path string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if s != nil && s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    "BAD_RESPONSE",
			Message: fmt.Sprintf("undecodable response: %v", err),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
