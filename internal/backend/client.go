// Package backend is the typed HTTP client for the external blog API.
//
// All persistent state (users, posts, comments, likes) lives behind this API;
// the app is a presentation layer on top of it. The client does three things
// and nothing more: build the request, attach the viewer's bearer token, and
// decode either the response body or the backend's {"message"} error envelope.
// No retries, no caching, no token validation - the backend owns all of that.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blogger-web/internal/apperror"
	"github.com/sakif/blogger-web/internal/model"
)

// DefaultTimeout bounds every backend call. There is no per-request retry or
// abort machinery; a request runs to completion or to this deadline.
const DefaultTimeout = 30 * time.Second

// Client talks to the blog backend. The zero value is not usable; construct
// with New. Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	token      string
}

// New creates a Client for the backend rooted at baseURL.
// A trailing slash on baseURL is tolerated and stripped.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithToken returns a copy of the client bound to the given bearer token.
// The original client is untouched, so one shared client can be re-bound
// per request without locking. An empty token yields an anonymous client.
func (c *Client) WithToken(token string) *Client {
	bound := *c
	bound.token = token
	return &bound
}

// BaseURL reports the backend root, used to absolutize relative upload paths.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorEnvelope is the backend's error body: {"message": "..."}.
type errorEnvelope struct {
	Message string `json:"message"`
}

// AuthResponse is returned by the register and login endpoints. Some backend
// versions include the user record, some only the token.
type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

// do performs one backend round trip and decodes a 2xx JSON body into out.
// Non-2xx responses become apperror.Upstream carrying the backend's status
// and message, so callers and the proxy layer can relay them unchanged.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	resp, err := c.Forward(ctx, method, path, query, contentType, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.upstreamError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// Forward relays a raw body to the backend and returns the raw response.
// The proxy handlers use it for pass-through (multipart uploads included);
// the typed methods below build on it via do. The caller owns resp.Body.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		// Tokens arrive from cookies/headers both bare and already prefixed.
		token := c.token
		if !strings.HasPrefix(token, "Bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}
	// Correlation ID so a backend log line can be matched to ours.
	req.Header.Set("X-Request-ID", xid.New().String())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// upstreamError drains a non-2xx response into an apperror.
func (c *Client) upstreamError(resp *http.Response) error {
	return DecodeError(resp)
}

// DecodeError converts a non-2xx backend response into an apperror carrying
// the backend's status and message. A body that is not the JSON envelope
// (HTML error pages, empty bodies) falls back to the status text.
func DecodeError(resp *http.Response) error {
	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Message == "" {
		envelope.Message = http.StatusText(resp.StatusCode)
	}
	return apperror.Upstream(resp.StatusCode, envelope.Message)
}

// pageQuery builds the page/limit query shared by the list endpoints.
func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// Register creates an account. The backend enforces all credential rules.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Posts returns the plain chronological feed.
func (c *Client) Posts(ctx context.Context, page, limit int) (*model.PostList, error) {
	var out model.PostList
	if err := c.do(ctx, http.MethodGet, "/posts", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecommendedPosts returns the recommended feed page.
func (c *Client) RecommendedPosts(ctx context.Context, page, limit int) (*model.PostList, error) {
	var out model.PostList
	if err := c.do(ctx, http.MethodGet, "/posts/recommended", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MostLikedPosts returns the top posts by like count. Not paginated.
func (c *Client) MostLikedPosts(ctx context.Context, limit int) (*model.PostList, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var out model.PostList
	if err := c.do(ctx, http.MethodGet, "/posts/most-liked", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchPosts runs a full-text search. Not paginated.
func (c *Client) SearchPosts(ctx context.Context, query string) (*model.PostList, error) {
	q := url.Values{}
	q.Set("query", query)
	var out model.PostList
	if err := c.do(ctx, http.MethodGet, "/posts/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostsByUser returns one page of a user's posts plus their profile.
func (c *Client) PostsByUser(ctx context.Context, userID, page, limit int) (*model.PostList, error) {
	var out model.PostList
	path := fmt.Sprintf("/posts/by-user/%d", userID)
	if err := c.do(ctx, http.MethodGet, path, pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyPosts returns one page of the authenticated viewer's posts.
func (c *Client) MyPosts(ctx context.Context, page, limit int) (*model.PostList, error) {
	var out model.PostList
	if err := c.do(ctx, http.MethodGet, "/posts/my-posts", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Post fetches a single post by ID.
func (c *Client) Post(ctx context.Context, id int) (*model.Post, error) {
	var out model.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost removes a post. The backend checks ownership.
func (c *Client) DeletePost(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil, nil, nil)
}

// ToggleLike flips the viewer's like on a post and returns the refreshed
// post, whose Likes count is authoritative.
func (c *Client) ToggleLike(ctx context.Context, postID int) (*model.Post, error) {
	var out model.Post
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostLikes returns the users who liked a post (the liker set).
func (c *Client) PostLikes(ctx context.Context, postID int) ([]model.User, error) {
	var out []model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/likes", postID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Comments returns the full comment list for a post, in server order.
func (c *Client) Comments(ctx context.Context, postID int) ([]model.Comment, error) {
	var out []model.Comment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/comments/%d", postID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// createdComment tolerates the two shapes the backend has been seen to
// return for a new comment: the bare record, or the record wrapped in
// {"data": ...} (sometimes as a one-element array).
type createdComment struct {
	model.Comment
	Data json.RawMessage `json:"data,omitempty"`
}

// CreateComment posts a new comment and returns the created record.
func (c *Client) CreateComment(ctx context.Context, postID int, content string) (*model.Comment, error) {
	var raw createdComment
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/comments/%d", postID), nil, body, &raw); err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 {
		return &raw.Comment, nil
	}

	// Wrapped shape. Try a single object first, then a one-element array.
	var single model.Comment
	if err := json.Unmarshal(raw.Data, &single); err == nil {
		return &single, nil
	}
	var list []model.Comment
	if err := json.Unmarshal(raw.Data, &list); err == nil && len(list) > 0 {
		return &list[0], nil
	}
	return nil, fmt.Errorf("decoding created comment: unrecognised response shape")
}

// User fetches a user record by ID.
func (c *Client) User(ctx context.Context, id int) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserByEmail fetches a user record by email address.
func (c *Client) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var out model.User
	path := "/users/by-email/" + url.PathEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
