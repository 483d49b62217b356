package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sakif/blogger-web/internal/apperror"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForward_AttachesBearerAndRequestID(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger()).WithToken("abc123")
	resp, err := client.Forward(context.Background(), http.MethodGet, "/posts", nil, "", nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	resp.Body.Close()

	if auth := got.Get("Authorization"); auth != "Bearer abc123" {
		t.Errorf("Authorization = %q, want the prefixed token", auth)
	}
	if got.Get("X-Request-ID") == "" {
		t.Error("every backend request carries a correlation ID")
	}
}

func TestForward_TokenAlreadyPrefixed(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger()).WithToken("Bearer abc123")
	resp, err := client.Forward(context.Background(), http.MethodGet, "/posts", nil, "", nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	resp.Body.Close()

	if auth != "Bearer abc123" {
		t.Errorf("Authorization = %q, prefix must not be doubled", auth)
	}
}

func TestForward_AnonymousSendsNoAuthHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger())
	resp, err := client.Forward(context.Background(), http.MethodGet, "/posts", nil, "", nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	resp.Body.Close()

	if hasAuth {
		t.Error("anonymous client must not send an Authorization header")
	}
}

func TestWithToken_DoesNotMutateOriginal(t *testing.T) {
	base := New("http://backend", 0, discardLogger())
	bound := base.WithToken("abc")
	if base.token != "" {
		t.Error("WithToken() leaked the token into the shared client")
	}
	if bound.token != "abc" {
		t.Errorf("bound token = %q, want abc", bound.token)
	}
}

func TestDo_DecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Post not found"})
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger())
	_, err := client.Post(context.Background(), 99)
	if err == nil {
		t.Fatal("Post() should surface the backend error")
	}

	status, ok := apperror.UpstreamStatus(err)
	if !ok || status != http.StatusNotFound {
		t.Errorf("UpstreamStatus() = %d, %v; want 404, true", status, ok)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Message != "Post not found" {
		t.Errorf("Message = %q, want the backend envelope text", appErr.Message)
	}
}

func TestDo_NonJSONErrorBodyFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>nginx</html>"))
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger())
	_, err := client.Posts(context.Background(), 1, 5)
	if err == nil {
		t.Fatal("Posts() should surface the failure")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Errorf("Message = %q, want the status text fallback", appErr.Message)
	}
}

func TestPosts_SendsPageAndLimit(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}, "lastPage": 1})
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger())
	if _, err := client.RecommendedPosts(context.Background(), 3, 5); err != nil {
		t.Fatalf("RecommendedPosts() error = %v", err)
	}
	if query != "limit=5&page=3" {
		t.Errorf("query = %q, want page and limit encoded", query)
	}
}

func TestCreateComment_DecodesAllShapes(t *testing.T) {
	shapes := []struct {
		name string
		body string
	}{
		{"bare record", `{"id": 7, "content": "hi", "post": 42}`},
		{"wrapped object", `{"data": {"id": 7, "content": "hi", "post": 42}}`},
		{"wrapped array", `{"data": [{"id": 7, "content": "hi", "post": 42}]}`},
	}

	for _, tc := range shapes {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := New(srv.URL, 0, discardLogger()).WithToken("abc")
			comment, err := client.CreateComment(context.Background(), 42, "hi")
			if err != nil {
				t.Fatalf("CreateComment() error = %v", err)
			}
			if comment.ID != 7 || comment.Content != "hi" {
				t.Errorf("comment = %+v, want id 7 content hi", comment)
			}
		})
	}
}

func TestUserByEmail_EscapesPath(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]any{"id": 1})
	}))
	defer srv.Close()

	client := New(srv.URL, 0, discardLogger())
	if _, err := client.UserByEmail(context.Background(), "a b@example.com"); err != nil {
		t.Fatalf("UserByEmail() error = %v", err)
	}
	if path != "/users/by-email/a%20b@example.com" {
		t.Errorf("path = %q, want the email path-escaped", path)
	}
}
