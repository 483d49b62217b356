package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blogger-web/internal/apperror"
	"github.com/sakif/blogger-web/internal/backend"
	"github.com/sakif/blogger-web/internal/session"
)

// ProxyHandler forwards browser /api requests to the blog backend.
//
// It is a deliberately thin adapter: forward the method, query, body and
// bearer token, relay 2xx responses untouched, and rewrap everything else in
// the {"message"} envelope with the backend's status preserved. No request
// is inspected beyond what routing requires, and multipart uploads stream
// straight through without being parsed.
type ProxyHandler struct {
	client *backend.Client
	logger *slog.Logger
}

// NewProxyHandler creates a ProxyHandler over the given backend client.
func NewProxyHandler(client *backend.Client, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{client: client, logger: logger}
}

// bearerToken extracts the viewer's token: the Authorization header wins
// (script-initiated calls), falling back to the session cookie (plain form
// posts and server-rendered navigation).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	return session.FromRequest(r).Token
}

// relay performs the pass-through: one backend round trip with the caller's
// query, body and token, then either a verbatim 2xx relay or the error
// envelope.
func (p *ProxyHandler) relay(w http.ResponseWriter, r *http.Request, method, path string, query url.Values) {
	var body io.Reader
	contentType := ""
	if method != http.MethodGet && method != http.MethodDelete {
		body = r.Body
		contentType = r.Header.Get("Content-Type")
	}

	client := p.client.WithToken(bearerToken(r))
	resp, err := client.Forward(r.Context(), method, path, query, contentType, body)
	if err != nil {
		writeError(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Message == "" {
			envelope.Message = http.StatusText(resp.StatusCode)
		}
		writeJSON(w, resp.StatusCode, ErrorResponse{Message: envelope.Message})
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Warn("relaying backend response interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// listQuery copies the caller's query and fills in the backend's expected
// page/limit defaults when absent.
func listQuery(r *http.Request, defaultLimit int) url.Values {
	q := r.URL.Query()
	if q.Get("page") == "" {
		q.Set("page", "1")
	}
	if q.Get("limit") == "" {
		q.Set("limit", strconv.Itoa(defaultLimit))
	}
	return q
}

// intParam parses a numeric chi URL parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, "missing or invalid "+name)
	}
	return id, nil
}

// Routes mounts every proxy route on the given router. The layout mirrors
// the backend API one-to-one.
func (p *ProxyHandler) Routes(r chi.Router) {
	r.Post("/auth/register", p.HandleRegister)
	r.Post("/auth/login", p.HandleLogin)

	r.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodGet, "/posts", listQuery(r, 10))
	})
	r.Post("/posts", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodPost, "/posts", nil)
	})
	r.Get("/posts/recommended", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodGet, "/posts/recommended", listQuery(r, 10))
	})
	r.Get("/posts/most-liked", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") == "" {
			q.Set("limit", "3")
		}
		p.relay(w, r, http.MethodGet, "/posts/most-liked", q)
	})
	r.Get("/posts/search", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodGet, "/posts/search", r.URL.Query())
	})
	r.Get("/posts/my-posts", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodGet, "/posts/my-posts", listQuery(r, 10))
	})
	r.Get("/posts/by-user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(r, "userId")
		if err != nil {
			writeError(w, err)
			return
		}
		p.relay(w, r, http.MethodGet, "/posts/by-user/"+strconv.Itoa(id), listQuery(r, 10))
	})
	r.Get("/posts/{id}", p.postByID(http.MethodGet, ""))
	r.Patch("/posts/{id}", p.postByID(http.MethodPatch, ""))
	r.Delete("/posts/{id}", p.postByID(http.MethodDelete, ""))
	r.Post("/posts/{id}/like", p.postByID(http.MethodPost, "/like"))
	r.Get("/posts/{id}/likes", p.postByID(http.MethodGet, "/likes"))

	r.Get("/comments/{postId}", func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(r, "postId")
		if err != nil {
			writeError(w, err)
			return
		}
		p.relay(w, r, http.MethodGet, "/comments/"+strconv.Itoa(id), nil)
	})
	r.Post("/comments/{postId}", p.HandleCreateComment)

	r.Get("/users/by-email/{email}", func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		if email == "" {
			writeError(w, apperror.ValidationFailed("email", "missing email"))
			return
		}
		p.relay(w, r, http.MethodGet, "/users/by-email/"+url.PathEscape(email), nil)
	})
	r.Patch("/users/profile", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodPatch, "/users/profile", nil)
	})
	r.Patch("/users/password", func(w http.ResponseWriter, r *http.Request) {
		p.relay(w, r, http.MethodPatch, "/users/password", nil)
	})
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		p.relay(w, r, http.MethodGet, "/users/"+strconv.Itoa(id), nil)
	})
}

// postByID builds a relay handler for /posts/{id}{suffix} routes.
func (p *ProxyHandler) postByID(method, suffix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		p.relay(w, r, method, "/posts/"+strconv.Itoa(id)+suffix, r.URL.Query())
	}
}

// HandleCreateComment proxies comment creation through the typed client so
// the occasional {"data": ...} wrapper in the backend's response is peeled
// off before the browser sees it.
func (p *ProxyHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := intParam(r, "postId")
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperror.ValidationFailed("content", "invalid JSON body"))
		return
	}

	client := p.client.WithToken(bearerToken(r))
	comment, err := client.CreateComment(r.Context(), postID, body.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister proxies account creation. No session is established; the
// client follows up with a login.
func (p *ProxyHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	resp, err := p.client.Register(r.Context(), creds.Name, creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin exchanges credentials for a token and establishes the session
// cookies that the server-rendered pages read. The user record rides along
// when the backend includes it; otherwise it is fetched by email so the
// viewer's ID is available for like-status derivation.
func (p *ProxyHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	resp, err := p.client.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user := resp.User
	if user == nil {
		if fetched, err := p.client.WithToken(resp.Token).UserByEmail(r.Context(), creds.Email); err == nil {
			user = fetched
		} else {
			p.logger.Warn("could not load profile after login",
				slog.String("email", creds.Email),
				slog.String("error", err.Error()),
			)
		}
	}

	session.Write(w, resp.Token, user)
	writeJSON(w, http.StatusOK, backend.AuthResponse{Token: resp.Token, User: user})
}
