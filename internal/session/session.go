// Package session resolves the viewer's identity for one request.
//
// The app never authenticates anyone itself. The backend issues a bearer
// token at login; we keep it in a "token" cookie (so server-rendered pages
// can forward it) alongside a "user" cookie holding the profile JSON the
// backend returned. "Token present" means "viewer authenticated" - real
// enforcement happens on the backend with every forwarded request.
//
// The one piece of token inspection done here is an UNVERIFIED read of the
// JWT expiry claim. Without it, a page would render logged-in chrome for a
// token the backend is guaranteed to reject. The signature is deliberately
// not checked: we do not hold the backend's signing key and must not grow
// our own trust in the token.
package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/blogger-web/internal/model"
)

const (
	tokenCookie = "token"
	userCookie  = "user"

	// cookieMaxAge caps how long the browser keeps the session cookies.
	// The token itself usually expires sooner; LoggedIn handles that.
	cookieMaxAge = 7 * 24 * time.Hour
)

// Viewer is the explicit current-session value passed into feed components
// and page handlers. The zero value is an anonymous viewer.
type Viewer struct {
	Token string
	User  *model.User
}

// LoggedIn reports whether the viewer should be treated as authenticated:
// a token is present and, when it parses as a JWT, its expiry has not
// passed. Tokens that are not JWTs at all are taken at face value.
func (v Viewer) LoggedIn() bool {
	if v.Token == "" {
		return false
	}
	return !tokenExpired(v.Token)
}

// UserID returns the viewer's numeric ID, or 0 when anonymous or when the
// profile cookie is missing. Like status derivation keys off this value.
func (v Viewer) UserID() int {
	if !v.LoggedIn() || v.User == nil {
		return 0
	}
	return v.User.ID
}

// FromRequest reads the viewer out of the request cookies. It never fails:
// anything malformed just degrades to an anonymous viewer.
func FromRequest(r *http.Request) Viewer {
	var v Viewer

	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		v.Token = strings.TrimPrefix(c.Value, "Bearer ")
	}

	if c, err := r.Cookie(userCookie); err == nil && c.Value != "" {
		if decoded, err := url.QueryUnescape(c.Value); err == nil {
			var u model.User
			if err := json.Unmarshal([]byte(decoded), &u); err == nil && u.ID != 0 {
				v.User = &u
			}
		}
	}

	return v
}

// Write stores the session cookies after a successful login or register.
// The user cookie is URL-encoded JSON, mirroring what the original client
// kept in local storage.
func Write(w http.ResponseWriter, token string, user *model.User) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if user != nil {
		encoded, err := json.Marshal(user)
		if err != nil {
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     userCookie,
			Value:    url.QueryEscape(string(encoded)),
			Path:     "/",
			MaxAge:   int(cookieMaxAge.Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Clear expires both session cookies (logout).
func Clear(w http.ResponseWriter) {
	for _, name := range []string{tokenCookie, userCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}

// tokenExpired reports whether tok is a JWT whose exp claim has passed.
// ParseUnverified only decodes; expired-but-well-formed is the single case
// we can act on without the signing key.
func tokenExpired(tok string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		// Not a JWT (or not decodable) - leave the verdict to the backend.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
