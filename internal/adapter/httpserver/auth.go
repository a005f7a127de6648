package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// sessionCookieName holds the signed session token.
const sessionCookieName = "nextstep_session"

type userKey struct{}

// userIDFrom extracts the authenticated user id placed by RequireAuth.
func userIDFrom(r *http.Request) string {
	if v := r.Context().Value(userKey{}); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// tokenFrom pulls the session token from the cookie or, failing that, a
// Bearer authorization header so API clients work without cookies.
func tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// RequireAuth validates the session token and stores the user id in the
// request context. Requests without a valid token get 401.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := tokenFrom(r)
		if tok == "" {
			writeError(w, r, fmt.Errorf("%w: missing session", domain.ErrUnauthorized), nil)
			return
		}
		claims, err := s.Auth.ValidateToken(tok)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.Cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Cfg.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
}

// SignupHandler creates an account and opens a session.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email         string `json:"email" validate:"required,email"`
			Password      string `json:"password" validate:"required,min=8"`
			FullName      string `json:"full_name" validate:"required,max=200"`
			ContactNumber string `json:"contact_number" validate:"max=30"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		u, token, err := s.Auth.Signup(r.Context(), req.Email, req.Password, req.FullName, req.ContactNumber)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		s.setSessionCookie(w, token)
		writeJSON(w, http.StatusCreated, map[string]string{
			"id":        u.ID,
			"email":     u.Email,
			"full_name": u.FullName,
			"token":     token,
		})
	}
}

// LoginHandler verifies credentials and opens a session.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email" validate:"required,email"`
			Password string `json:"password" validate:"required"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		u, token, err := s.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		s.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]string{
			"id":        u.ID,
			"email":     u.Email,
			"full_name": u.FullName,
			"token":     token,
		})
	}
}

// LogoutHandler clears the session cookie. Tokens are stateless, so logout
// is purely client-side expiry.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}
