package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/log"
)

type ctxKey int

const userKey ctxKey = iota

// requireAuth admits requests carrying a valid bearer token and stores the
// username in the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		user, err := s.sessions.Parse(token)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "token rejected",
				log.NewFields().WithError(err).ToSlice()...)
			UnauthorizedError("invalid or expired token").Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUser, user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFrom returns the authenticated username.
func userFrom(ctx context.Context) string {
	u, _ := ctx.Value(userKey).(string)
	return u
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, badBody(err)).Write(w)
		return
	}

	user, err := s.users.Register(r.Context(), p.Get("username"), p.GetRaw("password"), p.GetRaw("password_confirm"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "user registered",
		log.NewFields().WithUser(user).WithOperation(log.OpRegister).ToSlice()...)
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"user": user}).Write(w)
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      string `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, badBody(err)).Write(w)
		return
	}

	user, err := s.users.Authenticate(r.Context(), p.Get("username"), p.GetRaw("password"))
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "login failed",
			log.NewFields().WithOperation(log.OpLogin).WithError(err).ToSlice()...)
		FromError(r, err).Write(w)
		return
	}
	// Load the user's data now so the first request after login is served
	// from memory.
	if err := s.finance.Open(r.Context(), user); err != nil {
		FromError(r, err).Write(w)
		return
	}
	token, exp, err := s.sessions.Issue(user)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "user logged in",
		log.NewFields().WithUser(user).WithOperation(log.OpLogin).ToSlice()...)
	NewJSONResponse().Body(loginResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339), User: user}).Write(w)
}

// handleLogout flushes the user's data to storage and drops it from memory.
// The token itself stays valid until it expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.Close(r.Context(), userFrom(r.Context())); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
