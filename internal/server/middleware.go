package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"alignlab/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyActor   contextKey = "actor"
	contextKeyTokenID contextKey = "token_id"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireAuth verifies the bearer token and attaches the acting user to the
// request context. A token is only accepted while its database row is still
// live, so logout takes effect immediately.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			s.respondError(w, http.StatusUnauthorized, types.CodeUnauthorized, "Authentication required")
			return
		}

		tokenID, userID, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.WithError(err).Debug("rejected access token")
			s.respondError(w, http.StatusUnauthorized, types.CodeUnauthorized, "Invalid or expired token")
			return
		}

		if _, err := s.sessions.Token(r.Context(), tokenID); err != nil {
			if !errors.Is(err, types.ErrTokenNotFound) {
				s.logger.WithError(err).Error("failed to look up access token")
				s.serverError(w)
				return
			}
			s.respondError(w, http.StatusUnauthorized, types.CodeUnauthorized, "Invalid or expired token")
			return
		}

		user, err := s.users.User(r.Context(), userID)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				s.respondError(w, http.StatusUnauthorized, types.CodeUnauthorized, "Invalid or expired token")
				return
			}
			s.logger.WithError(err).Error("failed to load user for access token")
			s.serverError(w)
			return
		}

		if err := s.sessions.TouchToken(r.Context(), tokenID); err != nil {
			s.logger.WithError(err).Warn("failed to update token last_used_at")
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyActor, types.Actor{ID: user.ID, IsAdmin: user.IsAdmin})
		ctx = context.WithValue(ctx, contextKeyTokenID, tokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin sits behind RequireAuth and refuses non-admin actors before
// the handler runs, so admin-only routes never leak record existence.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.actorFromContext(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("ctx doesn't contain actor")
			s.serverError(w)
			return
		}

		if !actor.IsAdmin {
			s.forbidden(w, "This operation is restricted to administrators")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newPath := strings.TrimSuffix(path, "/")
			newURL := *r.URL
			newURL.Path = newPath

			// Preserve query string
			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
