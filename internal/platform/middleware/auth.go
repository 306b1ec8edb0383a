package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator defines the interface for validating session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents the claims we expect from the token validator.
// An applicant session is scoped to exactly one application.
type SessionClaims struct {
	ApplicationID string
	SessionID     string
}

// Context keys for storing authenticated session information
type contextKeyApplicationID struct{}
type contextKeySessionID struct{}

var (
	ContextKeyApplicationID = contextKeyApplicationID{}
	ContextKeySessionID     = contextKeySessionID{}
)

// GetApplicationID retrieves the authenticated application ID from the context.
func GetApplicationID(ctx context.Context) string {
	appID, ok := ctx.Value(ContextKeyApplicationID).(string)
	if !ok {
		return ""
	}
	return appID
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	sessionID, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return ""
	}
	return sessionID
}

// RequireAuth rejects requests without a valid bearer token and stashes the
// session claims in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "Missing or invalid Authorization header", nil)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, logger, "Invalid or expired token", err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyApplicationID, claims.ApplicationID)
			ctx = context.WithValue(ctx, ContextKeySessionID, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string, cause error) {
	ctx := r.Context()
	requestID := GetRequestID(ctx)
	logger.WarnContext(ctx, "unauthorized access",
		"description", description,
		"error", cause,
		"request_id", requestID,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
	if err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestID,
		)
	}
}
