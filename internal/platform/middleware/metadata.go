package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientInfo struct{}

// ClientInfo carries per-request client metadata for audit records.
type ClientInfo struct {
	IP        string
	UserAgent string
	// Device is a compact human-readable summary parsed from the
	// User-Agent, e.g. "Firefox 128 on Linux".
	Device string
}

// ClientMetadata extracts the client IP and User-Agent and stores them in
// the context. Apply it early so audit emission downstream can see it.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := ClientInfo{
			IP:        clientIP(r),
			UserAgent: r.Header.Get("User-Agent"),
		}
		info.Device = deviceSummary(info.UserAgent)

		ctx := context.WithValue(r.Context(), contextKeyClientInfo{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientInfo retrieves the client metadata from the context; the zero
// value means the middleware did not run.
func GetClientInfo(ctx context.Context) ClientInfo {
	if info, ok := ctx.Value(contextKeyClientInfo{}).(ClientInfo); ok {
		return info
	}
	return ClientInfo{}
}

// WithClientInfo injects client metadata into a context for service tests
// that bypass the HTTP middleware chain.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, contextKeyClientInfo{}, info)
}

func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	// Major version only; the full string churns too much to be useful.
	if idx := strings.Index(version, "."); idx != -1 {
		version = version[:idx]
	}
	summary := name
	if version != "" {
		summary = fmt.Sprintf("%s %s", name, version)
	}
	if os := ua.OS(); os != "" {
		summary = fmt.Sprintf("%s on %s", summary, os)
	}
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}

// clientIP resolves the original client address behind proxies. The first
// X-Forwarded-For entry wins, then X-Real-IP, then the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		// RemoteAddr is "ip:port"; IPv6 wraps the host in brackets.
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}
