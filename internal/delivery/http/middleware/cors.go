package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, PATCH, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, Accept, Idempotency-Key, X-Request-ID"
	corsMaxAge       = "86400"
)

// CORSPolicy decides which browser origins may call the API and which response
// headers their scripts may read.
type CORSPolicy struct {
	origins map[string]struct{}
	expose  string
}

// NewCORSPolicy normalizes allowedOrigins (trimmed, no trailing slash) and
// exposes exposedHeaders to allowed origins.
func NewCORSPolicy(allowedOrigins, exposedHeaders []string) *CORSPolicy {
	p := &CORSPolicy{
		origins: make(map[string]struct{}, len(allowedOrigins)),
		expose:  strings.Join(exposedHeaders, ", "),
	}
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			p.origins[o] = struct{}{}
		}
	}
	return p
}

// Allows reports whether origin is on the allow list.
func (p *CORSPolicy) Allows(origin string) bool {
	_, ok := p.origins[origin]
	return origin != "" && ok
}

// Handler answers preflights and stamps CORS headers on responses to allowed origins.
// A preflight from an unknown origin is refused with 403. Requests without an
// Origin header pass through untouched.
func (p *CORSPolicy) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Add("Vary", "Origin")
		allowed := p.Allows(origin)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			if p.expose != "" {
				h.Set("Access-Control-Expose-Headers", p.expose)
			}
		}
		next.ServeHTTP(w, r)
	})
}
