package middleware

import (
	"net/http"
)

// CORS allows the web frontend's origin to call the API. An empty allowed
// list permits any origin.
type CORS struct {
	allowed  map[string]bool
	allowAll bool
}

// NewCORS creates the middleware for the given origins.
func NewCORS(origins []string) *CORS {
	c := &CORS{allowed: make(map[string]bool), allowAll: len(origins) == 0}
	for _, o := range origins {
		if o == "*" {
			c.allowAll = true
		}
		c.allowed[o] = true
	}
	return c
}

// Handler sets the CORS headers and short-circuits preflight requests.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (c.allowAll || c.allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
