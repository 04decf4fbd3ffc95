package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"
)

// SecurityHeaders sets standard security headers on API responses.
// Gateway responses are exempt from frame denial: previews are meant to be
// embedded in iframes from other origins.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if !strings.HasPrefix(r.URL.Path, "/view/") {
			w.Header().Set("X-Frame-Options", "DENY")
		}

		next.ServeHTTP(w, r)
	})
}

// Recoverer recovers from handler panics and returns a 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
