package middleware

import "net/http"

// NoStore marks every response as private and uncacheable. Cart, order and
// address payloads are per caller and must not be kept by shared caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
