package middleware

import (
	"mime"
	"net/http"
	"slices"

	"github.com/Rrens/knowflow/internal/api/response"
)

// TrustedOrigin guards state-changing requests. CORS headers alone do not stop
// a cross-site page from firing simple requests at the gateway, so requests
// carrying a foreign Origin are refused, and bodies must be JSON or multipart
// (content types a plain HTML form or no-cors fetch cannot send unpreflighted).
func TrustedOrigin(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if origin := r.Header.Get("Origin"); origin != "" && !slices.Contains(allowed, origin) {
				response.Error(w, http.StatusForbidden, "origin not allowed")
				return
			}
			if r.Header.Get("Sec-Fetch-Site") == "cross-site" && r.Header.Get("Origin") == "" {
				response.Error(w, http.StatusForbidden, "origin not allowed")
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				if r.ContentLength > 0 {
					response.Error(w, http.StatusUnsupportedMediaType, "content type required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || (mediaType != "application/json" && mediaType != "multipart/form-data") {
				response.Error(w, http.StatusUnsupportedMediaType, "unsupported content type")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
