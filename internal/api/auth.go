package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/alexjbarnes/docsync/internal/config"
)

var errUnauthorized = errors.New("invalid or missing API key")

// hashKeys pre-hashes configured keys so request handling compares
// digests of fixed length instead of raw key material.
func hashKeys(entries []config.APIKeyEntry) [][]byte {
	hashed := make([][]byte, 0, len(entries))

	for _, e := range entries {
		sum := sha256.Sum256([]byte(e.Key))
		hashed = append(hashed, sum[:])
	}

	return hashed
}

// requireAPIKey enforces "Authorization: Bearer <key>" when keys are
// configured. With no keys the middleware is a pass-through.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	if len(s.keys) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			s.writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}

		sum := sha256.Sum256([]byte(raw))

		for _, key := range s.keys {
			if subtle.ConstantTimeCompare(sum[:], key) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}

		s.writeError(w, http.StatusUnauthorized, errUnauthorized)
	})
}
