package auth

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuth guards next with a single bcrypt-hashed credential. An empty user
// disables the check.
func BasicAuth(user, passwordHash string, next http.Handler) http.Handler {
	if user == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}

		if subtle.ConstantTimeCompare([]byte(username), []byte(user)) != 1 {
			unauthorized(w)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
			unauthorized(w)
			return
		}

		r.Header.Set("Remote-User", username)
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="pingd"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
