package fleettracker

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// authenticator issues and verifies the HS256 bearer tokens that guard the
// mutation endpoints. Credentials come from a static user list in config.
type authenticator struct {
	secret []byte
	ttl    time.Duration
	users  []AuthUser
}

func newAuthenticator(cfg AuthConfig) *authenticator {
	return &authenticator{
		secret: []byte(cfg.Secret),
		ttl:    time.Duration(cfg.TokenTTLMinutes) * time.Minute,
		users:  cfg.Users,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}
	token, ok := s.auth.login(req.Email, req.Password)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (a *authenticator) login(email, password string) (string, bool) {
	var found bool
	for _, u := range a.users {
		if u.Email == email && u.Password == password {
			found = true
			break
		}
	}
	if !found {
		return "", false
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", false
	}
	return signed, true
}

// require wraps a handler with bearer-token verification.
func (a *authenticator) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		next(w, r)
	}
}
