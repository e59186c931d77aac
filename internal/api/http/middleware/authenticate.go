package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avream/cardsnoop/internal/logger"
)

// TokenParser resolves session IDs from bearer tokens.
type TokenParser interface {
	ParseSessionToken(tokenString string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects the session ID into the
// request context.
type Authenticate struct {
	tokens TokenParser
	logger *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens TokenParser, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokens: tokens, logger: logger}
}

// Handle parses the Authorization header, validates the token and passes the
// request on with the session ID in context.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if header == "" || tokenString == header {
			m.unauthorized(w, "missing authorization token")
			return
		}

		sessionID, err := m.tokens.ParseSessionToken(tokenString)
		if err != nil {
			m.logger.Debug("rejected token", "error", err)
			m.unauthorized(w, "invalid authorization token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
	})
}

func (m *Authenticate) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		m.logger.Error("failed to write response", "error", err)
	}
}
