package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

// jtiHintHeader is a deprecated client hint. It is consulted only when the
// verified token carries no jti of its own.
const jtiHintHeader = "X-Token-Jti"

// Authenticate verifies bearer tokens, rejects blacklisted jtis and binds
// the user identity to the request context. Requests without credentials
// pass through unauthenticated; protected handlers decide whether an
// identity is required.
type Authenticate struct {
	tokenManager   model.TokenManager
	revocations    model.RevocationStore
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(
	tokenManager model.TokenManager,
	revocations model.RevocationStore,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Authenticate {
	return &Authenticate{
		tokenManager:   tokenManager,
		revocations:    revocations,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Handle wraps next with bearer token authentication.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.tokenManager.Verify(tokenString)
		if err != nil {
			m.logger.Info("Authenticate middleware: rejected access token",
				"path", r.URL.Path,
				"error", err.Error())
			writeUnauthorized(w, "Invalid access token")
			return
		}

		jti := claims.JTI
		if jti == "" {
			jti = r.Header.Get(jtiHintHeader)
		}

		if jti != "" && m.revocations.Contains(r.Context(), jti) {
			m.logger.Info("Authenticate middleware: blacklisted token presented",
				"path", r.URL.Path,
				"jti", jti)
			writeUnauthorized(w, "Token has been revoked")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeUnauthorized(w, "Invalid access token")
			return
		}

		ctx := r.Context()
		if _, bound := m.contextManager.GetUserIDFromContext(ctx); !bound {
			ctx = m.contextManager.SetUserIDToContext(ctx, userID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
