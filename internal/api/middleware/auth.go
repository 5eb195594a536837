package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rohits-web03/chatvault/internal/encryption"
	"github.com/rohits-web03/chatvault/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

// UserID returns the authenticated user's ID set by AuthMiddleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

func unauthorized(w http.ResponseWriter) {
	utils.Error(w, http.StatusUnauthorized, "Unauthorized")
}

// AuthMiddleware validates the token cookie. Besides the user ID it stores
// the session in the context; its access token feeds the legacy key recipe.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie("token")
		if err != nil {
			unauthorized(w)
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(config.Envs.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(w)
			return
		}

		userID, ok := claims["userId"].(string)
		if !ok || userID == "" {
			unauthorized(w)
			return
		}

		session := encryption.Session{UserID: userID, AccessToken: cookie.Value}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			session.ExpiresAt = exp.Time
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = encryption.WithSession(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
