package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aquawatch/notification-service/pkg/apikey"
	"github.com/aquawatch/notification-service/pkg/jsonutil"
)

type contextKey string

const subjectKey contextKey = "subject"

// Authenticator accepts either an X-API-Key matching a configured hash or an
// HS256 bearer token signed with the shared secret.
type Authenticator struct {
	secret []byte
	keys   *apikey.Verifier
}

func NewAuthenticator(jwtSecret string, keys *apikey.Verifier) *Authenticator {
	return &Authenticator{secret: []byte(jwtSecret), keys: keys}
}

// Subject returns the authenticated caller stored by Middleware.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" && a.keys != nil {
			if !a.keys.Verify(key) {
				jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, "api-key")))
			return
		}

		token, err := bearerToken(r)
		if err != nil || len(a.secret) == 0 {
			jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		subject, err := a.validate(token)
		if err != nil {
			jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, subject)))
	})
}

func (a *Authenticator) validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// bearerToken reads the Authorization header, falling back to ?token= for websocket clients.
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization format")
		}
		return parts[1], nil
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, nil
	}
	return "", errors.New("authorization header required")
}
