package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
)

type contextKey string

const actorContextKey contextKey = "actor"

var (
	ErrMissingToken = errors.New("authorization token required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Auth validates bearer tokens and resolves them to a fresh user row, so a
// revoked account stops working without waiting for token expiry.
type Auth struct {
	secret []byte
	users  repositories.UserRepository
	logger *slog.Logger
}

func NewAuth(secret string, users repositories.UserRepository, logger *slog.Logger) *Auth {
	return &Auth{secret: []byte(secret), users: users, logger: logger}
}

// ActorFromContext returns the authenticated user, or nil for anonymous
// requests that passed through OptionalAuthenticate.
func ActorFromContext(ctx context.Context) *models.User {
	actor, _ := ctx.Value(actorContextKey).(*models.User)
	return actor
}

// Authenticate requires a valid token and stores the resolved user in the
// request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.resolveActor(r)
		if err != nil {
			a.unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

// OptionalAuthenticate resolves a token when one is present but lets
// anonymous requests through with no actor in the context.
func (a *Auth) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := a.resolveActor(r)
		if err != nil {
			a.unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

// RequireAdmin must run after Authenticate.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor == nil || !actor.Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":"admin access required"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) resolveActor(r *http.Request) (*models.User, error) {
	raw := tokenString(r)
	if raw == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	actor, err := a.users.GetByID(r.Context(), int(rawID))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		a.logger.Error("failed to load user for token", slog.Any("error", err))
		return nil, err
	}
	return actor, nil
}

// tokenString prefers the Authorization header; the token query parameter is
// accepted for websocket clients that cannot set headers.
func tokenString(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (a *Auth) unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, err.Error())
}
