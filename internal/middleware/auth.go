// Package middleware содержит HTTP middleware портала Orbit.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

type contextKey string

const actorKey contextKey = "actor"

const authCookieName = "auth_token"

// ActorResolver сопоставляет подтверждённой личности пользователя его профиль.
type ActorResolver interface {
	ResolveActor(ctx context.Context, id model.Identity) (model.Actor, error)
}

// identityClaims содержит утверждения токена провайдера идентификации.
type identityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// AuthMiddleware проверяет токен провайдера идентификации и помещает Actor в контекст запроса.
type AuthMiddleware struct {
	secretKey []byte
	resolver  ActorResolver
	logger    *zap.Logger
}

// NewAuthMiddleware создаёт AuthMiddleware с общим секретом провайдера идентификации.
func NewAuthMiddleware(secret string, resolver ActorResolver, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		secretKey: []byte(secret),
		resolver:  resolver,
		logger:    logger,
	}
}

// Middleware принимает токен из заголовка Authorization: Bearer или из cookie auth_token.
// Неподтверждённый токен даёт 401, отсутствие профиля даёт 403.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, model.ErrUnauthenticated)
			return
		}

		id, err := a.ParseToken(token)
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			writeAuthError(w, http.StatusUnauthorized, model.ErrUnauthenticated)
			return
		}

		actor, err := a.resolver.ResolveActor(r.Context(), id)
		if err != nil {
			if errors.Is(err, model.ErrForbidden) {
				writeAuthError(w, http.StatusForbidden, err)
				return
			}
			a.logger.Error("resolve actor failed", zap.String("user_id", id.UserID), zap.Error(err))
			writeAuthError(w, http.StatusInternalServerError, errors.New(http.StatusText(http.StatusInternalServerError)))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(authCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ParseToken проверяет подпись и срок действия токена и возвращает личность пользователя.
func (a *AuthMiddleware) ParseToken(token string) (model.Identity, error) {
	var claims identityClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Identity{}, err
	}
	if claims.Subject == "" {
		return model.Identity{}, errors.New("token has no subject")
	}
	return model.Identity{UserID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}, nil
}

// IssueToken подписывает токен для личности id со сроком действия ttl.
// Используется для локального запуска и в тестах вместо внешнего провайдера.
func (a *AuthMiddleware) IssueToken(id model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
		Name:  id.DisplayName,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
}

// WithActor помещает пользователя в контекст.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActorFromContext извлекает пользователя из контекста запроса.
func GetActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
