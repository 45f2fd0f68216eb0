// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

const identityKey contextKey = "identity"

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*policy.Identity, error)
}

// Authenticator resolves the bearer token into a policy.Identity stored on
// the request context. A missing token answers 401, an invalid or expired
// one answers 403.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.JSONError(w, core.UnauthorizedError("access token required"))
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				core.JSONError(w, tokenError(err))
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.String("enduser.id", identity.ID),
				attribute.String("enduser.role", string(identity.Role)),
			)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}

// RequirePermission gates a route on a target-less policy action.
func RequirePermission(action policy.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			switch {
			case !ok:
				core.JSONError(w, core.UnauthorizedError(""))
			case !policy.CanPerform(identity, action, nil):
				core.JSONError(w, core.ForbiddenError(""))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequirePermission(policy.ActionManageUsers)(next)
}

// ExtractToken returns the credential of a "Bearer" Authorization header,
// or "" for any other scheme.
func ExtractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func tokenError(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	default:
		return core.TokenInvalidError()
	}
}

func WithIdentity(ctx context.Context, identity policy.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func GetIdentity(ctx context.Context) (policy.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(policy.Identity)
	return identity, ok
}

func GetUserID(ctx context.Context) string {
	identity, _ := GetIdentity(ctx)
	return identity.ID
}
