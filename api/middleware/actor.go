package middleware

import (
	"context"
	"net/http"

	"github.com/MalayathiGeetha/Motor-Part/api/validators"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
)

// ActorHeader carries the operator identity set by the upstream auth gateway.
const ActorHeader = "X-Actor"

// maxActorLength is counted in runes.
const maxActorLength = 100

type contextKey string

const ctxActor contextKey = "actor"

// Actor resolves the acting identity for the request. A missing header is
// treated as SYSTEM.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// audit_log.actor must hold valid UTF-8; invalid bytes become U+FFFD
			actor := audit.ActorOrSystem(validators.SanitizeString(r.Header.Get(ActorHeader), maxActorLength))

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor injects the actor into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the request actor, or SYSTEM when none was set.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return audit.SystemActor
	}
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return audit.SystemActor
}
