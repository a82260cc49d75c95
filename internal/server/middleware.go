package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/playperu/vrquest/internal/quest"
)

type ctxKey int

const ctxKeyActor ctxKey = iota

// actorHolder lets the request logger, which runs outside the auth
// middleware, see who the request was for.
type actorHolder struct{ actor quest.Actor }

func authMiddleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			actor, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			if h, ok := r.Context().Value(ctxKeyActor).(*actorHolder); ok {
				h.actor = actor
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyActor, &actorHolder{actor: actor})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withActorSlot reserves the context slot authMiddleware fills in.
func withActorSlot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxKeyActor, &actorHolder{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) (quest.Actor, bool) {
	h, ok := r.Context().Value(ctxKeyActor).(*actorHolder)
	if !ok || !h.actor.Authenticated() {
		return quest.Actor{}, false
	}
	return h.actor, true
}

func requestActor(r *http.Request) quest.Actor {
	a, _ := actorFrom(r)
	return a
}
