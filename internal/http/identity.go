package http

import (
	"context"
	"net/http"
	"strings"

	applog "finsight/internal/log"
)

// HeaderUserID carries the user id set by the upstream authenticator.
const HeaderUserID = "X-User-ID"

type userKey struct{}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// withUser rejects requests without a user id and scopes the request logger
// to the user.
func (s *Server) withUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeInput(r.Header.Get(HeaderUserID))
		if id == "" || len(id) > 128 || strings.ContainsAny(id, " \t") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + HeaderUserID})
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, id)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, id))
		next(w, r.WithContext(ctx))
	})
}
