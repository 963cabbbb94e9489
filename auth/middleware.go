package auth

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5/request"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/logger"
	"github.com/ieltsdesk/backend/srvcerror"
)

type ClaimsKeyType string

var CtxJwtClaimsKey ClaimsKeyType = "jwtClaims"

// Authorizer checks bearer tokens.
type Authorizer interface {
	Authorize(token string) (*JwtClaims, error)
}

// RequireTeacher rejects requests without a valid teacher token and adds the
// claims to the request context.
func RequireTeacher(authz Authorizer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				httpjson.HandleError(log, w, srvcerror.ErrUnauthorized().SetDebug(err))
				return
			}

			claims, err := authz.Authorize(token)
			if err != nil {
				httpjson.HandleError(log, w, err)
				return
			}

			ctx := context.WithValue(r.Context(), CtxJwtClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// ClaimsFromContext returns the claims put there by RequireTeacher.
func ClaimsFromContext(ctx context.Context) *JwtClaims {
	claims, _ := ctx.Value(CtxJwtClaimsKey).(*JwtClaims)
	return claims
}
