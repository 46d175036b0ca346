// Package auth resolves the calling identity for a request.
//
// Signatures are not verified here. An upstream gateway is trusted to have authenticated
// the caller and to forward either an X-Caller-Identity header or its bearer token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/platform/httputil"
	"aegis/pkg/requestcontext"
)

const HeaderCallerIdentity = "X-Caller-Identity"

const bearerPrefix = "Bearer "

// CallerIdentity stores the caller in the request context. Requests with no identity pass
// through anonymous; a malformed identity is rejected with 400.
func CallerIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, source := r.Header.Get(HeaderCallerIdentity), "header"
			if raw == "" {
				if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
					sub, err := subject(parser, token)
					if err != nil {
						logger.WarnContext(ctx, "unreadable bearer token",
							"request_id", requestcontext.RequestID(ctx),
							"error", err,
						)
						httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "bearer token is not a readable JWT"))
						return
					}
					raw, source = sub, "bearer"
				}
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := id.ParseIdentity(raw)
			if err != nil {
				logger.WarnContext(ctx, "invalid caller identity",
					"request_id", requestcontext.RequestID(ctx),
					"source", source,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

func subject(parser *jwt.Parser, token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), &claims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RequireCaller rejects anonymous requests with 403 unauthorized.
func RequireCaller(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Caller(ctx).IsZero() {
				logger.WarnContext(ctx, "anonymous write rejected",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
