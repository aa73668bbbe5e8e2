// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/solobox/internal/infra/config"
)

const (
	// AdminTokenHeader is the header name for the control token.
	AdminTokenHeader = "X-Admin-Token"
)

var errInvalidToken = errors.New("missing or invalid " + AdminTokenHeader)

// NewAdminAuthInterceptor creates an interceptor that validates the control
// token on every call. It lets everything through when no token is configured.
func NewAdminAuthInterceptor(cfg *config.Config) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !ValidToken(cfg, req.Header().Get(AdminTokenHeader)) {
				return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
			}
			return next(ctx, req)
		}
	}
}

// ValidToken reports whether token matches the configured control token.
func ValidToken(cfg *config.Config, token string) bool {
	if cfg.Admin.Token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Admin.Token)) == 1
}
