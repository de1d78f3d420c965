package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/vendorledger-backend/api/responses"
	pkgAuth "github.com/angelmondragon/vendorledger-backend/pkg/auth"
	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Role, claims.VendorID)
			if logg != nil {
				var vendorID string
				if claims.VendorID != nil {
					vendorID = claims.VendorID.String()
				}
				ctx = logg.WithIdentity(ctx, claims.UserID.String(), claims.Role.String(), vendorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the credential of a "Bearer <token>" header, matching
// the scheme case-insensitively. Other schemes yield "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
