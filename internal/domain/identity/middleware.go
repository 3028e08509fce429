package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clim-up/wikaya/internal/platform/auth"
)

// Provision resolves the authenticated subject to its account and stores the
// account id on the request context. It runs after the token middleware.
func Provision(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if auth.AuthSkipper(c) {
				return next(c)
			}
			ctx := c.Request().Context()
			subject := auth.SubjectFromContext(ctx)
			if subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			acct, err := svc.Resolve(ctx, subject, auth.EmailFromContext(ctx))
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("failed to resolve account")
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
			}
			c.SetRequest(c.Request().WithContext(auth.WithAccountID(ctx, acct.ID)))
			return next(c)
		}
	}
}
