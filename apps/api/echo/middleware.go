package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/confradar/core"
)

// identityMiddleware forwards the caller's bearer token to the request context, so upstream calls reuse it,
// and tags the context with the token subject for session ownership and logs.
// Anonymous requests and malformed tokens go through untagged.
func identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		token := bearerToken(req)
		if token == "" {
			return next(ctx)
		}

		reqCtx := core.WithAuthToken(req.Context(), token)
		if claims, err := parseClaims(token); err == nil {
			ctx.Set(contextClaimsKey, claims)
			reqCtx = core.WithPerson(reqCtx, claims.person())
		}
		ctx.SetRequest(req.WithContext(reqCtx))
		return next(ctx)
	}
}

