package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole restricts a route group to the given roles (STUDENT, STAFF,
// ADMIN).  JWTAuth must run earlier in the chain; it stores the token's
// "role" claim in the context under "role".  A missing or unlisted role is
// answered with 403 rather than 401 because the token itself was valid.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
