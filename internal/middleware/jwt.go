package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"  // numeric subjects are formatted back to strings
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// OwnerKey is the context key under which JWTAuth stores the owner id.
const OwnerKey = "owner_id"

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the token's subject as the owner id of the request.  Every chart,
// furniture item, person and assignment the request touches is scoped to
// that owner.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header is "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC signatures are accepted; anything else is rejected
            // before the secret is handed out.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            }, jwt.WithExpirationRequired())
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            owner := subject(claims["sub"])
            if owner == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token has no subject"})
            }

            c.Set(OwnerKey, owner)
            return next(c)
        }
    }
}

// subject normalizes the sub claim.  Older tokens carried numeric user ids
// which the JSON decoder hands back as float64.
func subject(v interface{}) string {
    switch s := v.(type) {
    case string:
        return strings.TrimSpace(s)
    case float64:
        if s > 0 && s == float64(uint64(s)) {
            return strconv.FormatUint(uint64(s), 10)
        }
    }
    return ""
}
