package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates RS256 bearer tokens against the PEM public key at path
func JWTMiddleware(publicKeyPath, issuer string) (echo.MiddlewareFunc, error) {
	keyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWT public key: %w", err)
	}
	signingKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT public key: %w", err)
	}

	cfg := echojwt.Config{
		SigningKey:    signingKey,
		SigningMethod: "RS256",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwt.MapClaims)
		},
	}
	if issuer != "" {
		cfg.ParseTokenFunc = func(c echo.Context, auth string) (any, error) {
			token, err := jwt.ParseWithClaims(auth, new(jwt.MapClaims), func(*jwt.Token) (any, error) {
				return signingKey, nil
			}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer(issuer))
			if err != nil {
				return nil, err
			}
			return token, nil
		}
	}
	return echojwt.WithConfig(cfg), nil
}

// RequireRole rejects tokens whose "role" claim differs from role. Requests without a token
// pass through; JWTMiddleware decides whether a token is mandatory.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return next(c)
			}
			claims, ok := token.Claims.(*jwt.MapClaims)
			if !ok || (*claims)["role"] != role {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
