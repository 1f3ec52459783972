package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/accounts/internal/domain"
	"github.com/sumire/accounts/internal/service"
)

const (
	contextKeyAccount = "account"
)

// SessionResolver resolves a session id to its account.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*domain.Account, error)
}

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the status before logging it
				c.Error(err)
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if acct := GetAccount(c); acct != nil {
				attrs = append(attrs, "account_id", acct.ID)
			}
			slog.InfoContext(c.Request().Context(), "http request", attrs...)

			return nil
		}
	}
}

// SessionAuth loads the account for a valid session cookie into the echo
// context. Missing or invalid cookies leave the request anonymous; store
// failures abort it.
func SessionAuth(sessions SessionResolver, signer *service.SessionSigner) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			sessionID, err := signer.Parse(cookie.Value)
			if err != nil {
				slog.DebugContext(c.Request().Context(), "ignoring invalid session cookie", "error", err)
				return next(c)
			}

			acct, err := sessions.ResolveSession(c.Request().Context(), sessionID)
			if err != nil {
				return err
			}
			if acct != nil {
				c.Set(contextKeyAccount, acct)
			}
			return next(c)
		}
	}
}

// RequireAccount rejects requests without an authenticated account.
func RequireAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetAccount(c) == nil {
				return domain.ErrUnauthorized
			}
			return next(c)
		}
	}
}

// GetAccount extracts the authenticated account from echo context.
func GetAccount(c echo.Context) *domain.Account {
	acct, _ := c.Get(contextKeyAccount).(*domain.Account)
	return acct
}
