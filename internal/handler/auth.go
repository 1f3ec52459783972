package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/accounts/internal/domain"
	"github.com/sumire/accounts/internal/service"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "session-id"

	initializationSecretHeader = "X-Initialization-Secret"
)

// AuthFlow is the login orchestration consumed by the HTTP layer.
type AuthFlow interface {
	GenerateLoginURL(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code string) (*service.Login, error)
	ResolveSession(ctx context.Context, sessionID string) (*domain.Account, error)
	InitializeSchema(ctx context.Context, publicURL string) error
}

// AuthHandlerConfig holds HTTP-level auth settings.
type AuthHandlerConfig struct {
	InitializationSecret string
	SecureCookie         bool
}

// AuthHandler handles login, callback and initialization endpoints.
type AuthHandler struct {
	auth         AuthFlow
	signer       *service.SessionSigner
	initSecret   []byte
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth AuthFlow, signer *service.SessionSigner, cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		signer:       signer,
		initSecret:   []byte(cfg.InitializationSecret),
		secureCookie: cfg.SecureCookie,
	}
}

type indexResponse struct {
	Account  *domain.Account `json:"account,omitempty"`
	LoginURL string          `json:"login_url,omitempty"`
}

type callbackResponse struct {
	Account domain.Account `json:"account"`
	Created bool           `json:"created"`
}

type initializeRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Index returns the signed-in account, or a login link for anonymous callers.
func (h *AuthHandler) Index(c echo.Context) error {
	if acct := GetAccount(c); acct != nil {
		return JSON(c, http.StatusOK, indexResponse{Account: acct})
	}

	loginURL, err := h.auth.GenerateLoginURL(c.Request().Context())
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, indexResponse{LoginURL: loginURL})
}

// Login redirects the user to the identity provider's consent page.
func (h *AuthHandler) Login(c echo.Context) error {
	loginURL, err := h.auth.GenerateLoginURL(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, loginURL)
}

// Callback completes the OAuth flow and sets the session cookie.
func (h *AuthHandler) Callback(c echo.Context) error {
	login, err := h.auth.HandleCallback(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		return err
	}

	token, err := h.signer.Sign(login.SessionID)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	return JSON(c, http.StatusOK, callbackResponse{
		Account: login.Account,
		Created: login.Created,
	})
}

// Initialize creates the store schema. It requires the operator secret header.
func (h *AuthHandler) Initialize(c echo.Context) error {
	secret := []byte(c.Request().Header.Get(initializationSecretHeader))
	if len(h.initSecret) == 0 || subtle.ConstantTimeCompare(secret, h.initSecret) != 1 {
		return domain.ErrForbidden
	}

	var req initializeRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.auth.InitializeSchema(c.Request().Context(), req.URL); err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]string{"url": req.URL})
}

// Me returns the currently authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	acct := GetAccount(c)
	if acct == nil {
		return domain.ErrUnauthorized
	}
	return JSON(c, http.StatusOK, acct)
}
