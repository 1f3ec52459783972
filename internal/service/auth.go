package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/sumire/accounts/internal/domain"
)

// AccountStore defines the persistence interface consumed by AuthService.
type AccountStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	ResolveConfigValue(ctx context.Context, key string) (string, error)
	FindAccountByProviderIdentity(ctx context.Context, providerAccountID string, provider domain.AuthProvider) (*domain.Account, error)
	CreateAccount(ctx context.Context, username, providerAccountID string, provider domain.AuthProvider) (string, error)
	CreateSession(ctx context.Context, accountID string) (string, error)
	FindAccountBySession(ctx context.Context, sessionID string) (*domain.Account, error)
	InitializeSchema(ctx context.Context, publicURL string) error
}

// IdentityProvider is the OAuth provider capability consumed by AuthService.
type IdentityProvider interface {
	Name() domain.AuthProvider
	AuthURL(publicBase string) string
	Exchange(ctx context.Context, code, redirectURI string) (domain.ProviderIdentity, error)
}

// AuthConfig holds orchestrator configuration.
type AuthConfig struct {
	// PublicURL is used when the store holds no public base URL.
	PublicURL string
}

// AuthService drives the login flow: login link, callback, session resolution.
type AuthService struct {
	store     AccountStore
	provider  IdentityProvider
	publicURL string
}

// NewAuthService creates a new AuthService.
func NewAuthService(store AccountStore, provider IdentityProvider, cfg AuthConfig) *AuthService {
	return &AuthService{
		store:     store,
		provider:  provider,
		publicURL: cfg.PublicURL,
	}
}

// Login is the outcome of a successful callback.
type Login struct {
	SessionID string
	Account   domain.Account
	Created   bool
}

// GenerateLoginURL returns the provider authorization URL seeded with the public base URL.
func (s *AuthService) GenerateLoginURL(ctx context.Context) (string, error) {
	base, err := s.publicBase(ctx)
	if err != nil {
		return "", err
	}
	return s.provider.AuthURL(base), nil
}

// HandleCallback exchanges the authorization code, resolves or creates the
// account for the returned identity and issues a new session.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (*Login, error) {
	if code == "" {
		return nil, domain.ErrMissingAuthorizationCode
	}

	base, err := s.publicBase(ctx)
	if err != nil {
		return nil, err
	}

	identity, err := s.provider.Exchange(ctx, code, domain.CallbackURL(base))
	if err != nil {
		slog.WarnContext(ctx, "identity exchange failed",
			"provider", s.provider.Name(),
			"error", err,
		)
		return nil, fmt.Errorf("exchange code with %s: %w", s.provider.Name(), err)
	}
	if identity.Provider == "" {
		identity.Provider = s.provider.Name()
	}

	var (
		acct    domain.Account
		created bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindAccountByProviderIdentity(ctx, identity.ProviderAccountID, identity.Provider)
		if err != nil {
			return err
		}
		if existing != nil {
			acct = *existing
			return nil
		}

		id, err := s.store.CreateAccount(ctx, identity.ProviderUsername, identity.ProviderAccountID, identity.Provider)
		if err != nil {
			return err
		}
		acct = domain.Account{ID: id, Username: identity.ProviderUsername}
		created = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	if created {
		slog.InfoContext(ctx, "account created",
			"provider", identity.Provider,
			"account_id", acct.ID,
		)
	}

	sessionID, err := s.store.CreateSession(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "session issued",
		"provider", identity.Provider,
		"account_id", acct.ID,
	)

	return &Login{SessionID: sessionID, Account: acct, Created: created}, nil
}

// ResolveSession returns the account owning sessionID. An empty or unknown
// session yields nil without error; store failures are returned.
func (s *AuthService) ResolveSession(ctx context.Context, sessionID string) (*domain.Account, error) {
	if sessionID == "" {
		return nil, nil
	}

	acct, err := s.store.FindAccountBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return acct, nil
}

// InitializeSchema creates the store schema and records publicURL, which must
// be an absolute http(s) URL.
func (s *AuthService) InitializeSchema(ctx context.Context, publicURL string) error {
	if err := validatePublicURL(publicURL); err != nil {
		return err
	}

	if err := s.store.InitializeSchema(ctx, publicURL); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	slog.InfoContext(ctx, "schema initialized", "public_url", publicURL)
	return nil
}

func (s *AuthService) publicBase(ctx context.Context) (string, error) {
	base, err := s.store.ResolveConfigValue(ctx, domain.ConfigKeyPublicURL)
	if err != nil {
		// the store may not be initialized yet; fall back to static config
		if s.publicURL == "" {
			return "", fmt.Errorf("resolve public url: %w", err)
		}
		slog.WarnContext(ctx, "public url lookup failed, using configured value", "error", err)
		return s.publicURL, nil
	}
	if base != "" {
		return base, nil
	}
	if s.publicURL != "" {
		return s.publicURL, nil
	}
	return "", domain.ErrNotInitialized
}

func validatePublicURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &domain.ValidationError{
			Field:   "url",
			Message: "must be an absolute http or https URL",
		}
	}
	return nil
}
