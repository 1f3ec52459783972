package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sumire/accounts/internal/domain"
)

const githubUserURL = "https://api.github.com/user"

// GitHubConfig holds the configuration for the GitHub provider.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string

	AuthorizeURL string
	TokenURL     string
	UserURL      string

	HTTPClient *http.Client
	Retry      RetryPolicy
}

// GitHub implements IdentityProvider for GitHub OAuth apps.
type GitHub struct {
	client *client
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// NewGitHub creates a GitHub provider.
func NewGitHub(cfg GitHubConfig) *GitHub {
	c := newClient(oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"read:user"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   orDefault(cfg.AuthorizeURL, github.Endpoint.AuthURL),
			TokenURL:  orDefault(cfg.TokenURL, github.Endpoint.TokenURL),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, orDefault(cfg.UserURL, githubUserURL), cfg.HTTPClient, cfg.Retry)
	c.headers = map[string]string{"Accept": "application/vnd.github+json"}

	return &GitHub{client: c}
}

func (g *GitHub) Name() domain.AuthProvider {
	return domain.AuthProviderGitHub
}

// AuthURL returns the GitHub authorize URL redirecting back to publicBase's callback.
func (g *GitHub) AuthURL(publicBase string) string {
	return g.client.authURL(publicBase)
}

// Exchange exchanges the authorization code and reads the authenticated user.
func (g *GitHub) Exchange(ctx context.Context, code, redirectURI string) (domain.ProviderIdentity, error) {
	token, err := g.client.exchangeToken(ctx, code, redirectURI)
	if err != nil {
		return domain.ProviderIdentity{}, fmt.Errorf("github token exchange: %w", err)
	}

	usr, err := fetchProfile[githubUser](ctx, g.client, token)
	if err != nil {
		return domain.ProviderIdentity{}, fmt.Errorf("fetch github user: %w", err)
	}
	if usr.ID == 0 || usr.Login == "" {
		return domain.ProviderIdentity{}, fmt.Errorf("fetch github user: %w: missing id or login", domain.ErrInvalidProfileResponse)
	}

	return domain.ProviderIdentity{
		Provider:          domain.AuthProviderGitHub,
		ProviderAccountID: strconv.FormatInt(usr.ID, 10),
		ProviderUsername:  usr.Login,
	}, nil
}
