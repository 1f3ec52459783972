package provider

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/sumire/accounts/internal/domain"
)

const (
	discordAuthorizeURL = "https://discord.com/api/oauth2/authorize"
	discordTokenURL     = "https://discord.com/api/oauth2/token"
	discordUserURL      = "https://discord.com/api/users/@me"

	discordScopeIdentify = "identify"
)

// DiscordConfig holds the configuration for the Discord provider.
// Endpoint URLs default to Discord's public API when empty.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string

	AuthorizeURL string
	TokenURL     string
	UserURL      string

	HTTPClient *http.Client
	Retry      RetryPolicy
}

// Discord implements IdentityProvider for Discord OAuth2.
type Discord struct {
	client *client
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// NewDiscord creates a Discord provider.
func NewDiscord(cfg DiscordConfig) *Discord {
	c := newClient(oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{discordScopeIdentify},
		Endpoint: oauth2.Endpoint{
			AuthURL:   orDefault(cfg.AuthorizeURL, discordAuthorizeURL),
			TokenURL:  orDefault(cfg.TokenURL, discordTokenURL),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, orDefault(cfg.UserURL, discordUserURL), cfg.HTTPClient, cfg.Retry)

	// Discord expects the scope repeated in the token request body.
	c.tokenParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("scope", discordScopeIdentify)}

	return &Discord{client: c}
}

func (d *Discord) Name() domain.AuthProvider {
	return domain.AuthProviderDiscord
}

// AuthURL returns the Discord authorize URL redirecting back to publicBase's callback.
func (d *Discord) AuthURL(publicBase string) string {
	return d.client.authURL(publicBase)
}

// Exchange exchanges the authorization code and reads the @me profile.
func (d *Discord) Exchange(ctx context.Context, code, redirectURI string) (domain.ProviderIdentity, error) {
	token, err := d.client.exchangeToken(ctx, code, redirectURI)
	if err != nil {
		return domain.ProviderIdentity{}, fmt.Errorf("discord token exchange: %w", err)
	}

	usr, err := fetchProfile[discordUser](ctx, d.client, token)
	if err != nil {
		return domain.ProviderIdentity{}, fmt.Errorf("fetch discord user: %w", err)
	}
	if usr.ID == "" || usr.Username == "" {
		return domain.ProviderIdentity{}, fmt.Errorf("fetch discord user: %w: missing id or username", domain.ErrInvalidProfileResponse)
	}

	return domain.ProviderIdentity{
		Provider:          domain.AuthProviderDiscord,
		ProviderAccountID: usr.ID,
		ProviderUsername:  usr.Username,
	}, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
