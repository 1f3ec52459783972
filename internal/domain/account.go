package domain

import "strings"

// AuthProvider names an external OAuth identity provider.
type AuthProvider string

const (
	AuthProviderDiscord AuthProvider = "discord"
	AuthProviderGitHub  AuthProvider = "github"
)

// ConfigKeyPublicURL is the configuration key holding the externally reachable base URL.
const ConfigKeyPublicURL = "url"

// Account represents an internal user identity, independent of any provider.
type Account struct {
	ID       string `json:"id" db:"account_id"`
	Username string `json:"username" db:"username"`
}

// ProviderIdentity is the profile returned by a provider after a successful code exchange.
type ProviderIdentity struct {
	Provider          AuthProvider `json:"provider"`
	ProviderAccountID string       `json:"provider_account_id"`
	ProviderUsername  string       `json:"provider_username"`
}

// Session binds a bearer credential to an account.
type Session struct {
	ID        string `json:"id" db:"session_id"`
	AccountID string `json:"account_id" db:"account_id"`
}

// CallbackURL returns the OAuth redirect URI for the given public base URL.
func CallbackURL(publicBase string) string {
	return strings.TrimRight(publicBase, "/") + "/callback"
}
