package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/sumire/accounts/internal/domain"
)

const maxProfileBytes = 1 << 20

// client holds the parts of the authorization-code flow shared by every provider.
type client struct {
	oauth       oauth2.Config
	profileURL  string
	http        *http.Client
	retry       RetryPolicy
	tokenParams []oauth2.AuthCodeOption
	headers     map[string]string
}

func newClient(oauth oauth2.Config, profileURL string, httpClient *http.Client, policy RetryPolicy) *client {
	policy = policy.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: policy.Timeout}
	}
	return &client{
		oauth:      oauth,
		profileURL: profileURL,
		http:       httpClient,
		retry:      policy,
	}
}

func (c *client) authURL(publicBase string) string {
	cfg := c.oauth
	cfg.RedirectURL = domain.CallbackURL(publicBase)
	return cfg.AuthCodeURL("")
}

// exchangeToken trades code for an access token.
func (c *client) exchangeToken(ctx context.Context, code, redirectURI string) (string, error) {
	cfg := c.oauth
	cfg.RedirectURL = redirectURI

	return retry(ctx, c.retry, "token exchange", func(ctx context.Context) (string, error) {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

		tok, err := cfg.Exchange(ctx, code, c.tokenParams...)
		if err != nil {
			return "", classifyTokenError(err)
		}
		if tok.AccessToken == "" {
			return "", fmt.Errorf("%w: empty access token", domain.ErrInvalidTokenResponse)
		}
		return tok.AccessToken, nil
	})
}

// classifyTokenError separates retryable transport failures from malformed
// or rejected token responses.
func classifyTokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil && retryableStatus(rerr.Response.StatusCode) {
			return fmt.Errorf("token endpoint returned status %d", rerr.Response.StatusCode)
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidTokenResponse, err)
	}

	if isTransportError(err) {
		return err
	}

	return fmt.Errorf("%w: %v", domain.ErrInvalidTokenResponse, err)
}

func isTransportError(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}

// fetchProfile reads the current user's profile with the access token as a Bearer credential.
func fetchProfile[T any](ctx context.Context, c *client, accessToken string) (T, error) {
	return retry(ctx, c.retry, "fetch profile", func(ctx context.Context) (T, error) {
		var profile T

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
		if err != nil {
			return profile, fmt.Errorf("%w: create request: %v", domain.ErrInvalidProfileResponse, err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return profile, fmt.Errorf("fetch profile: %w", err)
		}
		defer resp.Body.Close()

		if retryableStatus(resp.StatusCode) {
			return profile, fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return profile, fmt.Errorf("%w: status %d", domain.ErrInvalidProfileResponse, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
		if err != nil {
			return profile, fmt.Errorf("read profile: %w", err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return profile, fmt.Errorf("%w: empty body", domain.ErrInvalidProfileResponse)
		}

		if err := json.Unmarshal(body, &profile); err != nil {
			return profile, fmt.Errorf("%w: decode: %v", domain.ErrInvalidProfileResponse, err)
		}
		return profile, nil
	})
}
