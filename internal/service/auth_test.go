package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/accounts/internal/domain"
)

func TestHandleCallback_NewIdentity(t *testing.T) {
	store := &mockStore{}
	var createdWith []string
	store.createAcctFn = func(_ context.Context, username, providerAccountID string, provider domain.AuthProvider) (string, error) {
		createdWith = []string{username, providerAccountID, string(provider)}
		return "acct-new", nil
	}
	idp := &mockProvider{}
	svc := NewAuthService(store, idp, AuthConfig{})

	login, err := svc.HandleCallback(context.Background(), "the-code")
	require.NoError(t, err)

	assert.True(t, login.Created)
	assert.Equal(t, "sess-1", login.SessionID)
	assert.Equal(t, domain.Account{ID: "acct-new", Username: "sumire"}, login.Account)
	assert.Equal(t, []string{"sumire", "42", "discord"}, createdWith)
	assert.Equal(t, []string{"https://x/callback"}, idp.redirectURIs)
	assert.Equal(t, 1, store.count("CreateAccount"))
	assert.Equal(t, 1, store.count("CreateSession"))
}

func TestHandleCallback_KnownIdentity(t *testing.T) {
	existing := &domain.Account{ID: "acct-old", Username: "sumire"}
	store := &mockStore{
		findByIDFn: func(_ context.Context, providerAccountID string, provider domain.AuthProvider) (*domain.Account, error) {
			assert.Equal(t, "42", providerAccountID)
			assert.Equal(t, domain.AuthProviderDiscord, provider)
			return existing, nil
		},
		createSessFn: func(_ context.Context, accountID string) (string, error) {
			assert.Equal(t, "acct-old", accountID)
			return "sess-2", nil
		},
	}
	svc := NewAuthService(store, &mockProvider{}, AuthConfig{})

	login, err := svc.HandleCallback(context.Background(), "the-code")
	require.NoError(t, err)

	assert.False(t, login.Created)
	assert.Equal(t, *existing, login.Account)
	assert.Equal(t, "sess-2", login.SessionID)
	assert.Equal(t, 0, store.count("CreateAccount"))
	assert.Equal(t, 1, store.count("CreateSession"))
}

func TestHandleCallback_LookupRunsInTransaction(t *testing.T) {
	type txMarker struct{}

	store := &mockStore{}
	store.withinTxFn = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(context.WithValue(ctx, txMarker{}, true))
	}
	store.findByIDFn = func(ctx context.Context, _ string, _ domain.AuthProvider) (*domain.Account, error) {
		assert.Equal(t, true, ctx.Value(txMarker{}))
		return nil, nil
	}
	store.createAcctFn = func(ctx context.Context, _, _ string, _ domain.AuthProvider) (string, error) {
		assert.Equal(t, true, ctx.Value(txMarker{}))
		return "acct-tx", nil
	}

	svc := NewAuthService(store, &mockProvider{}, AuthConfig{})
	_, err := svc.HandleCallback(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("WithinTx"))
}

func TestHandleCallback_EmptyCode(t *testing.T) {
	store := &mockStore{}
	idp := &mockProvider{}
	svc := NewAuthService(store, idp, AuthConfig{})

	login, err := svc.HandleCallback(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMissingAuthorizationCode)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, login)

	assert.Zero(t, store.total())
	assert.Zero(t, idp.exchangeCalls)
}

func TestHandleCallback_ProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "invalid token", err: domain.ErrInvalidTokenResponse},
		{name: "invalid profile", err: domain.ErrInvalidProfileResponse},
		{name: "unavailable", err: fmt.Errorf("token: %w", domain.ErrProviderUnavailable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			idp := &mockProvider{
				exchangeFn: func(context.Context, string, string) (domain.ProviderIdentity, error) {
					return domain.ProviderIdentity{}, tt.err
				},
			}
			svc := NewAuthService(store, idp, AuthConfig{})

			_, err := svc.HandleCallback(context.Background(), "code")
			require.ErrorIs(t, err, tt.err)
			assert.Zero(t, store.count("WithinTx"))
			assert.Zero(t, store.count("CreateSession"))
		})
	}
}

func TestHandleCallback_ConflictIsNotRetried(t *testing.T) {
	store := &mockStore{
		createAcctFn: func(context.Context, string, string, domain.AuthProvider) (string, error) {
			return "", fmt.Errorf("insert auth provider: %w", domain.ErrConflict)
		},
	}
	svc := NewAuthService(store, &mockProvider{}, AuthConfig{})

	_, err := svc.HandleCallback(context.Background(), "code")
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, store.count("CreateAccount"))
	assert.Zero(t, store.count("CreateSession"))
}

func TestHandleCallback_SessionFailure(t *testing.T) {
	store := &mockStore{
		createSessFn: func(context.Context, string) (string, error) {
			return "", domain.ErrDanglingReference
		},
	}
	svc := NewAuthService(store, &mockProvider{}, AuthConfig{})

	login, err := svc.HandleCallback(context.Background(), "code")
	require.ErrorIs(t, err, domain.ErrStore)
	assert.Nil(t, login)
}

func TestHandleCallback_NotInitialized(t *testing.T) {
	store := &mockStore{
		configValueFn: func(context.Context, string) (string, error) { return "", nil },
	}
	idp := &mockProvider{}
	svc := NewAuthService(store, idp, AuthConfig{})

	_, err := svc.HandleCallback(context.Background(), "code")
	require.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.Zero(t, idp.exchangeCalls)
}

func TestGenerateLoginURL(t *testing.T) {
	storeErr := errors.New("no such table: configuration")

	tests := []struct {
		name      string
		stored    string
		storeErr  error
		fallback  string
		want      string
		wantErrIs error
	}{
		{
			name:     "stored value wins",
			stored:   "https://stored/",
			fallback: "https://env/",
			want:     "https://provider.test/authorize?redirect_uri=https://stored/callback",
		},
		{
			name:     "configured fallback",
			fallback: "https://env",
			want:     "https://provider.test/authorize?redirect_uri=https://env/callback",
		},
		{
			name:      "not initialized",
			wantErrIs: domain.ErrNotInitialized,
		},
		{
			name:     "store error with fallback",
			storeErr: storeErr,
			fallback: "https://env/",
			want:     "https://provider.test/authorize?redirect_uri=https://env/callback",
		},
		{
			name:      "store error without fallback",
			storeErr:  storeErr,
			wantErrIs: storeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{
				configValueFn: func(_ context.Context, key string) (string, error) {
					assert.Equal(t, domain.ConfigKeyPublicURL, key)
					return tt.stored, tt.storeErr
				},
			}
			svc := NewAuthService(store, &mockProvider{}, AuthConfig{PublicURL: tt.fallback})

			got, err := svc.GenerateLoginURL(context.Background())
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSession(t *testing.T) {
	acct := &domain.Account{ID: "acct-1", Username: "sumire"}

	t.Run("known session", func(t *testing.T) {
		store := &mockStore{
			findBySessFn: func(_ context.Context, sessionID string) (*domain.Account, error) {
				assert.Equal(t, "sess-1", sessionID)
				return acct, nil
			},
		}
		got, err := NewAuthService(store, &mockProvider{}, AuthConfig{}).ResolveSession(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, acct, got)
	})

	t.Run("unknown session is anonymous", func(t *testing.T) {
		got, err := NewAuthService(&mockStore{}, &mockProvider{}, AuthConfig{}).ResolveSession(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty session skips the store", func(t *testing.T) {
		store := &mockStore{}
		got, err := NewAuthService(store, &mockProvider{}, AuthConfig{}).ResolveSession(context.Background(), "")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, store.total())
	})

	t.Run("store failure is hard", func(t *testing.T) {
		store := &mockStore{
			findBySessFn: func(context.Context, string) (*domain.Account, error) {
				return nil, domain.ErrStore
			},
		}
		_, err := NewAuthService(store, &mockProvider{}, AuthConfig{}).ResolveSession(context.Background(), "sess-1")
		assert.ErrorIs(t, err, domain.ErrStore)
	})
}

func TestInitializeSchema(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantValid bool
	}{
		{name: "https", url: "https://accounts.example.com/", wantValid: true},
		{name: "http with port", url: "http://localhost:8080", wantValid: true},
		{name: "empty", url: ""},
		{name: "relative", url: "/callback"},
		{name: "other scheme", url: "ftp://example.com/"},
		{name: "missing host", url: "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seeded string
			store := &mockStore{
				initSchemaFn: func(_ context.Context, publicURL string) error {
					seeded = publicURL
					return nil
				},
			}
			svc := NewAuthService(store, &mockProvider{}, AuthConfig{})

			err := svc.InitializeSchema(context.Background(), tt.url)
			if tt.wantValid {
				require.NoError(t, err)
				assert.Equal(t, tt.url, seeded)
				return
			}

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "url", vErr.Field)
			assert.Zero(t, store.total())
		})
	}
}

func TestInitializeSchema_StoreFailure(t *testing.T) {
	store := &mockStore{
		initSchemaFn: func(context.Context, string) error { return domain.ErrStore },
	}
	err := NewAuthService(store, &mockProvider{}, AuthConfig{}).InitializeSchema(context.Background(), "https://x/")
	assert.ErrorIs(t, err, domain.ErrStore)
}
