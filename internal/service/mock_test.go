package service

import (
	"context"
	"sync"

	"github.com/sumire/accounts/internal/domain"
)

type storeCall string

type mockStore struct {
	mu    sync.Mutex
	calls []storeCall

	withinTxFn    func(ctx context.Context, fn func(ctx context.Context) error) error
	configValueFn func(ctx context.Context, key string) (string, error)
	findByIDFn    func(ctx context.Context, providerAccountID string, provider domain.AuthProvider) (*domain.Account, error)
	createAcctFn  func(ctx context.Context, username, providerAccountID string, provider domain.AuthProvider) (string, error)
	createSessFn  func(ctx context.Context, accountID string) (string, error)
	findBySessFn  func(ctx context.Context, sessionID string) (*domain.Account, error)
	initSchemaFn  func(ctx context.Context, publicURL string) error
}

func (m *mockStore) record(c storeCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockStore) count(c storeCall) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, got := range m.calls {
		if got == c {
			n++
		}
	}
	return n
}

func (m *mockStore) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.record("WithinTx")
	if m.withinTxFn != nil {
		return m.withinTxFn(ctx, fn)
	}
	return fn(ctx)
}

func (m *mockStore) ResolveConfigValue(ctx context.Context, key string) (string, error) {
	m.record("ResolveConfigValue")
	if m.configValueFn != nil {
		return m.configValueFn(ctx, key)
	}
	return "https://x/", nil
}

func (m *mockStore) FindAccountByProviderIdentity(ctx context.Context, providerAccountID string, provider domain.AuthProvider) (*domain.Account, error) {
	m.record("FindAccountByProviderIdentity")
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, providerAccountID, provider)
	}
	return nil, nil
}

func (m *mockStore) CreateAccount(ctx context.Context, username, providerAccountID string, provider domain.AuthProvider) (string, error) {
	m.record("CreateAccount")
	if m.createAcctFn != nil {
		return m.createAcctFn(ctx, username, providerAccountID, provider)
	}
	return "acct-1", nil
}

func (m *mockStore) CreateSession(ctx context.Context, accountID string) (string, error) {
	m.record("CreateSession")
	if m.createSessFn != nil {
		return m.createSessFn(ctx, accountID)
	}
	return "sess-1", nil
}

func (m *mockStore) FindAccountBySession(ctx context.Context, sessionID string) (*domain.Account, error) {
	m.record("FindAccountBySession")
	if m.findBySessFn != nil {
		return m.findBySessFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockStore) InitializeSchema(ctx context.Context, publicURL string) error {
	m.record("InitializeSchema")
	if m.initSchemaFn != nil {
		return m.initSchemaFn(ctx, publicURL)
	}
	return nil
}

type mockProvider struct {
	mu            sync.Mutex
	exchangeCalls int
	redirectURIs  []string

	exchangeFn func(ctx context.Context, code, redirectURI string) (domain.ProviderIdentity, error)
}

func (m *mockProvider) Name() domain.AuthProvider { return domain.AuthProviderDiscord }

func (m *mockProvider) AuthURL(publicBase string) string {
	return "https://provider.test/authorize?redirect_uri=" + domain.CallbackURL(publicBase)
}

func (m *mockProvider) Exchange(ctx context.Context, code, redirectURI string) (domain.ProviderIdentity, error) {
	m.mu.Lock()
	m.exchangeCalls++
	m.redirectURIs = append(m.redirectURIs, redirectURI)
	m.mu.Unlock()

	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code, redirectURI)
	}
	return domain.ProviderIdentity{
		Provider:          domain.AuthProviderDiscord,
		ProviderAccountID: "42",
		ProviderUsername:  "sumire",
	}, nil
}
