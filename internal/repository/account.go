package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/accounts/internal/domain"
)

const (
	selectAccountByProvider = `SELECT a.account_id, a.username
		 FROM accounts a
		 JOIN auth_providers p ON a.account_id = p.account_id
		 WHERE p.provider_account_id = ? AND p.provider = ?`

	selectAccountBySession = `SELECT a.account_id, a.username
		 FROM accounts a
		 JOIN sessions s ON a.account_id = s.account_id
		 WHERE s.session_id = ?`

	selectConfigValue = `SELECT config_value FROM configuration WHERE config_key = ?`

	insertAccount      = `INSERT INTO accounts (account_id, username) VALUES (?, ?)`
	insertProviderLink = `INSERT INTO auth_providers (account_id, provider_account_id, provider) VALUES (?, ?, ?)`
	insertSession      = `INSERT INTO sessions (session_id, account_id) VALUES (?, ?)`
)

type txKey struct{}

// AccountRepository handles account, provider link, session and configuration persistence.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// ext returns the transaction carried by ctx, or the pool when there is none.
func (r *AccountRepository) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

// WithinTx runs fn in a transaction. Repository calls made with the context
// passed to fn join that transaction; nested calls join the outermost one.
func (r *AccountRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeError("begin tx", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v after: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit", err)
	}
	return nil
}

// ResolveConfigValue returns the configuration value for key, or "" when it is unset.
func (r *AccountRepository) ResolveConfigValue(ctx context.Context, key string) (string, error) {
	ext := r.ext(ctx)

	var value string
	err := sqlx.GetContext(ctx, ext, &value, ext.Rebind(selectConfigValue), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", storeError(fmt.Sprintf("read config %q", key), err)
	}
	return value, nil
}

// FindAccountByProviderIdentity returns the account linked to the provider
// identity, or nil when no account is linked.
func (r *AccountRepository) FindAccountByProviderIdentity(ctx context.Context, providerAccountID string, provider domain.AuthProvider) (*domain.Account, error) {
	ext := r.ext(ctx)

	var acct domain.Account
	err := sqlx.GetContext(ctx, ext, &acct, ext.Rebind(selectAccountByProvider), providerAccountID, string(provider))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(fmt.Sprintf("find account by provider %s", provider), err)
	}
	return &acct, nil
}

// CreateAccount inserts an account and its provider link atomically and
// returns the new account id.
func (r *AccountRepository) CreateAccount(ctx context.Context, username, providerAccountID string, provider domain.AuthProvider) (string, error) {
	accountID := uuid.NewString()

	err := r.WithinTx(ctx, func(ctx context.Context) error {
		ext := r.ext(ctx)

		if _, err := ext.ExecContext(ctx, ext.Rebind(insertAccount), accountID, username); err != nil {
			return storeError("insert account", err)
		}
		if _, err := ext.ExecContext(ctx, ext.Rebind(insertProviderLink), accountID, providerAccountID, string(provider)); err != nil {
			return storeError("insert auth provider", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}

	return accountID, nil
}

// CreateSession inserts a new session for accountID and returns its id.
func (r *AccountRepository) CreateSession(ctx context.Context, accountID string) (string, error) {
	sessionID := uuid.NewString()
	ext := r.ext(ctx)

	if _, err := ext.ExecContext(ctx, ext.Rebind(insertSession), sessionID, accountID); err != nil {
		return "", storeError("create session", err)
	}
	return sessionID, nil
}

// FindAccountBySession returns the account owning sessionID, or nil for an unknown session.
func (r *AccountRepository) FindAccountBySession(ctx context.Context, sessionID string) (*domain.Account, error) {
	ext := r.ext(ctx)

	var acct domain.Account
	err := sqlx.GetContext(ctx, ext, &acct, ext.Rebind(selectAccountBySession), sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("find account by session", err)
	}
	return &acct, nil
}

// Ping checks store connectivity.
func (r *AccountRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}
