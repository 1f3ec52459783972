package repository

import (
	"context"
	"fmt"

	"github.com/sumire/accounts/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id VARCHAR(255) NOT NULL,
		username   VARCHAR(255) NOT NULL,
		PRIMARY KEY (account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS auth_providers (
		account_id          VARCHAR(255) NOT NULL,
		provider_account_id VARCHAR(255) NOT NULL,
		provider            VARCHAR(255) NOT NULL,
		PRIMARY KEY (account_id),
		UNIQUE (provider, provider_account_id),
		FOREIGN KEY (account_id) REFERENCES accounts (account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS configuration (
		config_key   VARCHAR(255) NOT NULL,
		config_value VARCHAR(255) NOT NULL,
		PRIMARY KEY (config_key)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id VARCHAR(255) NOT NULL,
		account_id VARCHAR(255) NOT NULL,
		PRIMARY KEY (session_id),
		FOREIGN KEY (account_id) REFERENCES accounts (account_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_account_id ON sessions (account_id)`,
}

const upsertConfigValue = `INSERT INTO configuration (config_key, config_value) VALUES (?, ?)
	ON CONFLICT (config_key) DO UPDATE SET config_value = excluded.config_value`

// InitializeSchema creates all tables and stores publicURL as the public base URL,
// in one transaction. Re-running it is safe and replaces the stored URL.
func (r *AccountRepository) InitializeSchema(ctx context.Context, publicURL string) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		ext := r.ext(ctx)

		for i, stmt := range schema {
			if _, err := ext.ExecContext(ctx, stmt); err != nil {
				return storeError(fmt.Sprintf("create schema (statement %d)", i+1), err)
			}
		}

		if _, err := ext.ExecContext(ctx, ext.Rebind(upsertConfigValue), domain.ConfigKeyPublicURL, publicURL); err != nil {
			return storeError("seed public url", err)
		}
		return nil
	})
}
