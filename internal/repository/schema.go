package repository

import (
	"context"
	"fmt"
)

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS oasis;

	CREATE TABLE IF NOT EXISTS oasis.users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		alerts_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS oasis.accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES oasis.users(id) ON DELETE CASCADE,
		balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS oasis.households (
		user_id BIGINT PRIMARY KEY REFERENCES oasis.users(id) ON DELETE CASCADE,
		household_size INTEGER NOT NULL,
		monthly_income NUMERIC(12,2) NOT NULL,
		children INTEGER NOT NULL DEFAULT 0,
		pregnant BOOLEAN NOT NULL DEFAULT FALSE,
		zip_code VARCHAR(10) NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS oasis.transactions (
		id BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES oasis.accounts(id) ON DELETE CASCADE,
		amount NUMERIC(12,2) NOT NULL,
		type VARCHAR(20) NOT NULL,
		category VARCHAR(50) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_occurred ON oasis.transactions(account_id, occurred_at);

	CREATE TABLE IF NOT EXISTS oasis.eligibility_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES oasis.users(id) ON DELETE CASCADE,
		household JSONB NOT NULL,
		result JSONB NOT NULL,
		total_monthly NUMERIC(12,2) NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS oasis.health_snapshots (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES oasis.users(id) ON DELETE CASCADE,
		score INTEGER NOT NULL,
		crisis_date DATE,
		days_until_crisis INTEGER,
		recommendations TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS oasis.ebt_cards (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES oasis.users(id) ON DELETE CASCADE,
		card_number TEXT NOT NULL,
		hmac VARCHAR(64) NOT NULL,
		snap_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		cash_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- a card is unique per user; another household may hold the same number
	ALTER TABLE oasis.ebt_cards DROP CONSTRAINT IF EXISTS ebt_cards_hmac_key;
	CREATE UNIQUE INDEX IF NOT EXISTS ebt_cards_user_hmac_idx ON oasis.ebt_cards (user_id, hmac);

	CREATE TABLE IF NOT EXISTS oasis.chat_messages (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES oasis.users(id) ON DELETE CASCADE,
		conversation_id UUID NOT NULL,
		role VARCHAR(20) NOT NULL,
		intent VARCHAR(20) NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON oasis.chat_messages(conversation_id, id);
`

// EnsureSchema creates the tables the service needs if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
