package repository

import (
	"context"

	"realty-api/internal/domain"
)

// CredentialRepository persiste las cuentas de credenciales de cada usuario.
type CredentialRepository interface {
	Create(ctx context.Context, account domain.CredentialAccount) error
	Get(ctx context.Context, userID, provider string) (domain.CredentialAccount, error)
	UpdateAccountID(ctx context.Context, userID, provider, accountID string) error
}

type PgCredentialRepository struct {
	db DBTX
}

func NewPgCredentialRepository(db DBTX) *PgCredentialRepository {
	return &PgCredentialRepository{db: db}
}

func (r *PgCredentialRepository) Create(ctx context.Context, account domain.CredentialAccount) error {
	const query = `
		INSERT INTO credential_accounts (id, user_id, provider, account_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Provider,
		account.AccountID,
		account.PasswordHash,
		account.CreatedAt,
	)
	return mapCredentialError(err)
}

func (r *PgCredentialRepository) Get(ctx context.Context, userID, provider string) (domain.CredentialAccount, error) {
	const query = `
		SELECT id::text, user_id::text, provider, account_id, password_hash, created_at
		FROM credential_accounts
		WHERE user_id = $1 AND provider = $2
	`
	var a domain.CredentialAccount
	err := r.db.QueryRow(ctx, query, userID, provider).Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.AccountID,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.CredentialAccount{}, mapCredentialError(err)
	}
	return a, nil
}

func (r *PgCredentialRepository) UpdateAccountID(ctx context.Context, userID, provider, accountID string) error {
	const query = `
		UPDATE credential_accounts SET account_id = $3
		WHERE user_id = $1 AND provider = $2
	`
	tag, err := r.db.Exec(ctx, query, userID, provider, accountID)
	if err != nil {
		return mapCredentialError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
