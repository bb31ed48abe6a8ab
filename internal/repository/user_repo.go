package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"realty-api/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Update(ctx context.Context, id string, patch domain.ProfilePatch) (domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error)
	UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string) error
}

// PgUserRepository implementa UserRepository sobre un pool o una transaccion.
type PgUserRepository struct {
	db DBTX
}

func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id::text, name, email, phone, avatar_url, role, email_verified,
	otp_code_hash, otp_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u       domain.User
		role    string
		otpHash *string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.AvatarURL,
		&role,
		&u.EmailVerified,
		&otpHash,
		&u.OtpExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapUserError(err)
	}
	u.Role = domain.Role(role)
	if otpHash != nil {
		u.OtpCodeHash = *otpHash
	}
	return u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, email, phone, avatar_url, role, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.AvatarURL,
		string(user.Role),
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapUserError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// Update aplica solo los campos no nil. Cambiar el email invalida la verificacion.
func (r *PgUserRepository) Update(ctx context.Context, id string, patch domain.ProfilePatch) (domain.User, error) {
	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = CASE WHEN $4::text IS NULL THEN phone ELSE NULLIF($4::text, '') END,
			avatar_url = CASE WHEN $5::text IS NULL THEN avatar_url ELSE NULLIF($5::text, '') END,
			email_verified = CASE
				WHEN $3::text IS NOT NULL AND $3::text <> email THEN FALSE
				ELSE email_verified
			END,
			updated_at = $6
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query,
		id,
		patch.Name,
		patch.Email,
		patch.Phone,
		patch.AvatarURL,
		time.Now().UTC(),
	))
}

func (r *PgUserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error) {
	query := `
		UPDATE users SET role = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, id, string(role), time.Now().UTC()))
}

func (r *PgUserRepository) UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	const query = `
		UPDATE users SET otp_code_hash = $2, otp_expires_at = $3, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, otpHash, otpExpiresAt, time.Now().UTC())
	if err != nil {
		return mapUserError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET email_verified = TRUE, otp_code_hash = NULL, otp_expires_at = NULL, updated_at = $2
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return mapUserError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
