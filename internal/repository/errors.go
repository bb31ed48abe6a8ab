package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound se devuelve cuando el registro no existe.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail se devuelve cuando el email ya pertenece a otro usuario.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrDuplicateCredential se devuelve cuando el usuario ya tiene cuenta para el proveedor.
	ErrDuplicateCredential = errors.New("duplicate credential account")
)

const (
	uniqueViolationCode           = "23505"
	invalidTextRepresentationCode = "22P02" // id que no es uuid: nunca existe

	usersEmailConstraint = "users_email_key"
)

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentationCode
}

func isUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// mapUserError traduce errores de pgx a los sentinelas del paquete.
func mapUserError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return ErrNotFound
	}
	if constraint, ok := isUniqueViolation(err); ok && (constraint == "" || constraint == usersEmailConstraint) {
		return ErrDuplicateEmail
	}
	return err
}

func mapCredentialError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return ErrNotFound
	}
	if _, ok := isUniqueViolation(err); ok {
		return ErrDuplicateCredential
	}
	return err
}
