package domain

import "time"

// ProviderPassword identifica la cuenta local de email y password.
const ProviderPassword = "password"

// CredentialAccount es un metodo de autenticacion vinculado a un usuario.
type CredentialAccount struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Provider     string    `json:"provider"`
	AccountID    string    `json:"accountId"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
