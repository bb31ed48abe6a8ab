// Package memstore ofrece un repository.Store en memoria para tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"realty-api/internal/domain"
	"realty-api/internal/repository"
)

type state struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	credentials  map[string]domain.CredentialAccount
}

func (s state) clone() state {
	c := state{
		usersByID:    make(map[string]domain.User, len(s.usersByID)),
		usersByEmail: make(map[string]string, len(s.usersByEmail)),
		credentials:  make(map[string]domain.CredentialAccount, len(s.credentials)),
	}
	for k, v := range s.usersByID {
		c.usersByID[k] = v
	}
	for k, v := range s.usersByEmail {
		c.usersByEmail[k] = v
	}
	for k, v := range s.credentials {
		c.credentials[k] = v
	}
	return c
}

// Store guarda usuarios y credenciales en mapas con la misma semantica de errores
// que el almacen Postgres. WithinTx restaura el estado previo si fn falla.
// Las escrituras se serializan con las transacciones; las lecturas no se bloquean.
type Store struct {
	// writer se toma durante toda la transaccion y en cada escritura fuera de ella.
	writer sync.Mutex
	mu     sync.Mutex
	st     state

	// FailCredentialCreate fuerza un error al crear credenciales.
	FailCredentialCreate error
}

func New() *Store {
	return &Store{st: state{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
		credentials:  make(map[string]domain.CredentialAccount),
	}}
}

func (s *Store) Users() repository.UserRepository {
	return userRepo{s: s}
}

func (s *Store) Credentials() repository.CredentialRepository {
	return credentialRepo{s: s}
}

func (s *Store) WithinTx(_ context.Context, fn func(tx repository.Store) error) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	err := fn(txStore{s: s})
	if err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
	}
	return err
}

// txStore es la vista que recibe fn: ya tiene writer tomado.
type txStore struct {
	s *Store
}

func (t txStore) Users() repository.UserRepository {
	return userRepo{s: t.s, inTx: true}
}

func (t txStore) Credentials() repository.CredentialRepository {
	return credentialRepo{s: t.s, inTx: true}
}

func (t txStore) WithinTx(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(t)
}

// lockWrite toma writer salvo dentro de una transaccion, que ya lo tiene.
func (s *Store) lockWrite(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.writer.Lock()
	return s.writer.Unlock
}

// UserCount devuelve la cantidad de usuarios guardados.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.usersByID)
}

func credentialKey(userID, provider string) string {
	return userID + "|" + provider
}

type userRepo struct {
	s    *Store
	inTx bool
}

func (r userRepo) Create(_ context.Context, user domain.User) error {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	r.s.st.usersByID[user.ID] = user
	r.s.st.usersByEmail[user.Email] = user.ID
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.st.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.st.usersByEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return r.s.st.usersByID[id], nil
}

func (r userRepo) Update(_ context.Context, id string, patch domain.ProfilePatch) (domain.User, error) {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.st.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	if patch.Email != nil && *patch.Email != user.Email {
		if owner, taken := r.s.st.usersByEmail[*patch.Email]; taken && owner != id {
			return domain.User{}, repository.ErrDuplicateEmail
		}
		delete(r.s.st.usersByEmail, user.Email)
		user.Email = *patch.Email
		user.EmailVerified = false
		r.s.st.usersByEmail[user.Email] = id
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Phone != nil {
		user.Phone = clearable(*patch.Phone)
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = clearable(*patch.AvatarURL)
	}
	user.UpdatedAt = time.Now().UTC()
	r.s.st.usersByID[id] = user
	return user, nil
}

func (r userRepo) UpdateRole(_ context.Context, id string, role domain.Role) (domain.User, error) {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.st.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	r.s.st.usersByID[id] = user
	return user, nil
}

func (r userRepo) UpdateOTP(_ context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.st.usersByID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OtpCodeHash = otpHash
	user.OtpExpiresAt = &otpExpiresAt
	r.s.st.usersByID[id] = user
	return nil
}

func (r userRepo) MarkEmailVerified(_ context.Context, id string) error {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.st.usersByID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerified = true
	user.OtpCodeHash = ""
	user.OtpExpiresAt = nil
	r.s.st.usersByID[id] = user
	return nil
}

func clearable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

type credentialRepo struct {
	s    *Store
	inTx bool
}

func (r credentialRepo) Create(_ context.Context, account domain.CredentialAccount) error {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailCredentialCreate != nil {
		return r.s.FailCredentialCreate
	}
	key := credentialKey(account.UserID, account.Provider)
	if _, ok := r.s.st.credentials[key]; ok {
		return repository.ErrDuplicateCredential
	}
	r.s.st.credentials[key] = account
	return nil
}

func (r credentialRepo) Get(_ context.Context, userID, provider string) (domain.CredentialAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.st.credentials[credentialKey(userID, provider)]
	if !ok {
		return domain.CredentialAccount{}, repository.ErrNotFound
	}
	return account, nil
}

func (r credentialRepo) UpdateAccountID(_ context.Context, userID, provider, accountID string) error {
	defer r.s.lockWrite(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := credentialKey(userID, provider)
	account, ok := r.s.st.credentials[key]
	if !ok {
		return repository.ErrNotFound
	}
	account.AccountID = accountID
	r.s.st.credentials[key] = account
	return nil
}
