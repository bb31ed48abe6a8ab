package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realty-api/internal/domain"
	"realty-api/internal/email"
	"realty-api/internal/repository"
)

// MinPasswordLength es el largo minimo aceptado para passwords.
const MinPasswordLength = 6

// MaxPasswordLength es el limite de bcrypt, en bytes.
const MaxPasswordLength = 72

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailInUse           = errors.New("email already in use")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidName          = errors.New("invalid name")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordTooLong      = errors.New("password too long")
	ErrInvalidRole          = errors.New("invalid role")
	ErrOTPNotRequested      = errors.New("otp not requested")
	ErrOTPExpired           = errors.New("otp expired")
	ErrOTPInvalid           = errors.New("otp invalid")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrEmailSendFailure     = errors.New("email send failed")
	ErrRateLimited          = errors.New("rate limited")
)

// TokenIssuer emite, valida y revoca tokens de sesion.
type TokenIssuer interface {
	Issue(userID string) (IssuedToken, error)
	Verify(ctx context.Context, token string) (Claims, error)
	Revoke(ctx context.Context, claims Claims) error
}

// AuthService orquesta login, registro y perfil sobre el almacen de credenciales.
type AuthService struct {
	logger  *zap.Logger
	store   repository.Store
	tokens  TokenIssuer
	hasher  PasswordHasher
	mailer  email.Sender
	limiter RateLimiter
	otpTTL  time.Duration
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type AuthOption func(*AuthService)

func WithMailer(sender email.Sender) AuthOption {
	return func(s *AuthService) {
		if sender != nil {
			s.mailer = sender
		}
	}
}

func WithRateLimiter(limiter RateLimiter) AuthOption {
	return func(s *AuthService) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

func WithOTPTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

func NewAuthService(logger *zap.Logger, store repository.Store, tokens TokenIssuer, hasher PasswordHasher, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		logger: logger,
		store:  store,
		tokens: tokens,
		hasher: hasher,
		mailer: email.NewDisabledSender("email sender not configured"),
		otpTTL: DefaultOTPTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewMemoryRateLimiter(s.otpTTL, 3)
	}
	return s
}

// AuthResult es la respuesta de login y registro.
type AuthResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    *string
	// Role solicitado por el cliente; se ignora, ver SetRole.
	Role string
}

// Login responde igual ante email inexistente o password incorrecto.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (AuthResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if len(password) > MaxPasswordLength {
		s.equalizeTiming(password[:MaxPasswordLength])
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.store.Users().GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.equalizeTiming(password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	account, err := s.store.Credentials().Get(ctx, user.ID, domain.ProviderPassword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.equalizeTiming(password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup credential: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			s.logger.Error("password compare failed", zap.String("user_id", user.ID), zap.Error(err))
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Register crea usuario y cuenta de credenciales en una sola transaccion.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return AuthResult{}, ErrInvalidEmail
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return AuthResult{}, ErrInvalidName
	}
	if len(input.Password) < MinPasswordLength {
		return AuthResult{}, ErrPasswordTooShort
	}
	if len(input.Password) > MaxPasswordLength {
		return AuthResult{}, ErrPasswordTooLong
	}
	if requested := strings.TrimSpace(input.Role); requested != "" && requested != string(domain.RoleUser) {
		s.logger.Info("requested role ignored at registration", zap.String("email", emailAddr), zap.String("role", requested))
	}

	if _, err := s.store.Users().GetByEmail(ctx, emailAddr); err == nil {
		return AuthResult{}, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return AuthResult{}, ErrPasswordTooLong
		}
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     emailAddr,
		Phone:     nonBlank(input.Phone),
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := domain.CredentialAccount{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Provider:     domain.ProviderPassword,
		AccountID:    emailAddr,
		PasswordHash: hash,
		CreatedAt:    now,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Credentials().Create(ctx, account)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateCredential) {
			return AuthResult{}, ErrEmailInUse
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Logout revoca el token si hay almacen de revocados. Nunca falla para el cliente.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		s.logger.Warn("token revoke failed", zap.String("user_id", claims.UserID), zap.Error(err))
	}
}

// Authenticate resuelve un bearer token a sus claims.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Claims, error) {
	return s.tokens.Verify(ctx, token)
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	if !isUserID(userID) {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile aplica el patch y revalida la unicidad del email en la misma transaccion.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	if !isUserID(userID) {
		return domain.User{}, ErrUserNotFound
	}
	if patch.Email != nil {
		normalized := normalizeEmail(*patch.Email)
		if normalized == "" {
			return domain.User{}, ErrInvalidEmail
		}
		patch.Email = &normalized
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.User{}, ErrInvalidName
		}
		patch.Name = &name
	}
	// Vacio tras el trim borra el campo.
	patch.Phone = trimOptional(patch.Phone)
	patch.AvatarURL = trimOptional(patch.AvatarURL)

	if patch.Empty() {
		return s.GetProfile(ctx, userID)
	}

	var updated domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		emailChanged := patch.Email != nil && *patch.Email != current.Email
		if emailChanged {
			other, err := tx.Users().GetByEmail(ctx, *patch.Email)
			switch {
			case err == nil && other.ID != userID:
				return ErrEmailInUse
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}
		updated, err = tx.Users().Update(ctx, userID, patch)
		if err != nil {
			return err
		}
		if emailChanged {
			err := tx.Credentials().UpdateAccountID(ctx, userID, domain.ProviderPassword, updated.Email)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailInUse),
			errors.Is(err, repository.ErrDuplicateEmail),
			errors.Is(err, repository.ErrDuplicateCredential):
			return domain.User{}, ErrEmailInUse
		case errors.Is(err, repository.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		default:
			return domain.User{}, fmt.Errorf("update profile: %w", err)
		}
	}
	return updated, nil
}

// SetRole es el flujo explicito de elevacion; el registro nunca asigna roles privilegiados.
func (s *AuthService) SetRole(ctx context.Context, userID, rawRole string) (domain.User, error) {
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return domain.User{}, ErrInvalidRole
	}
	if !isUserID(userID) {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.store.Users().UpdateRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update role: %w", err)
	}
	s.logger.Info("user role changed", zap.String("user_id", userID), zap.String("role", string(role)))
	return user, nil
}

// RequestEmailVerification genera y envia un codigo de verificacion.
func (s *AuthService) RequestEmailVerification(ctx context.Context, userID string) (time.Time, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if user.EmailVerified {
		return time.Time{}, ErrEmailAlreadyVerified
	}
	if !s.limiter.Allow(ctx, user.ID) {
		return time.Time{}, ErrRateLimited
	}

	code, hash, expiresAt, err := generateOTP(s.now(), s.otpTTL)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.Users().UpdateOTP(ctx, user.ID, hash, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, fmt.Errorf("store otp: %w", err)
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Name, code, expiresAt); err != nil {
		s.logger.Warn("send verification code failed", zap.Error(err), zap.String("user_id", user.ID))
		return time.Time{}, ErrEmailSendFailure
	}
	return expiresAt, nil
}

// VerifyEmail confirma el codigo y marca el email como verificado.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, code string) (domain.User, error) {
	code = strings.TrimSpace(code)
	if !isValidOTPCode(code) {
		return domain.User{}, ErrOTPInvalid
	}
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.EmailVerified {
		return domain.User{}, ErrEmailAlreadyVerified
	}
	if user.OtpCodeHash == "" || user.OtpExpiresAt == nil {
		return domain.User{}, ErrOTPNotRequested
	}
	if s.now().UTC().After(*user.OtpExpiresAt) {
		return domain.User{}, ErrOTPExpired
	}
	if !verifyOTP(code, user.OtpCodeHash) {
		return domain.User{}, ErrOTPInvalid
	}

	if err := s.store.Users().MarkEmailVerified(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("mark email verified: %w", err)
	}
	user.EmailVerified = true
	user.OtpCodeHash = ""
	user.OtpExpiresAt = nil
	return user, nil
}

func (s *AuthService) issue(user domain.User) (AuthResult, error) {
	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}

// equalizeTiming gasta un hash cuando no hay credencial contra la cual comparar.
func (s *AuthService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("realty-api-timing-equalizer")
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// isUserID descarta ids que no son uuid antes de llegar a la columna uuid.
func isUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func nonBlank(value *string) *string {
	value = trimOptional(value)
	if value == nil || *value == "" {
		return nil
	}
	return value
}
