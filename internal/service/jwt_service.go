package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL es la ventana de validez de un token de sesion.
const DefaultTokenTTL = 7 * 24 * time.Hour

const defaultIssuer = "realty-api"

// JWTService emite y valida tokens de sesion firmados (HS256) sin estado en servidor.
// Solo la revocacion opcional consulta un almacen externo.
type JWTService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	now     func() time.Time
	revoked RevokedTokenStore
}

// IssuedToken es el resultado de emitir un token.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTRevoked = errors.New("jwt revoked")
)

// JWTOption ajusta un JWTService en su construccion.
type JWTOption func(*JWTService)

func WithIssuer(issuer string) JWTOption {
	return func(s *JWTService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
	}
}

// WithClock reemplaza el reloj usado para emitir y validar.
func WithClock(now func() time.Time) JWTOption {
	return func(s *JWTService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRevocationStore(store RevokedTokenStore) JWTOption {
	return func(s *JWTService) {
		s.revoked = store
	}
}

func NewJWTService(secret string, ttl time.Duration, opts ...JWTOption) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	svc := &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue firma {userID, iat, exp} con el secreto del proceso.
func (s *JWTService) Issue(userID string) (IssuedToken, error) {
	if len(s.secret) == 0 || strings.TrimSpace(userID) == "" {
		return IssuedToken{}, ErrJWTInvalid
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Verify valida firma, emisor y expiracion, y consulta la lista de revocados si existe.
func (s *JWTService) Verify(ctx context.Context, tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Claims{}, err
		}
		if revoked {
			return Claims{}, ErrJWTRevoked
		}
	}
	return claims, nil
}

// Revoke agrega el jti a la lista de revocados hasta su expiracion natural.
// Sin almacen configurado es un no-op.
func (s *JWTService) Revoke(ctx context.Context, claims Claims) error {
	if s.revoked == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	return claims.Subject == claims.UserID
}
