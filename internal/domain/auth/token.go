package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// claims is the signed payload of a credential.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig configures credential signing.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// TokenManager issues and verifies HMAC-signed, time-bounded credentials.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. The secret must not be empty.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.Errorf("token ttl must be positive, got %s", cfg.TTL)
	}
	return &TokenManager{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue signs a credential for id and returns it with its expiry.
func (m *TokenManager) Issue(id Identity) (string, time.Time, error) {
	if _, err := ParseRole(string(id.Role)); err != nil {
		return "", time.Time{}, errors.Wrap(err, "issue token")
	}
	now := m.now()
	exp := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// Verify checks the signature, issuer and expiry of raw and returns the
// identity it asserts. Every failure is reported as ErrInvalidCredential.
func (m *TokenManager) Verify(raw string) (Identity, error) {
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if _, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...); err != nil {
		return Identity{}, errors.Wrap(ErrInvalidCredential, err.Error())
	}
	if c.Subject == "" {
		return Identity{}, errors.Wrap(ErrInvalidCredential, "missing subject")
	}
	role, err := ParseRole(c.Role)
	if err != nil {
		return Identity{}, errors.Wrap(ErrInvalidCredential, err.Error())
	}
	return Identity{Subject: c.Subject, Role: role}, nil
}
