package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned when registering an email that is taken.
	ErrUserExists = errors.New("user already registered")
	// ErrUserNotFound is returned by repositories for unknown accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidLogin is returned for an unknown email or a wrong password.
	ErrInvalidLogin = errors.New("invalid email or password")
)

// InvalidAccountError reports a malformed registration field.
type InvalidAccountError struct {
	Field  string
	Reason string
}

func (e *InvalidAccountError) Error() string {
	return e.Field + " " + e.Reason
}

// User is a registered account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// RegisterRequest holds the input for account registration.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}

// Service registers accounts and exchanges passwords for credentials.
type Service struct {
	users  UserRepository
	tokens *TokenManager
	cost   int
	now    func() time.Time
}

// NewService creates an account Service.
func NewService(users UserRepository, tokens *TokenManager) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// HashPassword returns the bcrypt hash of password at the given cost.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// Register creates a new account. Accounts default to the customer role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if strings.TrimSpace(req.Username) == "" {
		return nil, &InvalidAccountError{Field: "username", Reason: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &InvalidAccountError{Field: "email", Reason: "is not a valid address"}
	}
	if req.Password == "" {
		return nil, &InvalidAccountError{Field: "password", Reason: "is required"}
	}
	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password, s.cost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	u := &User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login checks the password for email and issues a credential.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}

	id := Identity{Subject: u.ID, Role: u.Role}
	token, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Identity: id}, nil
}
