package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleOfficer Role = "Officer"
)

type User struct {
	Username     string
	Name         string
	Role         Role
	PasswordHash []byte
}

func NewUser(username, name string, role Role, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password for %s: %w", username, err)
	}

	return User{Username: username, Name: name, Role: role, PasswordHash: hash}, nil
}

// DemoUsers returns the two built-in accounts.
func DemoUsers() ([]User, error) {
	admin, err := NewUser("admin", "System Administrator", RoleAdmin, "admin123")
	if err != nil {
		return nil, err
	}

	officer, err := NewUser("officer", "Ali Raza", RoleOfficer, "officer123")
	if err != nil {
		return nil, err
	}

	return []User{admin, officer}, nil
}

// Claims identify the user behind a session token. The subject is the
// username.
type Claims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	users  map[string]User
	secret []byte
	ttl    time.Duration
}

func NewService(users []User, secret string, ttl time.Duration) *Service {
	s := &Service{
		users:  make(map[string]User, len(users)),
		secret: []byte(secret),
		ttl:    ttl,
	}

	for _, u := range users {
		s.users[u.Username] = u
	}

	return s
}

// Login checks the credentials and issues a signed session token.
func (s *Service) Login(username, password string) (string, *Claims, error) {
	u, ok := s.users[username]
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}

	return token, claims, nil
}

// Parse validates a session token and returns its claims.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}

		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

type ctxKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}
