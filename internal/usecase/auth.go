package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// AuthService handles signup, login, and token validation.
type AuthService struct {
	Users  domain.UserRepository
	Secret []byte
	TTL    time.Duration
}

// NewAuthService constructs an AuthService.
func NewAuthService(u domain.UserRepository, secret string, ttl time.Duration) AuthService {
	return AuthService{Users: u, Secret: []byte(secret), TTL: ttl}
}

// Claims is the JWT payload carried by session tokens.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Signup creates an account and returns the user with a fresh token.
func (s AuthService) Signup(ctx domain.Context, email, password, fullName, contact string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, "", fmt.Errorf("%w: email and password required", domain.ErrInvalidArgument)
	}
	if len(password) < 8 {
		return domain.User{}, "", fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidArgument)
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, "", fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, "", fmt.Errorf("op=auth.Signup: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("op=auth.Signup hash: %w", err)
	}
	u := domain.User{
		Email:         email,
		PasswordHash:  string(hash),
		FullName:      fullName,
		ContactNumber: contact,
		Role:          "student",
		CreatedAt:     time.Now().UTC(),
	}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("op=auth.Signup create: %w", err)
	}
	u.ID = id
	token, err := s.issueToken(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
func (s AuthService) Login(ctx domain.Context, email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
		}
		return domain.User{}, "", fmt.Errorf("op=auth.Login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	token, err := s.issueToken(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// ValidateToken parses and verifies a session token.
func (s AuthService) ValidateToken(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Claims{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return *claims, nil
}

func (s AuthService) issueToken(u domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("op=auth.issueToken: %w", err)
	}
	return signed, nil
}
