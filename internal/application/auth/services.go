package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/rightsdesk/internal/application"
	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainusers "github.com/bryanwahyu/rightsdesk/internal/domain/users"
)

var (
	ErrUserExists         = domain.NewClientError(domain.ErrInvalidInput, "User already exists")
	ErrInvalidCredentials = domain.NewClientError(domain.ErrUnauthorized, "Invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
)

// bcrypt only looks at the first 72 bytes and refuses anything longer
const MaxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service implements register / login / profile and token handling.
// Safe for concurrent use.
type Service struct {
	Users  domainusers.Repository
	Secret []byte
	TTL    time.Duration
	Clock  application.Clock
	Log    *zap.Logger
}

type RegisterCommand struct {
	Email    string
	Password string
	Name     string
}

type LoginCommand struct {
	Email    string
	Password string
}

// Result is what register and login hand back to the client.
type Result struct {
	Token string             `json:"token"`
	User  *domainusers.User `json:"user"`
}

// Claims isi token JWT
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (Result, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return Result{}, domain.NewClientError(domain.ErrInvalidInput, "Email and password are required")
	}
	if !emailPattern.MatchString(email) {
		return Result{}, domain.NewClientError(domain.ErrInvalidInput, "Invalid email format")
	}
	if len(cmd.Password) > MaxPasswordBytes {
		return Result{}, domain.NewClientError(domain.ErrInvalidInput, "Password must be at most %d bytes", MaxPasswordBytes)
	}

	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return Result{}, ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := s.now()
	u := &domainusers.User{
		ID:           domainusers.UserID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domainusers.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		// race with a concurrent register of the same email
		if errors.Is(err, domain.ErrConflict) {
			return Result{}, ErrUserExists
		}
		return Result{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return Result{}, err
	}
	s.logger().Info("user registered", zap.String("user_id", string(u.ID)))
	return Result{Token: token, User: u}, nil
}

func (s *Service) Login(ctx context.Context, cmd LoginCommand) (Result, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return Result{}, domain.NewClientError(domain.ErrInvalidInput, "Email and password are required")
	}

	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cmd.Password)) != nil {
		return Result{}, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return Result{}, err
	}
	return Result{Token: token, User: u}, nil
}

func (s *Service) Profile(ctx context.Context, id domainusers.UserID) (*domainusers.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewClientError(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// IssueToken signs an HS256 token for u valid for TTL.
func (s *Service) IssueToken(u *domainusers.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify implements middleware.TokenVerifier.
func (s *Service) Verify(token string) (*domainusers.Principal, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &domainusers.Principal{
		UserID: domainusers.UserID(claims.Subject),
		Email:  claims.Email,
		Role:   domainusers.Role(claims.Role),
	}, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
