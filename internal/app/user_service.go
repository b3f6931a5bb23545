package app

import (
	"context"
	"errors"
	"strings"

	"github.com/cimillas/eventapi/internal/auth"
	"github.com/cimillas/eventapi/internal/clock"
	"github.com/cimillas/eventapi/internal/domain"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
}

// TokenIssuer mints and reads the bearer tokens handed out at sign-in.
type TokenIssuer interface {
	Issue(userID string) (auth.TokenPair, error)
	ParseRefresh(raw string) (string, error)
}

type UserService struct {
	repo       UserRepository
	tokens     TokenIssuer
	clock      clock.Clock
	validate   *validator.Validate
	bcryptCost int
}

type UserServiceOption func(*UserService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) UserServiceOption {
	return func(s *UserService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func NewUserService(repo UserRepository, tokens TokenIssuer, clk clock.Clock, opts ...UserServiceOption) *UserService {
	svc := &UserService{
		repo:       repo,
		tokens:     tokens,
		clock:      clk,
		validate:   NewValidator(),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SignUpInput struct {
	Email    string
	Password string
	// Role defaults to Admin when empty.
	Role string
}

func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (domain.User, error) {
	email := normalizeEmail(in.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if in.Password == "" {
		return domain.User{}, domain.ErrPasswordRequired
	}
	roleName := in.Role
	if roleName == "" {
		roleName = domain.RoleAdmin.String()
	}
	role, err := domain.ParseRole(roleName)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type SignInResult struct {
	User   domain.User
	Tokens auth.TokenPair
}

func (s *UserService) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return SignInResult{}, domain.ErrInvalidCredentials
		}
		return SignInResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return SignInResult{}, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair, as long as the user still exists.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return auth.TokenPair{}, auth.ErrTokenInvalid
		}
		return auth.TokenPair{}, err
	}
	return s.tokens.Issue(userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
