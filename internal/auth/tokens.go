package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cimillas/eventapi/internal/clock"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("authentication token not found")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

type TokenPair struct {
	Access  string
	Refresh string
}

type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret     []byte
	clock      clock.Clock
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type TokensOption func(*Tokens)

func WithAccessTTL(d time.Duration) TokensOption {
	return func(t *Tokens) {
		if d > 0 {
			t.accessTTL = d
		}
	}
}

func WithRefreshTTL(d time.Duration) TokensOption {
	return func(t *Tokens) {
		if d > 0 {
			t.refreshTTL = d
		}
	}
}

func NewTokens(secret string, clk clock.Clock, opts ...TokensOption) *Tokens {
	t := &Tokens{
		secret:     []byte(secret),
		clock:      clk,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tokens) Issue(userID string) (TokenPair, error) {
	access, err := t.sign(userID, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(userID, tokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccess returns the user id of a valid access token.
func (t *Tokens) ParseAccess(raw string) (string, error) {
	return t.parse(raw, tokenTypeAccess)
}

// ParseRefresh returns the user id of a valid refresh token.
func (t *Tokens) ParseRefresh(raw string) (string, error) {
	return t.parse(raw, tokenTypeRefresh)
}

func (t *Tokens) sign(userID, tokenType string, ttl time.Duration) (string, error) {
	now := t.clock.Now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (t *Tokens) parse(raw, tokenType string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if claims.TokenType != tokenType || claims.UserID == "" {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrNoToken
	}
	return parts[1], nil
}
