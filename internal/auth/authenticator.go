package auth

import (
	"context"
	"errors"

	"github.com/cimillas/eventapi/internal/domain"
)

type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
}

// Authenticator turns an Authorization header into a Principal. The role is
// read from storage on every call so role changes apply to live tokens.
type Authenticator struct {
	tokens *Tokens
	users  UserLookup
}

func NewAuthenticator(tokens *Tokens, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

func (a *Authenticator) Authenticate(ctx context.Context, header string) (domain.Principal, error) {
	raw, err := ExtractBearer(header)
	if err != nil {
		return domain.Principal{}, err
	}
	userID, err := a.tokens.ParseAccess(raw)
	if err != nil {
		return domain.Principal{}, err
	}
	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return domain.Principal{}, ErrTokenInvalid
		}
		return domain.Principal{}, err
	}
	return user.Principal(), nil
}
