package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cimillas/eventapi/internal/app"
	"github.com/cimillas/eventapi/internal/auth"
	"github.com/cimillas/eventapi/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AccountService is the minimal interface needed for the auth endpoints.
type AccountService interface {
	SignUp(ctx context.Context, in app.SignUpInput) (domain.User, error)
	SignIn(ctx context.Context, email, password string) (app.SignInResult, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin User"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type signInResponse struct {
	User    userResponse `json:"user"`
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role.String()}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	if err := v.StructCtx(r.Context(), dst); err != nil {
		msg := "invalid request body"
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Tag() == "oneof" {
				writeError(w, http.StatusBadRequest, codeInvalidRole, domain.ErrInvalidRole.Error())
				return false
			}
			msg = fe.Field() + " is required"
		}
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, msg)
		return false
	}
	return true
}

// AuthHandlers groups the account endpoints around one validator instance.
type AuthHandlers struct {
	svc      AccountService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuthHandlers(svc AccountService, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{
		svc:      svc,
		validate: app.NewValidator(),
		logger:   logger,
	}
}

func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	user, err := h.svc.SignUp(r.Context(), app.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	res, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{
		User:    toUserResponse(res.User),
		Access:  res.Tokens.Access,
		Refresh: res.Tokens.Refresh,
	})
}

func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}
