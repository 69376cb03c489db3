package api

import (
	"net/http"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/service"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "user"

// TokenParser is satisfied by *service.AuthService.
type TokenParser interface {
	ParseAccessToken(token string) (*service.Claims, error)
}

// JWT authenticates the bearer token and stores its claims on the context.
func JWT(tokens TokenParser) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return tokens.ParseAccessToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if appErr, ok := apperror.As(err); ok {
				return respondError(c, appErr)
			}
			return respondError(c, apperror.ErrInvalidToken.WithMessagef("missing or malformed bearer token"))
		},
	})
}

// RequireRole rejects callers whose role does not satisfy role. It must run after JWT.
func RequireRole(role entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := currentActor(c)
			if err != nil {
				return respondError(c, err)
			}
			if !entity.HasRole(role, actor.Role) {
				return respondError(c, apperror.ErrForbidden.WithMessagef("requires role %s", role))
			}
			return next(c)
		}
	}
}

func currentActor(c echo.Context) (service.Actor, error) {
	claims, ok := c.Get(claimsContextKey).(*service.Claims)
	if !ok || claims == nil {
		return service.Actor{}, apperror.ErrInvalidToken
	}
	return service.Actor{UserID: claims.Subject, Role: claims.Role}, nil
}

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Register creates a user account --> POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Login --> POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh swaps a refresh token for a new token pair --> POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	pair, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.auth.Logout(c.Request().Context(), actor.UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the caller's profile --> GET /users/me
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.auth.Me(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
