package api

import (
	"net/http"

	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

// UserHandler serves the admin-only account endpoints.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	registerRequest
	Role string `json:"role" validate:"omitempty,oneof=user admin"`
}

type patchUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Role      *string `json:"role" validate:"omitempty,oneof=user admin"`
}

type listUsersRequest struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// Create --> POST /users
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Create(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, entity.Role(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// List --> GET /users?page=&limit=
func (h *UserHandler) List(c echo.Context) error {
	var req listUsersRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	page, err := h.users.List(c.Request().Context(), repository.Page{Page: req.Page, Limit: req.Limit})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Update(c echo.Context) error {
	var req patchUserRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	patch := service.UserPatch{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Role != nil {
		role := entity.Role(*req.Role)
		patch.Role = &role
	}
	user, err := h.users.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// Delete refuses accounts that still own orders --> DELETE /users/:id
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.users.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted"})
}
