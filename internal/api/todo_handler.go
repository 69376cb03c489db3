package api

import (
	"net/http"

	"commerce-service/internal/entity"
	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

type TodoHandler struct {
	todos *service.TodoService
}

func NewTodoHandler(todos *service.TodoService) *TodoHandler {
	return &TodoHandler{todos: todos}
}

type todoRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS DONE"`
}

func (r todoRequest) input() service.TodoInput {
	return service.TodoInput{Title: r.Title, Description: r.Description, Status: entity.TodoStatus(r.Status)}
}

type bulkTodoRequest struct {
	Todos []todoRequest `json:"todos" validate:"required,min=1,max=100,dive"`
}

type patchTodoRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS DONE"`
}

// Create --> POST /todos
func (h *TodoHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req todoRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	todo, err := h.todos.Create(c.Request().Context(), actor.UserID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, todo)
}

// CreateBulk stores all todos or none --> POST /todos/bulk
func (h *TodoHandler) CreateBulk(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req bulkTodoRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	inputs := make([]service.TodoInput, 0, len(req.Todos))
	for _, t := range req.Todos {
		inputs = append(inputs, t.input())
	}
	todos, err := h.todos.CreateBulk(c.Request().Context(), actor.UserID, inputs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, todos)
}

func (h *TodoHandler) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	todos, err := h.todos.List(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	todo, err := h.todos.Get(c.Request().Context(), actor.UserID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Update(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req patchTodoRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	patch := service.TodoPatch{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status := entity.TodoStatus(*req.Status)
		patch.Status = &status
	}
	todo, err := h.todos.Update(c.Request().Context(), actor.UserID, c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Delete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.todos.Delete(c.Request().Context(), actor.UserID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "todo deleted"})
}
