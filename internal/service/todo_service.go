package service

import (
	"context"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
)

type TodoService struct {
	todos repository.TodoStore
}

func NewTodoService(todos repository.TodoStore) *TodoService {
	return &TodoService{todos: todos}
}

type TodoInput struct {
	Title       string
	Description string
	Status      entity.TodoStatus
}

type TodoPatch struct {
	Title       *string
	Description *string
	Status      *entity.TodoStatus
}

func validTodoStatus(s entity.TodoStatus) bool {
	return s == entity.TodoStatusOpen || s == entity.TodoStatusInProgress || s == entity.TodoStatusDone
}

func (s *TodoService) Create(ctx context.Context, userID string, input TodoInput) (*entity.Todo, error) {
	created, err := s.CreateBulk(ctx, userID, []TodoInput{input})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// CreateBulk stores every todo or none of them.
func (s *TodoService) CreateBulk(ctx context.Context, userID string, inputs []TodoInput) ([]entity.Todo, error) {
	if len(inputs) == 0 {
		return nil, apperror.ErrInvalidInput.WithMessagef("at least one todo is required")
	}

	todos := make([]*entity.Todo, 0, len(inputs))
	for _, in := range inputs {
		status := in.Status
		if status == "" {
			status = entity.TodoStatusOpen
		}
		if !validTodoStatus(status) {
			return nil, apperror.ErrInvalidInput.WithMessagef("unknown todo status %q", status)
		}
		todos = append(todos, &entity.Todo{UserID: userID, Title: in.Title, Description: in.Description, Status: status})
	}

	if err := s.todos.CreateTodos(ctx, todos); err != nil {
		logger.Error().Err(err).Msgf("Error creating todos for user %s", userID)
		return nil, apperror.Internal(err)
	}

	out := make([]entity.Todo, 0, len(todos))
	for _, t := range todos {
		out = append(out, *t)
	}
	return out, nil
}

func (s *TodoService) List(ctx context.Context, userID string) ([]entity.Todo, error) {
	todos, err := s.todos.ListTodos(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing todos for user %s", userID)
		return nil, apperror.Internal(err)
	}
	return todos, nil
}

func (s *TodoService) Get(ctx context.Context, userID, id string) (*entity.Todo, error) {
	todo, err := s.todos.GetTodo(ctx, userID, id)
	if err != nil {
		return nil, s.fail(err, id)
	}
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, userID, id string, patch TodoPatch) (*entity.Todo, error) {
	todo, err := s.todos.GetTodo(ctx, userID, id)
	if err != nil {
		return nil, s.fail(err, id)
	}
	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Description != nil {
		todo.Description = *patch.Description
	}
	if patch.Status != nil {
		if !validTodoStatus(*patch.Status) {
			return nil, apperror.ErrInvalidInput.WithMessagef("unknown todo status %q", *patch.Status)
		}
		todo.Status = *patch.Status
	}
	if err := s.todos.UpdateTodo(ctx, todo); err != nil {
		return nil, s.fail(err, id)
	}
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	if err := s.todos.DeleteTodo(ctx, userID, id); err != nil {
		return s.fail(err, id)
	}
	return nil
}

func (s *TodoService) fail(err error, id string) error {
	if apperror.IsKnown(err) {
		return err
	}
	logger.Error().Err(err).Msgf("Error accessing todo %s", id)
	return apperror.Internal(err)
}
