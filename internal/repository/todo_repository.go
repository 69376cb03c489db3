package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/google/uuid"
)

type TodoRepository struct {
	db DBTX
}

func NewTodoRepository(db DBTX) *TodoRepository {
	return &TodoRepository{db: db}
}

const todoColumns = `id, user_id, title, description, status, created_at, updated_at`

// CreateTodos inserts all todos with one batch statement.
func (r *TodoRepository) CreateTodos(ctx context.Context, todos []*entity.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	query := `INSERT INTO todos (` + todoColumns + `) VALUES `
	var values []interface{}
	now := time.Now().UTC()
	for _, todo := range todos {
		if todo.ID == "" {
			todo.ID = uuid.NewString()
		}
		todo.CreatedAt, todo.UpdatedAt = now, now
		query += "(?, ?, ?, ?, ?, ?, ?),"
		values = append(values, todo.ID, todo.UserID, todo.Title, todo.Description, todo.Status, todo.CreatedAt, todo.UpdatedAt)
	}
	query = query[:len(query)-1]

	_, err := r.db.ExecContext(ctx, query, values...)
	return err
}

func scanTodo(row interface{ Scan(...interface{}) error }) (*entity.Todo, error) {
	t := &entity.Todo{}
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TodoRepository) GetTodo(ctx context.Context, userID, id string) (*entity.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = ? AND user_id = ?`
	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrTodoNotFound.WithMessagef("todo with id %s not found", id)
	}
	return todo, err
}

func (r *TodoRepository) ListTodos(ctx context.Context, userID string) ([]entity.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []entity.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func (r *TodoRepository) UpdateTodo(ctx context.Context, todo *entity.Todo) error {
	todo.UpdatedAt = time.Now().UTC()
	query := `UPDATE todos SET title = ?, description = ?, status = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, query, todo.Title, todo.Description, todo.Status, todo.UpdatedAt, todo.ID, todo.UserID)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrTodoNotFound.WithMessagef("todo with id %s not found", todo.ID))
}

func (r *TodoRepository) DeleteTodo(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrTodoNotFound.WithMessagef("todo with id %s not found", id))
}
