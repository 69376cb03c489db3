package service

import (
	"context"
	"strings"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
)

// UserService is the administrative view of accounts. Callers are expected
// to hold the admin role.
type UserService struct {
	auth     *AuthService
	users    repository.UserStore
	sessions SessionStore
}

func NewUserService(auth *AuthService) *UserService {
	return &UserService{auth: auth, users: auth.users, sessions: auth.sessions}
}

type UserPatch struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Role      *entity.Role
}

func checkRole(role entity.Role) error {
	if role != entity.RoleUser && role != entity.RoleAdmin {
		return apperror.ErrInvalidInput.WithMessagef("unknown role %q", role)
	}
	return nil
}

// Create defaults to the user role.
func (s *UserService) Create(ctx context.Context, input RegisterInput, role entity.Role) (*entity.User, error) {
	if role == "" {
		role = entity.RoleUser
	}
	if err := checkRole(role); err != nil {
		return nil, err
	}
	return s.auth.CreateUser(ctx, input, role)
}

func (s *UserService) List(ctx context.Context, page repository.Page) (Page[entity.User], error) {
	page = page.Normalize()
	users, total, err := s.users.ListUsers(ctx, page)
	if err != nil {
		return Page[entity.User]{}, failf(err, "Error listing users")
	}
	return newPage(users, total, page.Page, page.Limit), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, failf(err, "Error getting user %s", id)
	}
	return user, nil
}

// Update signs the user out when their password or role changes, so the next
// refresh picks up the new credentials.
func (s *UserService) Update(ctx context.Context, id string, patch UserPatch) (*entity.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, failf(err, "Error getting user %s", id)
	}

	revoke := false
	if patch.Email != nil {
		user.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Role != nil && *patch.Role != user.Role {
		if err := checkRole(*patch.Role); err != nil {
			return nil, err
		}
		user.Role = *patch.Role
		revoke = true
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		revoke = true
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, failf(err, "Error updating user %s", id)
	}
	if revoke {
		s.signOut(ctx, id)
	}
	return user, nil
}

// Delete refuses to remove the caller's own account.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.UserID == id {
		return apperror.ErrForbidden.WithMessagef("you cannot delete your own account")
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return failf(err, "Error deleting user %s", id)
	}
	s.signOut(ctx, id)
	return nil
}

func (s *UserService) signOut(ctx context.Context, id string) {
	if err := s.sessions.DeleteRefreshToken(ctx, id); err != nil {
		logger.Error().Err(err).Msgf("Error deleting session of user %s", id)
	}
}
