package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// Claims are carried by both access and refresh tokens. Subject is the user id.
type Claims struct {
	Email string      `json:"email"`
	Role  entity.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthResult struct {
	User *entity.User `json:"user"`
	TokenPair
}

type TokenSettings struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

type AuthService struct {
	users    repository.UserStore
	sessions SessionStore
	tokens   TokenSettings
	now      func() time.Time
}

func NewAuthService(users repository.UserStore, sessions SessionStore, tokens TokenSettings) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens, now: time.Now}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// CreateUser hashes the password and stores the user with the given role.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput, role entity.Role) (*entity.User, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if apperror.IsKnown(err) {
			return nil, err
		}
		logger.Error().Err(err).Msg("Error creating user")
		return nil, apperror.Internal(err)
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return "", apperror.Internal(err)
	}
	return string(hash), nil
}

// Register always creates a regular user and logs them in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, input, entity.RoleUser)
	if err != nil {
		return nil, err
	}
	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		logger.Error().Err(err).Msg("Error getting user by email")
		return nil, apperror.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

// Refresh exchanges the user's current refresh token for a new pair. Older
// refresh tokens stop working once a newer one is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, s.tokens.RefreshSecret)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	stored, err := s.sessions.RefreshToken(ctx, claims.Subject)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reading session of user %s", claims.Subject)
		return nil, apperror.Internal(err)
	}
	if stored == "" || stored != refreshToken {
		return nil, apperror.ErrInvalidToken.WithMessagef("refresh token was revoked")
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil, apperror.ErrInvalidToken
		}
		return nil, apperror.Internal(err)
	}
	return s.issue(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteRefreshToken(ctx, userID); err != nil {
		logger.Error().Err(err).Msgf("Error deleting session of user %s", userID)
		return apperror.Internal(err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if apperror.IsKnown(err) {
			return nil, err
		}
		return nil, apperror.Internal(err)
	}
	return user, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*Claims, error) {
	claims, err := s.parse(token, s.tokens.AccessSecret)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *entity.User) (*TokenPair, error) {
	access, err := s.sign(user, s.tokens.AccessSecret, s.tokens.AccessTTL)
	if err != nil {
		logger.Error().Err(err).Msg("Error signing access token")
		return nil, apperror.Internal(err)
	}
	refresh, err := s.sign(user, s.tokens.RefreshSecret, s.tokens.RefreshTTL)
	if err != nil {
		logger.Error().Err(err).Msg("Error signing refresh token")
		return nil, apperror.Internal(err)
	}

	if err := s.sessions.SaveRefreshToken(ctx, user.ID, refresh, s.tokens.RefreshTTL); err != nil {
		logger.Error().Err(err).Msgf("Error storing session of user %s", user.ID)
		return nil, apperror.Internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) sign(user *entity.User, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *AuthService) parse(token, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
