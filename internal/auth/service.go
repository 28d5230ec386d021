package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

// UserStore persists accounts. CreateUser returns storage.ErrDuplicate for a
// taken email; GetUserByEmail returns storage.ErrNotFound for an unknown one.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Identity is an authenticated principal.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Service implements sign-up, login and token verification.
type Service struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a Service signing tokens with secret.
func NewService(users UserStore, secret string, tokenTTL time.Duration, log logrus.FieldLogger) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
	}
}

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, apperr.New(apperr.CodeInvalidInput, "Email and password are required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.CodeInternal, "Could not register user", err)
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return models.User{}, apperr.New(apperr.CodeConflict, "Email already exists")
		}
		return models.User{}, apperr.Wrap(apperr.CodeInternal, "Could not register user", err)
	}

	s.log.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login checks the credentials and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.New(apperr.CodeInvalidInput, "Invalid credentials")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "Could not log in", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", apperr.New(apperr.CodeInvalidInput, "Invalid credentials")
	}

	token, err := GenerateToken(u.ID, u.Email, s.secret, s.tokenTTL)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "Could not log in", err)
	}
	return token, nil
}

// Verify resolves a bearer token to an identity.
func (s *Service) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.New(apperr.CodeUnauthorized, "No token")
	}
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return Identity{}, apperr.New(apperr.CodeUnauthorized, "Invalid token")
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
