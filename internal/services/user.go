package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cbr-records/apiserver/internal/store"
	"github.com/cbr-records/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// ErrInvalidCredentials covers both unknown-username and wrong-password so
// responses never reveal which of the two failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrPasswordTooShort rejects new passwords under six characters.
var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

// UserRepository defines persistence operations for the admin account.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Count(ctx context.Context) (int, error)
}

// UserService encapsulates the credential lifecycle.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// CreateAdmin hashes the password and persists a new account. Returns
// store.ErrDuplicate when the username is taken. The returned user never
// carries the plaintext.
func (s *UserService) CreateAdmin(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, &ValidationError{Message: "username and password are required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// VerifyCredentials resolves a username/password pair to the stored
// identity, or fails with ErrInvalidCredentials.
func (s *UserService) VerifyCredentials(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword verifies the old password and persists a new hash.
func (s *UserService) ChangePassword(ctx context.Context, id int, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Count reports how many accounts exist.
func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
