package service

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/pkg/hash"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Issuer *tokens.Issuer
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	pwHash, err := hash.HashPassword(req.Password)
	if errors.Is(err, hash.ErrPasswordTooLong) {
		l.Warn("register_error", "status", 400, "reason", "password too long")
		return nil, clientErr(ErrValidation, "Password must be at most 72 bytes long.")
	}
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		Name:         req.Name,
		Address:      req.Address,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, clientErr(ErrConflict, "User with this email already exists.")
		}
		return nil, storeErr(err)
	}
	return &user, nil
}

// Login answers wrong email and wrong password with the same error.
func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")
	denied := clientErr(ErrUnauthenticated, "Authentication failed.")

	user, err := s.Repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, denied
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, denied
	}

	token, exp, err := s.Issuer.Issue(tokens.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: *user}, nil
}
