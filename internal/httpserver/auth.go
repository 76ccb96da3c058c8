package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/internal/validation"
	"github.com/Skotchmaster/shop_api/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return serviceError(l, "register_failed", err, "", "Failed to register user.")
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return serviceError(l, "register_failed", err, "", "Failed to register user.")
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return serviceError(l, "login_failed", err, "", "Failed to log in.")
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return serviceError(l, "login_failed", err, "", "Failed to log in.")
	}

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
		User:      res.User,
	})
}
