package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	pkgdb "github.com/Skotchmaster/shop_api/pkg/db"
	"github.com/Skotchmaster/shop_api/pkg/logging"
)

type HealthHTTP struct {
	DB *gorm.DB
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := pkgdb.Ping(ctx, h.DB); err != nil {
		return fail(logging.FromContext(ctx), "readiness_failed", http.StatusServiceUnavailable, "database unavailable", err)
	}
	return c.NoContent(http.StatusOK)
}
