package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shop_api/internal/validation"
	middleware "github.com/Skotchmaster/shop_api/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/shop_api/pkg/middleware/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

type Deps struct {
	CatalogHandler *CatalogHTTP
	OrderHandler   *OrderHTTP
	AuthHandler    *AuthHTTP
	HealthHandler  *HealthHTTP

	JWTSecret []byte
	// RequireSeller restricts catalog mutations to sellers and admins.
	RequireSeller bool

	// Optional per-IP limits; nil disables them.
	APILimiter  echo.MiddlewareFunc
	AuthLimiter echo.MiddlewareFunc
}

// NewEcho returns an echo instance with the shared middleware stack, the
// validator and the JSON error handler installed.
func NewEcho(logger *slog.Logger, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = ErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("500K"))
	if len(corsOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: corsOrigins}))
	} else {
		e.Use(echomw.CORS())
	}
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)

	authMW := middleware.NewBearerAuth(d.JWTSecret)

	authGroup := e.Group("/auth", limit(d.AuthLimiter)...)
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)

	products := e.Group("/products", limit(d.APILimiter)...)
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)

	writeMW := []echo.MiddlewareFunc{authMW.OptionalAuth}
	if d.RequireSeller {
		writeMW = []echo.MiddlewareFunc{authMW.RequireAuth, middleware.RequireRole(tokens.RoleSeller, tokens.RoleAdmin)}
	}
	writers := products.Group("", writeMW...)
	writers.POST("", d.CatalogHandler.CreateProduct)
	writers.PUT("/:id", d.CatalogHandler.UpdateProduct)
	writers.DELETE("/:id", d.CatalogHandler.DeleteProduct)

	orders := e.Group("/orders", append(limit(d.APILimiter), authMW.RequireAuth)...)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id", d.OrderHandler.UpdateOrder)
}

func limit(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
