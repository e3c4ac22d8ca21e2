package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	sessionauth "github.com/baxter-io/sessionauth"
	"github.com/baxter-io/sessionauth/middleware"
)

const DefaultProfileRole = "ROLE_USER"

type Deps struct {
	Engine *sessionauth.Engine
	Logger *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// ProfileRole guards GET /api/user/:id. Empty means DefaultProfileRole.
	ProfileRole string
}

// New returns an echo instance with every route registered.
func New(d Deps) *echo.Echo {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	role := d.ProfileRole
	if role == "" {
		role = DefaultProfileRole
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(ecM.Recover())
	e.Use(ecM.RequestID())
	e.Use(requestLogger(logger))
	e.Use(clientIP)

	h := &handlers{engine: d.Engine, logger: logger}

	e.GET("/healthz", h.health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	auth := e.Group("/api/auth")
	auth.POST("/login", h.login)
	auth.POST("/register", h.register)
	auth.POST("/refresh", h.refresh)

	e.GET("/api/user/:id", h.user,
		echo.WrapMiddleware(middleware.Guard(d.Engine)),
		echo.WrapMiddleware(middleware.RequireRole(role)),
	)

	return e
}

func clientIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		c.SetRequest(req.WithContext(sessionauth.WithClientIP(req.Context(), c.RealIP())))
		return next(c)
	}
}

func requestLogger(l *zap.Logger) echo.MiddlewareFunc {
	return ecM.RequestLoggerWithConfig(ecM.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v ecM.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				l.Error("request", fields...)
				return nil
			}
			l.Info("request", fields...)
			return nil
		},
	})
}

// errorHandler renders every error as {"error": msg}. Internal details stay
// in the log.
func errorHandler(l *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
			if he.Internal != nil {
				l.Error("internal error", zap.Int("status", code), zap.Error(he.Internal))
			}
		} else {
			l.Error("unhandled error", zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}
