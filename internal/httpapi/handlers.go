package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	sessionauth "github.com/baxter-io/sessionauth"
)

const healthTimeout = 500 * time.Millisecond

type handlers struct {
	engine *sessionauth.Engine
	logger *zap.Logger
}

func (h *handlers) login(c echo.Context) error {
	ctx := c.Request().Context()
	l := h.logger.With(zap.String("handler", "auth_login"))

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if errs := validateCredentials(req.UserName, req.Password); !errs.empty() {
		return c.JSON(http.StatusBadRequest, errs)
	}

	res, err := h.engine.Login(ctx, req.UserName, req.Password)
	if err != nil {
		code := statusFor(err)
		l.Warn("login_failed", zap.Int("status", code), zap.Error(err))
		if code == http.StatusUnauthorized {
			return echo.NewHTTPError(code, "invalid username or password")
		}
		return echo.NewHTTPError(code).SetInternal(err)
	}

	l.Info("login_successful", zap.Int64("account_id", res.AccountID), zap.Bool("refresh_issued", res.RefreshToken != ""))
	return c.JSON(http.StatusOK, loginResponse{
		ID:           res.AccountID,
		UserName:     res.Username,
		UserID:       res.UserID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *handlers) register(c echo.Context) error {
	ctx := c.Request().Context()
	l := h.logger.With(zap.String("handler", "auth_register"))

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if errs := validateRegister(req); !errs.empty() {
		return c.JSON(http.StatusBadRequest, errs)
	}

	res, err := h.engine.Register(ctx, sessionauth.RegisterRequest{
		Username: req.UserName,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		code := statusFor(err)
		l.Warn("register_failed", zap.String("user", req.UserName), zap.Int("status", code), zap.Error(err))
		switch code {
		case http.StatusConflict, http.StatusNotFound:
			return echo.NewHTTPError(code, err.Error())
		}
		return echo.NewHTTPError(code).SetInternal(err)
	}

	l.Info("register_successful", zap.Int64("account_id", res.AccountID))
	return c.JSON(http.StatusCreated, registerResponse{
		ID:     res.AccountID,
		Name:   res.Username,
		UserID: res.UserID,
	})
}

func (h *handlers) refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := h.logger.With(zap.String("handler", "auth_refresh"))

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, fieldErrors{"refreshToken": msgRefreshRequired})
	}

	res, err := h.engine.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		code := statusFor(err)
		l.Warn("refresh_failed", zap.Int("status", code), zap.Error(err))
		if code == http.StatusUnauthorized {
			return echo.NewHTTPError(code, "invalid refresh token")
		}
		return echo.NewHTTPError(code).SetInternal(err)
	}

	return c.JSON(http.StatusOK, refreshResponse{
		RefreshToken: res.RefreshToken,
		AccessToken:  res.AccessToken,
	})
}

func (h *handlers) user(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	info, err := h.engine.Account(c.Request().Context(), id)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusNotFound {
			return echo.NewHTTPError(code, "user not found")
		}
		return echo.NewHTTPError(code).SetInternal(err)
	}

	return c.JSON(http.StatusOK, userResponse{ID: info.ID, UserName: info.Username})
}

func (h *handlers) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status := h.engine.Ping(ctx)
	if !status.Healthy() {
		body := map[string]string{"status": "unhealthy"}
		if status.RedisErr != nil {
			body["redis"] = status.RedisErr.Error()
		}
		if status.StoreErr != nil {
			body["store"] = status.StoreErr.Error()
		}
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":        "ok",
		"redis_latency": status.RedisLatency.String(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sessionauth.ErrInvalidCredentials),
		errors.Is(err, sessionauth.ErrInvalidSession),
		errors.Is(err, sessionauth.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, sessionauth.ErrPasswordTooLong):
		return http.StatusBadRequest
	case errors.Is(err, sessionauth.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, sessionauth.ErrRoleNotFound),
		errors.Is(err, sessionauth.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, sessionauth.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
