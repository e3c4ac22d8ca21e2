package sessionauth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baxter-io/sessionauth/internal/flows"
	"github.com/baxter-io/sessionauth/jwt"
	"github.com/baxter-io/sessionauth/password"
	"github.com/baxter-io/sessionauth/refresh"
	"github.com/baxter-io/sessionauth/role"
	"github.com/baxter-io/sessionauth/store"
)

// Engine is the session service. It is built by [Builder.Build] and is safe
// for concurrent use.
type Engine struct {
	config       Config
	accounts     store.Accounts
	roles        store.Roles
	resolver     *role.Resolver
	refreshStore *refresh.Store
	jwtManager   *jwt.Manager
	passwordHash *password.Bcrypt
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time
	dummyHash    string
	flowDeps     flows.Deps
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.refreshStore != nil
}

// MetricsSnapshot returns a copy of the engine counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// Login authenticates username and password and returns an access token and a
// refresh token. An unknown username and a wrong password both return
// [ErrInvalidCredentials]. A signing failure returns [ErrTokenIssue]. If the
// refresh token cannot be stored the login still succeeds with an empty
// RefreshToken.
//
//	Performance: 1 bcrypt verification, 1 + N store reads (N = linked roles), 1 Redis SET.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunLogin(ctx, username, password, e.flowDeps.Login)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccountID:    res.AccountID,
		Username:     res.Username,
		UserID:       res.UserID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, nil
}

// Register creates an account linked to the named roles.
//
// Errors: [ErrAlreadyExists] for a taken username, a *[RoleNotFoundError]
// (matching [ErrRoleNotFound]) for the first unknown role, [ErrPasswordTooLong]
// for a password bcrypt cannot hash, [ErrStoreUnavailable] for backend failures. No account is written when a role is unknown. Role
// links are not rolled back if one of them fails after the account is saved.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunRegister(ctx, flows.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
	}, e.flowDeps.Register)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{
		AccountID: res.AccountID,
		Username:  res.Username,
		UserID:    res.UserID,
	}, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token and a
// new refresh token. The presented token is consumed whatever the outcome;
// absent, expired or unreadable tokens return [ErrInvalidSession].
//
//	Performance: 3 Redis commands (GET + DEL + SET), no database access.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res := flows.RunRefresh(ctx, refreshToken, e.flowDeps.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
		return &RefreshResult{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	case flows.RefreshFailureNotFound, flows.RefreshFailureExpired, flows.RefreshFailureCorrupt:
		return nil, ErrInvalidSession
	case flows.RefreshFailureIssueAccess, flows.RefreshFailureIssueRefresh:
		return nil, fmt.Errorf("%w: %w", ErrTokenIssue, res.Err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, res.Err)
	}
}

// ValidateAccess verifies an access token and returns its subject and roles.
// Validation is stateless; a token stays valid until exp even if the account's
// roles change.
func (e *Engine) ValidateAccess(ctx context.Context, token string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	res := &AuthResult{
		Subject: claims.Subject,
		Roles:   claims.Roles,
	}
	if claims.IssuedAt != nil {
		res.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res, nil
}

// Account returns the public view of the account with the given store id, or
// [ErrAccountNotFound].
func (e *Engine) Account(ctx context.Context, id int64) (*AccountInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	view, err := flows.RunAccountLookup(ctx, id, e.flowDeps.Account)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{ID: view.ID, Username: view.Username, UserID: view.UserID}, nil
}

// Ping checks Redis and, when the account store supports it, the relational
// store.
func (e *Engine) Ping(ctx context.Context) HealthStatus {
	if !e.ready() {
		return HealthStatus{RedisErr: ErrEngineNotReady, StoreErr: ErrEngineNotReady}
	}
	var h HealthStatus
	h.RedisLatency, h.RedisErr = e.refreshStore.Ping(ctx)
	if p, ok := e.accounts.(store.Pinger); ok {
		h.StoreErr = p.Ping(ctx)
	}
	return h
}

// AccessTTL reports the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.AccessTTL
}
