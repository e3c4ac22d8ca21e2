package flows

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/baxter-io/sessionauth/store"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	AccountID    int64
	Username     string
	UserID       string
	Roles        []string
	AccessToken  string
	RefreshToken string
	// RefreshDegraded is set when the refresh token could not be issued and
	// RefreshToken is therefore empty.
	RefreshDegraded bool
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess       int
	LoginFailure       int
	LoginLatency       int
	RefreshIssued      int
	RefreshIssueFailed int
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	StoreUnavailable   error
	TokenIssue         error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	FindAccount       func(context.Context, string) (*store.Account, error)
	VerifyPassword    func(plain, hash string) bool
	ResolveRoles      func(context.Context, int64) ([]string, error)
	IssueAccessToken  func(subject string, roles []string) (string, error)
	IssueRefreshToken func(ctx context.Context, username string, roles []string) (string, error)

	// DummyHash is verified against when the account does not exist so both
	// failure paths spend comparable time.
	DummyHash string

	ClientIPFromContext func(context.Context) string

	Now            func() time.Time
	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	Logger         *zap.Logger

	Metrics LoginMetrics
	Errors  LoginErrors
}

// RunLogin verifies username and password, resolves the account's roles and
// issues an access token plus a refresh token. Unknown username and wrong
// password return the same InvalidCredentials error. A refresh issue failure
// does not fail the login; the result carries an empty refresh token.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = noopObserve
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	log := loggerOrNop(deps.Logger)
	if ip := deps.ClientIPFromContext(ctx); ip != "" {
		log = log.With(zap.String("client_ip", ip))
	}
	if deps.FindAccount == nil ||
		deps.VerifyPassword == nil ||
		deps.ResolveRoles == nil ||
		deps.IssueAccessToken == nil ||
		deps.IssueRefreshToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Metrics.LoginLatency, deps.Now().Sub(start))
	}()

	acc, err := deps.FindAccount(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if deps.DummyHash != "" {
				_ = deps.VerifyPassword(password, deps.DummyHash)
			}
			deps.MetricInc(deps.Metrics.LoginFailure)
			log.Info("login rejected", zap.String("username", username), zap.String("reason", "account_not_found"))
			return nil, deps.Errors.InvalidCredentials
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		log.Error("login account lookup failed", zap.String("username", username), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}

	if !deps.VerifyPassword(password, acc.PasswordHash) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		log.Info("login rejected", zap.String("username", username), zap.String("reason", "password_mismatch"))
		return nil, deps.Errors.InvalidCredentials
	}

	roles, err := deps.ResolveRoles(ctx, acc.ID)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		log.Error("login role resolution failed", zap.Int64("account_id", acc.ID), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}

	access, err := deps.IssueAccessToken(acc.Username, roles)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		log.Error("login access token signing failed", zap.Int64("account_id", acc.ID), zap.Error(err))
		return nil, tokenIssueFailure(deps.Errors.TokenIssue, err)
	}

	result := &LoginResult{
		AccountID:   acc.ID,
		Username:    acc.Username,
		UserID:      acc.UserID.String(),
		Roles:       roles,
		AccessToken: access,
	}

	refresh, err := deps.IssueRefreshToken(ctx, acc.Username, roles)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshIssueFailed)
		log.Warn("refresh token not issued; returning access token only",
			zap.Int64("account_id", acc.ID), zap.Error(err))
		result.RefreshDegraded = true
	} else {
		deps.MetricInc(deps.Metrics.RefreshIssued)
		result.RefreshToken = refresh
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	log.Info("login succeeded",
		zap.Int64("account_id", acc.ID),
		zap.Strings("roles", roles),
		zap.Bool("refresh_issued", !result.RefreshDegraded))
	return result, nil
}
