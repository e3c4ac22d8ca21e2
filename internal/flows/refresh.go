package flows

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/baxter-io/sessionauth/refresh"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNotFound
	RefreshFailureExpired
	RefreshFailureCorrupt
	RefreshFailureUnavailable
	RefreshFailureIssueAccess
	RefreshFailureIssueRefresh
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureNotFound:
		return "not_found"
	case RefreshFailureExpired:
		return "expired"
	case RefreshFailureCorrupt:
		return "corrupt"
	case RefreshFailureUnavailable:
		return "unavailable"
	case RefreshFailureIssueAccess:
		return "issue_access"
	case RefreshFailureIssueRefresh:
		return "issue_refresh"
	default:
		return "unknown"
	}
}

var errRefreshNotConfigured = errors.New("refresh flow dependencies missing")

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Username     string
	Roles        []string
	AccessToken  string
	RefreshToken string
}

type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
	RefreshLatency int
	RefreshIssued  int
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Rotate           func(context.Context, string, refresh.MintFunc) (*refresh.Rotation, error)
	IssueAccessToken func(subject string, roles []string) (string, error)

	Now            func() time.Time
	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	Logger         *zap.Logger

	Metrics RefreshMetrics
}

// RunRefresh consumes the presented refresh token and returns a new token
// pair derived from the stored record. The presented token is dead after this
// call whatever the outcome.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = noopObserve
	}
	log := loggerOrNop(deps.Logger)
	if deps.Rotate == nil || deps.IssueAccessToken == nil {
		return RefreshResult{Failure: RefreshFailureUnavailable, Err: errRefreshNotConfigured}
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Metrics.RefreshLatency, deps.Now().Sub(start))
	}()

	rot, err := deps.Rotate(ctx, token, deps.IssueAccessToken)
	if err != nil {
		kind := classifyRefreshError(err)
		deps.MetricInc(deps.Metrics.RefreshFailure)
		if kind == RefreshFailureUnavailable || kind == RefreshFailureIssueAccess || kind == RefreshFailureIssueRefresh {
			log.Error("refresh rotation failed", zap.Stringer("reason", kind), zap.Error(err))
		} else {
			log.Info("refresh rejected", zap.Stringer("reason", kind))
		}
		return RefreshResult{Failure: kind, Err: err}
	}

	deps.MetricInc(deps.Metrics.RefreshIssued)
	deps.MetricInc(deps.Metrics.RefreshSuccess)
	log.Info("refresh token rotated", zap.String("username", rot.Record.Username))

	return RefreshResult{
		Failure:      RefreshFailureNone,
		Username:     rot.Record.Username,
		Roles:        rot.Record.Roles,
		AccessToken:  rot.AccessToken,
		RefreshToken: rot.RefreshToken,
	}
}

func classifyRefreshError(err error) RefreshFailureKind {
	switch {
	case errors.Is(err, refresh.ErrNotFound):
		return RefreshFailureNotFound
	case errors.Is(err, refresh.ErrExpired):
		return RefreshFailureExpired
	case errors.Is(err, refresh.ErrRecordCorrupt):
		return RefreshFailureCorrupt
	case errors.Is(err, refresh.ErrMintFailed):
		return RefreshFailureIssueAccess
	case errors.Is(err, refresh.ErrReissueFailed):
		return RefreshFailureIssueRefresh
	default:
		return RefreshFailureUnavailable
	}
}
