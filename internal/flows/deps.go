package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Register RegisterDeps
	Refresh  RefreshDeps
	Account  AccountDeps
}

func noopMetricInc(int) {}

func noopObserve(int, time.Duration) {}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// storeFailure wraps a backend error with the host's unavailable sentinel.
// Context cancellation is passed through so callers can tell it apart.
func storeFailure(unavailable, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || unavailable == nil {
		return err
	}
	return fmt.Errorf("%w: %w", unavailable, err)
}

// tokenIssueFailure tags a signing failure with the host's token-issue
// sentinel.
func tokenIssueFailure(issue, err error) error {
	if issue == nil {
		return fmt.Errorf("issue access token: %w", err)
	}
	return fmt.Errorf("%w: %w", issue, err)
}
