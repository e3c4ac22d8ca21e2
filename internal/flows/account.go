package flows

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/baxter-io/sessionauth/store"
)

type AccountView struct {
	ID       int64
	Username string
	UserID   string
}

type AccountErrors struct {
	EngineNotReady   error
	AccountNotFound  error
	StoreUnavailable error
}

type AccountDeps struct {
	FindByID func(context.Context, int64) (*store.Account, error)
	Logger   *zap.Logger
	Errors   AccountErrors
}

// RunAccountLookup loads the public view of an account by its store id.
func RunAccountLookup(ctx context.Context, id int64, deps AccountDeps) (*AccountView, error) {
	if deps.FindByID == nil {
		return nil, deps.Errors.EngineNotReady
	}
	acc, err := deps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, deps.Errors.AccountNotFound
		}
		loggerOrNop(deps.Logger).Error("account lookup failed", zap.Int64("account_id", id), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}
	return &AccountView{ID: acc.ID, Username: acc.Username, UserID: acc.UserID.String()}, nil
}
