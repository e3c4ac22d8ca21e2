package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baxter-io/sessionauth/store"
)

type RegisterRequest struct {
	Username string
	Password string
	Roles    []string
}

type RegisterResult struct {
	AccountID int64
	Username  string
	UserID    string
	Roles     []string
}

type RegisterMetrics struct {
	RegisterSuccess      int
	RegisterDuplicate    int
	RegisterRoleNotFound int
	RegisterLinkFailure  int
}

type RegisterErrors struct {
	EngineNotReady   error
	AlreadyExists    error
	RoleNotFound     error
	StoreUnavailable error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	ExistsByUsername func(context.Context, string) (bool, error)
	ResolveRoles     func(context.Context, []string) ([]store.Role, error)
	HashPassword     func(string) (string, error)
	NewUserID        func() uuid.UUID
	SaveAccount      func(context.Context, *store.Account) error
	SaveLink         func(ctx context.Context, accountID, roleID int64) error

	MetricInc func(int)
	Logger    *zap.Logger

	Metrics RegisterMetrics
	Errors  RegisterErrors
}

// RunRegister creates an account with the requested roles. Every role name is
// resolved before anything is written, so an unknown role leaves no trace.
// Links are written concurrently after the account row and are not rolled
// back if one of them fails.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (*RegisterResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.NewUserID == nil {
		deps.NewUserID = uuid.New
	}
	log := loggerOrNop(deps.Logger)
	if deps.ExistsByUsername == nil ||
		deps.ResolveRoles == nil ||
		deps.HashPassword == nil ||
		deps.SaveAccount == nil ||
		deps.SaveLink == nil {
		return nil, deps.Errors.EngineNotReady
	}

	exists, err := deps.ExistsByUsername(ctx, req.Username)
	if err != nil {
		log.Error("register existence check failed", zap.String("username", req.Username), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}
	if exists {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		log.Info("register rejected", zap.String("username", req.Username), zap.String("reason", "already_exists"))
		return nil, deps.Errors.AlreadyExists
	}

	names := dedupe(req.Roles)
	roles, err := deps.ResolveRoles(ctx, names)
	if err != nil {
		if deps.Errors.RoleNotFound != nil && errors.Is(err, deps.Errors.RoleNotFound) {
			deps.MetricInc(deps.Metrics.RegisterRoleNotFound)
			log.Info("register rejected", zap.String("username", req.Username),
				zap.String("reason", "role_not_found"), zap.Error(err))
			return nil, err
		}
		log.Error("register role resolution failed", zap.String("username", req.Username), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &store.Account{
		UserID:       deps.NewUserID(),
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := deps.SaveAccount(ctx, acc); err != nil {
		if errors.Is(err, store.ErrConflict) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			log.Info("register rejected", zap.String("username", req.Username), zap.String("reason", "already_exists"))
			return nil, deps.Errors.AlreadyExists
		}
		log.Error("register account save failed", zap.String("username", req.Username), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range roles {
		roleID := r.ID
		g.Go(func() error {
			if err := deps.SaveLink(gctx, acc.ID, roleID); err != nil {
				return fmt.Errorf("link role %d: %w", roleID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		deps.MetricInc(deps.Metrics.RegisterLinkFailure)
		log.Error("register role links incomplete; account persisted",
			zap.Int64("account_id", acc.ID), zap.Error(err))
		return nil, storeFailure(deps.Errors.StoreUnavailable, err)
	}

	granted := make([]string, 0, len(roles))
	for _, r := range roles {
		granted = append(granted, r.Name)
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	log.Info("account registered",
		zap.Int64("account_id", acc.ID),
		zap.String("user_id", acc.UserID.String()),
		zap.Strings("roles", granted))

	return &RegisterResult{
		AccountID: acc.ID,
		Username:  acc.Username,
		UserID:    acc.UserID.String(),
		Roles:     granted,
	}, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
