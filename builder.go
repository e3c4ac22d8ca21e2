package sessionauth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/baxter-io/sessionauth/internal/flows"
	"github.com/baxter-io/sessionauth/jwt"
	"github.com/baxter-io/sessionauth/password"
	"github.com/baxter-io/sessionauth/refresh"
	"github.com/baxter-io/sessionauth/role"
	"github.com/baxter-io/sessionauth/store"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	accounts store.Accounts
	roles    store.Roles
	logger   *zap.Logger
	now      func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the refresh token store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the account persistence backend.
func (b *Builder) WithAccountStore(accounts store.Accounts) *Builder {
	b.accounts = accounts
	return b
}

// WithRoleStore sets the role and link persistence backend.
func (b *Builder) WithRoleStore(roles store.Roles) *Builder {
	b.roles = roles
	return b
}

// WithStore sets a backend that serves both accounts and roles.
func (b *Builder) WithStore(s interface {
	store.Accounts
	store.Roles
}) *Builder {
	b.accounts = s
	b.roles = s
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and dependencies and returns a ready
// Engine. A missing or short signing secret fails here.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.roles == nil {
		return nil, errors.New("role store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL: cfg.JWT.AccessTTL,
		Secret:    cloneBytes(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		Leeway:    cfg.JWT.Leeway,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	ph, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	dummyHash, err := ph.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		accounts:     b.accounts,
		roles:        b.roles,
		resolver:     role.NewResolver(b.roles),
		jwtManager:   jm,
		passwordHash: ph,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger,
		now:          now,
		dummyHash:    dummyHash,
	}
	engine.refreshStore = refresh.NewStore(b.redis, refresh.Options{
		KeyPrefix: cfg.Refresh.KeyPrefix,
		TTL:       cfg.Refresh.TTL,
		Now:       now,
	})
	engine.flowDeps = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	metricInc := func(id int) { e.metrics.Inc(MetricID(id)) }
	observe := func(id int, d time.Duration) { e.metrics.Observe(MetricID(id), d) }

	return flows.Deps{
		Login: flows.LoginDeps{
			FindAccount:         e.accounts.FindByUsername,
			VerifyPassword:      e.passwordHash.Verify,
			ResolveRoles:        e.resolver.ResolveByUser,
			IssueAccessToken:    e.jwtManager.CreateAccess,
			IssueRefreshToken:   e.refreshStore.Issue,
			DummyHash:           e.dummyHash,
			ClientIPFromContext: clientIPFromContext,
			Now:                 e.now,
			MetricInc:           metricInc,
			ObserveLatency:      observe,
			Logger:              e.logger.Named("login"),
			Metrics: flows.LoginMetrics{
				LoginSuccess:       int(MetricLoginSuccess),
				LoginFailure:       int(MetricLoginFailure),
				LoginLatency:       int(MetricLoginLatency),
				RefreshIssued:      int(MetricRefreshTokenIssued),
				RefreshIssueFailed: int(MetricRefreshTokenIssueFailure),
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				StoreUnavailable:   ErrStoreUnavailable,
				TokenIssue:         ErrTokenIssue,
			},
		},
		Register: flows.RegisterDeps{
			ExistsByUsername: e.accounts.ExistsByUsername,
			ResolveRoles:     e.resolver.ResolveByNames,
			HashPassword:     e.passwordHash.Hash,
			NewUserID:        uuid.New,
			SaveAccount:      e.accounts.Save,
			SaveLink:         e.roles.SaveLink,
			MetricInc:        metricInc,
			Logger:           e.logger.Named("register"),
			Metrics: flows.RegisterMetrics{
				RegisterSuccess:      int(MetricRegisterSuccess),
				RegisterDuplicate:    int(MetricRegisterDuplicate),
				RegisterRoleNotFound: int(MetricRegisterRoleNotFound),
				RegisterLinkFailure:  int(MetricRegisterLinkFailure),
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:   ErrEngineNotReady,
				AlreadyExists:    ErrAlreadyExists,
				RoleNotFound:     ErrRoleNotFound,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
		Refresh: flows.RefreshDeps{
			Rotate:           e.refreshStore.Rotate,
			IssueAccessToken: e.jwtManager.CreateAccess,
			Now:              e.now,
			MetricInc:        metricInc,
			ObserveLatency:   observe,
			Logger:           e.logger.Named("refresh"),
			Metrics: flows.RefreshMetrics{
				RefreshSuccess: int(MetricRefreshSuccess),
				RefreshFailure: int(MetricRefreshFailure),
				RefreshLatency: int(MetricRefreshLatency),
				RefreshIssued:  int(MetricRefreshTokenIssued),
			},
		},
		Account: flows.AccountDeps{
			FindByID: e.accounts.FindByID,
			Logger:   e.logger.Named("account"),
			Errors: flows.AccountErrors{
				EngineNotReady:   ErrEngineNotReady,
				AccountNotFound:  ErrAccountNotFound,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
	}
}
