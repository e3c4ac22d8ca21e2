package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/baxter-io/sessionauth/refresh"
	"github.com/baxter-io/sessionauth/role"
	"github.com/baxter-io/sessionauth/store"
	"github.com/baxter-io/sessionauth/store/memory"
)

var (
	errNotReady     = errors.New("not ready")
	errInvalidCreds = errors.New("invalid credentials")
	errExists       = errors.New("already exists")
	errUnavailable  = errors.New("unavailable")
	errNoAccount    = errors.New("no account")
	errTokenIssue   = errors.New("token issue")
)

type counter struct {
	mu sync.Mutex
	n  map[int]int
}

func (c *counter) inc(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[int]int{}
	}
	c.n[id]++
}

func (c *counter) get(id int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[id]
}

func plainVerify(plain, hash string) bool { return "hashed:"+plain == hash }

func loginDeps(mem *memory.Store, c *counter, logger *zap.Logger) LoginDeps {
	return LoginDeps{
		FindAccount:    mem.FindByUsername,
		VerifyPassword: plainVerify,
		ResolveRoles:   role.NewResolver(mem).ResolveByUser,
		IssueAccessToken: func(subject string, roles []string) (string, error) {
			return "at:" + subject + ":" + strings.Join(roles, ","), nil
		},
		IssueRefreshToken: func(_ context.Context, username string, _ []string) (string, error) {
			return "rt:" + username, nil
		},
		MetricInc: c.inc,
		Logger:    logger,
		Metrics:   LoginMetrics{LoginSuccess: 1, LoginFailure: 2, RefreshIssued: 3, RefreshIssueFailed: 4},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalidCreds,
			StoreUnavailable:   errUnavailable,
			TokenIssue:         errTokenIssue,
		},
	}
}

func seedAccount(t *testing.T, mem *memory.Store, username, password string, roleIDs ...int64) *store.Account {
	t.Helper()
	acc := &store.Account{UserID: uuid.New(), Username: username, PasswordHash: "hashed:" + password}
	if err := mem.Save(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	for _, id := range roleIDs {
		if err := mem.SaveLink(context.Background(), acc.ID, id); err != nil {
			t.Fatalf("seed link: %v", err)
		}
	}
	return acc
}

func TestRunLoginSuccess(t *testing.T) {
	mem := memory.New("ROLE_USER", "ROLE_ADMIN")
	acc := seedAccount(t, mem, "alice", "pw", 2, 1)
	c := &counter{}

	res, err := RunLogin(context.Background(), "alice", "pw", loginDeps(mem, c, nil))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken != "at:alice:ROLE_ADMIN,ROLE_USER" {
		t.Fatalf("unexpected access token %q", res.AccessToken)
	}
	if res.RefreshToken != "rt:alice" || res.RefreshDegraded {
		t.Fatalf("unexpected refresh %q degraded=%v", res.RefreshToken, res.RefreshDegraded)
	}
	if res.AccountID != acc.ID || res.UserID != acc.UserID.String() {
		t.Fatalf("unexpected identity %+v", res)
	}
	if c.get(1) != 1 || c.get(3) != 1 {
		t.Fatalf("expected success and issued metrics, got %v", c.n)
	}
}

func TestRunLoginFailuresAreIndistinguishable(t *testing.T) {
	mem := memory.New("ROLE_USER")
	seedAccount(t, mem, "alice", "pw", 1)
	core, logs := observer.New(zap.InfoLevel)
	c := &counter{}
	deps := loginDeps(mem, c, zap.New(core))

	var dummyChecked bool
	verify := deps.VerifyPassword
	deps.DummyHash = "dummy"
	deps.VerifyPassword = func(plain, hash string) bool {
		if hash == "dummy" {
			dummyChecked = true
		}
		return verify(plain, hash)
	}

	_, errUnknown := RunLogin(context.Background(), "ghost", "pw", deps)
	_, errWrong := RunLogin(context.Background(), "alice", "nope", deps)
	if errUnknown != errInvalidCreds || errWrong != errInvalidCreds {
		t.Fatalf("expected identical InvalidCredentials, got %v / %v", errUnknown, errWrong)
	}
	if !dummyChecked {
		t.Fatal("expected dummy hash verification for unknown account")
	}
	if c.get(2) != 2 {
		t.Fatalf("expected two failures, got %d", c.get(2))
	}

	reasons := map[string]bool{}
	for _, entry := range logs.FilterMessage("login rejected").All() {
		reasons[entry.ContextMap()["reason"].(string)] = true
	}
	if !reasons["account_not_found"] || !reasons["password_mismatch"] {
		t.Fatalf("expected both reasons logged, got %v", reasons)
	}
}

func TestRunLoginRefreshDegraded(t *testing.T) {
	mem := memory.New("ROLE_USER")
	seedAccount(t, mem, "alice", "pw", 1)
	c := &counter{}
	deps := loginDeps(mem, c, nil)
	deps.IssueRefreshToken = func(context.Context, string, []string) (string, error) {
		return "", refresh.ErrRedisUnavailable
	}

	res, err := RunLogin(context.Background(), "alice", "pw", deps)
	if err != nil {
		t.Fatalf("login must succeed without refresh token: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken != "" || !res.RefreshDegraded {
		t.Fatalf("unexpected degraded result %+v", res)
	}
	if c.get(4) != 1 || c.get(1) != 1 {
		t.Fatalf("expected issue-failure and success metrics, got %v", c.n)
	}
}

func TestRunLoginStoreFailure(t *testing.T) {
	mem := memory.New()
	deps := loginDeps(mem, &counter{}, nil)
	deps.FindAccount = func(context.Context, string) (*store.Account, error) {
		return nil, fmt.Errorf("%w: connection refused", store.ErrUnavailable)
	}

	_, err := RunLogin(context.Background(), "alice", "pw", deps)
	if !errors.Is(err, errUnavailable) || !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected wrapped unavailable, got %v", err)
	}
}

func TestRunLoginAccessSigningFailure(t *testing.T) {
	mem := memory.New("ROLE_USER")
	seedAccount(t, mem, "alice", "pw", 1)
	c := &counter{}
	deps := loginDeps(mem, c, nil)
	signErr := errors.New("sign: key unavailable")
	deps.IssueAccessToken = func(string, []string) (string, error) { return "", signErr }
	var refreshCalled bool
	deps.IssueRefreshToken = func(context.Context, string, []string) (string, error) {
		refreshCalled = true
		return "rt", nil
	}

	_, err := RunLogin(context.Background(), "alice", "pw", deps)
	if !errors.Is(err, errTokenIssue) || !errors.Is(err, signErr) {
		t.Fatalf("expected token issue error wrapping cause, got %v", err)
	}
	if refreshCalled {
		t.Fatal("refresh token must not be issued without an access token")
	}
	if c.get(2) != 1 {
		t.Fatalf("expected failure metric, got %v", c.n)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	_, err := RunLogin(context.Background(), "a", "b", LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}})
	if err != errNotReady {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func registerDeps(mem *memory.Store, c *counter) RegisterDeps {
	return RegisterDeps{
		ExistsByUsername: mem.ExistsByUsername,
		ResolveRoles:     role.NewResolver(mem).ResolveByNames,
		HashPassword:     func(p string) (string, error) { return "hashed:" + p, nil },
		SaveAccount:      mem.Save,
		SaveLink:         mem.SaveLink,
		MetricInc:        c.inc,
		Metrics:          RegisterMetrics{RegisterSuccess: 1, RegisterDuplicate: 2, RegisterRoleNotFound: 3, RegisterLinkFailure: 4},
		Errors: RegisterErrors{
			EngineNotReady:   errNotReady,
			AlreadyExists:    errExists,
			RoleNotFound:     role.ErrNotFound,
			StoreUnavailable: errUnavailable,
		},
	}
}

func TestRunRegisterSuccess(t *testing.T) {
	mem := memory.New("ROLE_USER", "ROLE_ADMIN")
	c := &counter{}
	fixed := uuid.MustParse("6f1c1c1e-8f64-4b7b-9a0b-1f0e9b0f7a11")
	deps := registerDeps(mem, c)
	deps.NewUserID = func() uuid.UUID { return fixed }

	res, err := RunRegister(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "pw",
		Roles:    []string{"ROLE_USER", "ROLE_ADMIN", "ROLE_USER"},
	}, deps)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.UserID != fixed.String() || res.Username != "alice" || res.AccountID == 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	ids, _ := mem.FindRoleIDsByAccount(context.Background(), res.AccountID)
	if len(ids) != 2 {
		t.Fatalf("expected two links after dedupe, got %v", ids)
	}
	acc, _ := mem.FindByUsername(context.Background(), "alice")
	if acc.PasswordHash != "hashed:pw" {
		t.Fatalf("password not hashed: %q", acc.PasswordHash)
	}
	if c.get(1) != 1 {
		t.Fatalf("expected success metric")
	}
}

func TestRunRegisterHashFailurePersistsNothing(t *testing.T) {
	mem := memory.New("ROLE_USER")
	deps := registerDeps(mem, &counter{})
	tooLong := errors.New("password too long")
	deps.HashPassword = func(string) (string, error) { return "", tooLong }

	_, err := RunRegister(context.Background(), RegisterRequest{
		Username: "alice",
		Password: strings.Repeat("p", 73),
		Roles:    []string{"ROLE_USER"},
	}, deps)
	if !errors.Is(err, tooLong) {
		t.Fatalf("expected hash error to be preserved, got %v", err)
	}
	if exists, _ := mem.ExistsByUsername(context.Background(), "alice"); exists {
		t.Fatal("account must not be saved when hashing fails")
	}
}

func TestRunRegisterDuplicateDoesNotMutate(t *testing.T) {
	mem := memory.New("ROLE_USER")
	seedAccount(t, mem, "alice", "old", 1)
	c := &counter{}

	_, err := RunRegister(context.Background(), RegisterRequest{Username: "alice", Password: "new", Roles: []string{"ROLE_USER"}}, registerDeps(mem, c))
	if err != errExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	acc, _ := mem.FindByUsername(context.Background(), "alice")
	if acc.PasswordHash != "hashed:old" {
		t.Fatal("existing account must be untouched")
	}
	if c.get(2) != 1 {
		t.Fatal("expected duplicate metric")
	}
}

func TestRunRegisterSaveConflictMapsToAlreadyExists(t *testing.T) {
	mem := memory.New("ROLE_USER")
	deps := registerDeps(mem, &counter{})
	deps.SaveAccount = func(context.Context, *store.Account) error { return store.ErrConflict }

	_, err := RunRegister(context.Background(), RegisterRequest{Username: "bob", Password: "pw", Roles: []string{"ROLE_USER"}}, deps)
	if err != errExists {
		t.Fatalf("expected AlreadyExists on race, got %v", err)
	}
}

func TestRunRegisterUnknownRolePersistsNothing(t *testing.T) {
	mem := memory.New("ROLE_USER")
	c := &counter{}
	hashed := false
	deps := registerDeps(mem, c)
	deps.HashPassword = func(p string) (string, error) { hashed = true; return p, nil }

	_, err := RunRegister(context.Background(), RegisterRequest{Username: "bob", Password: "pw", Roles: []string{"ROLE_USER", "ROLE_GHOST"}}, deps)
	var nf *role.NotFoundError
	if !errors.As(err, &nf) || nf.Name != "ROLE_GHOST" {
		t.Fatalf("expected role not found for ROLE_GHOST, got %v", err)
	}
	if ok, _ := mem.ExistsByUsername(context.Background(), "bob"); ok {
		t.Fatal("no account must be persisted")
	}
	if hashed {
		t.Fatal("password must not be hashed before roles resolve")
	}
	if c.get(3) != 1 {
		t.Fatal("expected role-not-found metric")
	}
}

func TestRunRegisterLinkFailureKeepsAccount(t *testing.T) {
	mem := memory.New("ROLE_USER", "ROLE_ADMIN")
	c := &counter{}
	deps := registerDeps(mem, c)
	deps.SaveLink = func(ctx context.Context, accountID, roleID int64) error {
		if roleID == 2 {
			return store.ErrUnavailable
		}
		return mem.SaveLink(ctx, accountID, roleID)
	}

	_, err := RunRegister(context.Background(), RegisterRequest{Username: "bob", Password: "pw", Roles: []string{"ROLE_USER", "ROLE_ADMIN"}}, deps)
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if ok, _ := mem.ExistsByUsername(context.Background(), "bob"); !ok {
		t.Fatal("account is not rolled back on link failure")
	}
	if c.get(4) != 1 {
		t.Fatal("expected link-failure metric")
	}
}

func TestRunRefreshClassification(t *testing.T) {
	cases := []struct {
		err  error
		want RefreshFailureKind
	}{
		{refresh.ErrNotFound, RefreshFailureNotFound},
		{refresh.ErrExpired, RefreshFailureExpired},
		{fmt.Errorf("%w: bad version", refresh.ErrRecordCorrupt), RefreshFailureCorrupt},
		{fmt.Errorf("%w: boom", refresh.ErrMintFailed), RefreshFailureIssueAccess},
		{fmt.Errorf("%w: %w", refresh.ErrReissueFailed, refresh.ErrTokenCollision), RefreshFailureIssueRefresh},
		{fmt.Errorf("%w: dial", refresh.ErrRedisUnavailable), RefreshFailureUnavailable},
	}
	for _, tc := range cases {
		c := &counter{}
		res := RunRefresh(context.Background(), "tok", RefreshDeps{
			Rotate: func(context.Context, string, refresh.MintFunc) (*refresh.Rotation, error) {
				return nil, tc.err
			},
			IssueAccessToken: func(string, []string) (string, error) { return "", nil },
			MetricInc:        c.inc,
			Metrics:          RefreshMetrics{RefreshSuccess: 1, RefreshFailure: 2},
		})
		if res.Failure != tc.want {
			t.Fatalf("%v: expected %v, got %v", tc.err, tc.want, res.Failure)
		}
		if c.get(2) != 1 {
			t.Fatalf("%v: expected failure metric", tc.err)
		}
	}
}

func TestRunRefreshSuccess(t *testing.T) {
	res := RunRefresh(context.Background(), "tok", RefreshDeps{
		Rotate: func(_ context.Context, token string, mint refresh.MintFunc) (*refresh.Rotation, error) {
			access, err := mint("alice", []string{"ROLE_USER"})
			if err != nil {
				return nil, err
			}
			return &refresh.Rotation{
				AccessToken:  access,
				RefreshToken: "next",
				Record:       &refresh.Record{Username: "alice", Roles: []string{"ROLE_USER"}},
			}, nil
		},
		IssueAccessToken: func(subject string, roles []string) (string, error) {
			return subject + "|" + strings.Join(roles, ","), nil
		},
	})
	if res.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if res.AccessToken != "alice|ROLE_USER" || res.RefreshToken != "next" || res.Username != "alice" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunAccountLookup(t *testing.T) {
	mem := memory.New()
	acc := seedAccount(t, mem, "alice", "pw")
	deps := AccountDeps{
		FindByID: mem.FindByID,
		Errors:   AccountErrors{EngineNotReady: errNotReady, AccountNotFound: errNoAccount, StoreUnavailable: errUnavailable},
	}

	view, err := RunAccountLookup(context.Background(), acc.ID, deps)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if view.Username != "alice" || view.UserID != acc.UserID.String() {
		t.Fatalf("unexpected view %+v", view)
	}
	if _, err := RunAccountLookup(context.Background(), 999, deps); err != errNoAccount {
		t.Fatalf("expected not found, got %v", err)
	}
}
