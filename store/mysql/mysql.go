// Package mysql implements the store interfaces on MySQL through database/sql
// and the go-sql-driver/mysql driver.
package mysql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/baxter-io/sessionauth/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const errDuplicateEntry = 1062

type Config struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

type DB struct {
	SQL          *sql.DB
	QueryTimeout time.Duration
}

var (
	_ store.Accounts = (*DB)(nil)
	_ store.Roles    = (*DB)(nil)
	_ store.Pinger   = (*DB)(nil)
)

// New opens the pool and verifies connectivity. parseTime is forced on so
// the driver behaves consistently across DSNs.
func New(ctx context.Context, cfg Config) (*DB, error) {
	mcfg, err := driver.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	mcfg.ParseTime = true

	connector, err := driver.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(hctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{SQL: sqlDB, QueryTimeout: cfg.QueryTimeout}, nil
}

func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.SQL, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	if err := db.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (db *DB) Close() error { return db.SQL.Close() }

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}

func mapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return store.ErrConflict
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, op, err)
}

const (
	qAccountInsert     = `INSERT INTO users (user_id, username, password_hash) VALUES (?, ?, ?)`
	qAccountByUsername = `SELECT id, user_id, username, password_hash FROM users WHERE username = ?`
	qAccountByID       = `SELECT id, user_id, username, password_hash FROM users WHERE id = ?`
	qAccountExists     = `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`

	qRoleByID         = `SELECT id, name FROM roles WHERE id = ?`
	qRoleByName       = `SELECT id, name FROM roles WHERE name = ?`
	qRoleIDsByAccount = `SELECT role_id FROM user_roles WHERE user_id = ? ORDER BY id`
	qLinkInsert       = `INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`
)

func (db *DB) Save(ctx context.Context, acc *store.Account) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	res, err := db.SQL.ExecContext(ctx, qAccountInsert, acc.UserID.String(), acc.Username, acc.PasswordHash)
	if err != nil {
		return mapErr("account insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return mapErr("account insert id", err)
	}
	acc.ID = id
	return nil
}

func (db *DB) FindByUsername(ctx context.Context, username string) (*store.Account, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return scanAccount(db.SQL.QueryRowContext(ctx, qAccountByUsername, username))
}

func (db *DB) FindByID(ctx context.Context, id int64) (*store.Account, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return scanAccount(db.SQL.QueryRowContext(ctx, qAccountByID, id))
}

func (db *DB) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := db.SQL.QueryRowContext(ctx, qAccountExists, username).Scan(&exists); err != nil {
		return false, mapErr("account exists", err)
	}
	return exists, nil
}

func scanAccount(row *sql.Row) (*store.Account, error) {
	var (
		acc    store.Account
		userID string
	)
	if err := row.Scan(&acc.ID, &userID, &acc.Username, &acc.PasswordHash); err != nil {
		return nil, mapErr("scan account", err)
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("scan account: user_id: %w", err)
	}
	acc.UserID = parsed
	return &acc, nil
}

func (db *DB) FindRoleByID(ctx context.Context, id int64) (*store.Role, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var r store.Role
	if err := db.SQL.QueryRowContext(ctx, qRoleByID, id).Scan(&r.ID, &r.Name); err != nil {
		return nil, mapErr("role by id", err)
	}
	return &r, nil
}

func (db *DB) FindRoleByName(ctx context.Context, name string) (*store.Role, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var r store.Role
	if err := db.SQL.QueryRowContext(ctx, qRoleByName, name).Scan(&r.ID, &r.Name); err != nil {
		return nil, mapErr("role by name", err)
	}
	return &r, nil
}

func (db *DB) FindRoleIDsByAccount(ctx context.Context, accountID int64) ([]int64, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.SQL.QueryContext(ctx, qRoleIDsByAccount, accountID)
	if err != nil {
		return nil, mapErr("role ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr("scan role id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("role ids", err)
	}
	return ids, nil
}

func (db *DB) SaveLink(ctx context.Context, accountID, roleID int64) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if _, err := db.SQL.ExecContext(ctx, qLinkInsert, accountID, roleID); err != nil {
		return mapErr("link insert", err)
	}
	return nil
}
