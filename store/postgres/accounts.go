package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/baxter-io/sessionauth/store"
)

const (
	qAccountInsert = `
INSERT INTO users (user_id, username, password_hash)
VALUES ($1, $2, $3)
RETURNING id;`

	qAccountByUsername = `
SELECT id, user_id, username, password_hash
FROM users
WHERE username = $1;`

	qAccountByID = `
SELECT id, user_id, username, password_hash
FROM users
WHERE id = $1;`

	qAccountExists = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1);`
)

func (db *DB) Save(ctx context.Context, acc *store.Account) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if err := db.Pool.QueryRow(ctx, qAccountInsert, acc.UserID, acc.Username, acc.PasswordHash).
		Scan(&acc.ID); err != nil {
		return mapErr("account insert", err)
	}
	return nil
}

func (db *DB) FindByUsername(ctx context.Context, username string) (*store.Account, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var acc store.Account
	if err := scanAccount(db.Pool.QueryRow(ctx, qAccountByUsername, username), &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (db *DB) FindByID(ctx context.Context, id int64) (*store.Account, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var acc store.Account
	if err := scanAccount(db.Pool.QueryRow(ctx, qAccountByID, id), &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (db *DB) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := db.Pool.QueryRow(ctx, qAccountExists, username).Scan(&exists); err != nil {
		return false, mapErr("account exists", err)
	}
	return exists, nil
}

func scanAccount(row pgx.Row, out *store.Account) error {
	if err := row.Scan(&out.ID, &out.UserID, &out.Username, &out.PasswordHash); err != nil {
		return mapErr("scan account", err)
	}
	return nil
}
