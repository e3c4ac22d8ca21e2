package postgres

import (
	"context"

	"github.com/baxter-io/sessionauth/store"
)

const (
	qRoleByID   = `SELECT id, name FROM roles WHERE id = $1;`
	qRoleByName = `SELECT id, name FROM roles WHERE name = $1;`

	qRoleIDsByAccount = `
SELECT role_id
FROM user_roles
WHERE user_id = $1
ORDER BY id;`

	qLinkInsert = `
INSERT INTO user_roles (user_id, role_id)
VALUES ($1, $2)
ON CONFLICT (user_id, role_id) DO NOTHING;`
)

func (db *DB) FindRoleByID(ctx context.Context, id int64) (*store.Role, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var r store.Role
	if err := db.Pool.QueryRow(ctx, qRoleByID, id).Scan(&r.ID, &r.Name); err != nil {
		return nil, mapErr("role by id", err)
	}
	return &r, nil
}

func (db *DB) FindRoleByName(ctx context.Context, name string) (*store.Role, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var r store.Role
	if err := db.Pool.QueryRow(ctx, qRoleByName, name).Scan(&r.ID, &r.Name); err != nil {
		return nil, mapErr("role by name", err)
	}
	return &r, nil
}

func (db *DB) FindRoleIDsByAccount(ctx context.Context, accountID int64) ([]int64, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, qRoleIDsByAccount, accountID)
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

	if _, err := db.Pool.Exec(ctx, qLinkInsert, accountID, roleID); err != nil {
		return mapErr("link insert", err)
	}
	return nil
}
