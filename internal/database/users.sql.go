package database

import (
	"context"

	"github.com/google/uuid"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (dapur_id, email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, dapur_id, email, hashed_password, full_name, role, is_active, created_at, updated_at
`

type CreateUserParams struct {
	DapurID        int64  `json:"dapur_id"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	FullName       string `json:"full_name"`
	Role           string `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.DapurID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
	)
	return scanUser(row)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, dapur_id, email, hashed_password, full_name, role, is_active, created_at, updated_at FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, dapur_id, email, hashed_password, full_name, role, is_active, created_at, updated_at FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsersByDapur = `-- name: ListUsersByDapur :many
SELECT id, dapur_id, email, hashed_password, full_name, role, is_active, created_at, updated_at FROM users
WHERE dapur_id = $1 AND is_active = true
ORDER BY full_name
`

func (q *Queries) ListUsersByDapur(ctx context.Context, dapurID int64) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByDapur, dapurID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const softDeleteUser = `-- name: SoftDeleteUser :one
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND dapur_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteUserParams struct {
	ID      uuid.UUID `json:"id"`
	DapurID int64     `json:"dapur_id"`
}

func (q *Queries) SoftDeleteUser(ctx context.Context, arg SoftDeleteUserParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteUser, arg.ID, arg.DapurID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const updateUser = `-- name: UpdateUser :one
UPDATE users SET email = $1, full_name = $2, role = $3, updated_at = now()
WHERE id = $4 AND dapur_id = $5 AND is_active = true
RETURNING id, dapur_id, email, hashed_password, full_name, role, is_active, created_at, updated_at
`

type UpdateUserParams struct {
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	ID       uuid.UUID `json:"id"`
	DapurID  int64     `json:"dapur_id"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUser,
		arg.Email,
		arg.FullName,
		arg.Role,
		arg.ID,
		arg.DapurID,
	)
	return scanUser(row)
}

// rowScanner is implemented by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.DapurID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
