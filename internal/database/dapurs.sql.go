package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createDapur = `-- name: CreateDapur :one
INSERT INTO dapurs (name, address, phone)
VALUES ($1, $2, $3)
RETURNING id, name, address, phone, is_active, created_at
`

type CreateDapurParams struct {
	Name    string      `json:"name"`
	Address pgtype.Text `json:"address"`
	Phone   pgtype.Text `json:"phone"`
}

func (q *Queries) CreateDapur(ctx context.Context, arg CreateDapurParams) (Dapur, error) {
	row := q.db.QueryRow(ctx, createDapur, arg.Name, arg.Address, arg.Phone)
	var i Dapur
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Phone,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listDapurs = `-- name: ListDapurs :many
SELECT id, name, address, phone, is_active, created_at FROM dapurs
WHERE is_active = true
ORDER BY id
`

func (q *Queries) ListDapurs(ctx context.Context) ([]Dapur, error) {
	rows, err := q.db.Query(ctx, listDapurs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Dapur{}
	for rows.Next() {
		var i Dapur
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Address,
			&i.Phone,
			&i.IsActive,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateDapur = `-- name: UpdateDapur :one
UPDATE dapurs SET name = $1, address = $2, phone = $3
WHERE id = $4 AND is_active = true
RETURNING id, name, address, phone, is_active, created_at
`

type UpdateDapurParams struct {
	Name    string      `json:"name"`
	Address pgtype.Text `json:"address"`
	Phone   pgtype.Text `json:"phone"`
	ID      int64       `json:"id"`
}

func (q *Queries) UpdateDapur(ctx context.Context, arg UpdateDapurParams) (Dapur, error) {
	row := q.db.QueryRow(ctx, updateDapur, arg.Name, arg.Address, arg.Phone, arg.ID)
	var i Dapur
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Phone,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const softDeleteDapur = `-- name: SoftDeleteDapur :one
UPDATE dapurs SET is_active = false
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteDapur(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, softDeleteDapur, id)
	err := row.Scan(&id)
	return id, err
}
