package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, dapur_id, date, session, dishes, created_at, updated_at`

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (dapur_id, date, session, dishes)
VALUES ($1, $2, $3, $4)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	DapurID int64       `json:"dapur_id"`
	Date    pgtype.Date `json:"date"`
	Session string      `json:"session"`
	Dishes  string      `json:"dishes"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.DapurID,
		arg.Date,
		arg.Session,
		arg.Dishes,
	)
	return scanMenuItem(row)
}

const deleteMenuItem = `-- name: DeleteMenuItem :one
DELETE FROM menu_items
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, deleteMenuItem, id))
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE ($1::bigint IS NULL OR dapur_id = $1::bigint)
ORDER BY date DESC, id DESC
LIMIT $2
`

type ListMenuItemsParams struct {
	DapurID pgtype.Int8 `json:"dapur_id"`
	Limit   int32       `json:"limit"`
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.DapurID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
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

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items
SET session    = COALESCE($1, session),
    dishes     = COALESCE($2, dishes),
    updated_at = now()
WHERE id = $3
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	Session pgtype.Text `json:"session"`
	Dishes  pgtype.Text `json:"dishes"`
	ID      int64       `json:"id"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem, arg.Session, arg.Dishes, arg.ID))
}

func scanMenuItem(row rowScanner) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.DapurID,
		&i.Date,
		&i.Session,
		&i.Dishes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
