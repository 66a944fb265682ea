package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

const shoppingCols = `id, name, quantity, category, purchased, created_at, updated_at`

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	var quantity, cat sql.NullString
	err := scanner.Scan(&item.ID, &item.Name, &quantity, &cat, &item.Purchased, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if quantity.Valid {
		item.Quantity = &quantity.String
	}
	if cat.Valid {
		c := model.Category(cat.String)
		item.Category = &c
	}
	return &item, nil
}

// nameKey mirrors shopping.NameKey. SQLite's LOWER only folds ASCII, so the
// folded name is computed here and stored alongside the original.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RunInTx runs fn in one transaction; store calls made with fn's ctx join it.
func (s *ShoppingStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, s.db, fn)
}

// List returns unpurchased items first, newest first within each group.
func (s *ShoppingStore) List(ctx context.Context) ([]model.ShoppingItem, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+shoppingCols+` FROM shopping_items ORDER BY purchased ASC, created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) GetByID(ctx context.Context, id int64) (*model.ShoppingItem, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+shoppingCols+` FROM shopping_items WHERE id = ?`, id)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item %d: %w", id, err)
	}
	return item, nil
}

// FindUnpurchasedByName matches name case-insensitively against items not
// yet purchased. The oldest match wins.
func (s *ShoppingStore) FindUnpurchasedByName(ctx context.Context, name string) (*model.ShoppingItem, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+shoppingCols+` FROM shopping_items WHERE name_key = ? AND purchased = 0 ORDER BY id ASC LIMIT 1`,
		nameKey(name),
	)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find shopping item by name: %w", err)
	}
	return item, nil
}

func (s *ShoppingStore) Create(ctx context.Context, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error) {
	now := time.Now().UTC()
	result, err := conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO shopping_items (name, name_key, quantity, category, purchased, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		name, nameKey(name), quantity, cat, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get shopping item id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ShoppingStore) UpdateQuantity(ctx context.Context, id int64, quantity *string) (*model.ShoppingItem, error) {
	_, err := conn(ctx, s.db).ExecContext(ctx,
		`UPDATE shopping_items SET quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping quantity: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ShoppingStore) Update(ctx context.Context, id int64, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error) {
	_, err := conn(ctx, s.db).ExecContext(ctx,
		`UPDATE shopping_items SET name = ?, name_key = ?, quantity = ?, category = ?, updated_at = ? WHERE id = ?`,
		name, nameKey(name), quantity, cat, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ShoppingStore) Toggle(ctx context.Context, id int64) (*model.ShoppingItem, error) {
	_, err := conn(ctx, s.db).ExecContext(ctx,
		`UPDATE shopping_items SET purchased = NOT purchased, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle shopping item: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ShoppingStore) Delete(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// DeletePurchased removes every purchased item and returns the count.
func (s *ShoppingStore) DeletePurchased(ctx context.Context) (int64, error) {
	result, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM shopping_items WHERE purchased = 1`)
	if err != nil {
		return 0, fmt.Errorf("delete purchased shopping items: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
