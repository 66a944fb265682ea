package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productCols = `id, name, brand, category, storage_location, expiry_date, barcode, image_url, notes, created_at, updated_at`

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var expiry string
	err := scanner.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.StorageLocation, &expiry,
		&p.Barcode, &p.ImageURL, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ExpiryDate, err = time.Parse(model.DateLayout, expiry)
	if err != nil {
		return nil, fmt.Errorf("parse expiry date %q: %w", expiry, err)
	}
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// List returns every product, soonest expiry first.
func (s *ProductStore) List(ctx context.Context) ([]model.Product, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+productCols+` FROM products ORDER BY expiry_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListProducts satisfies the sweep's product source.
func (s *ProductStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.List(ctx)
}

// ListExpiringBetween returns products whose expiry date falls within
// [from, to], compared by calendar date.
func (s *ProductStore) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]model.Product, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+productCols+` FROM products WHERE expiry_date >= ? AND expiry_date <= ? ORDER BY expiry_date ASC, id ASC`,
		from.Format(model.DateLayout), to.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListExpiredBefore returns products whose expiry date is before day.
func (s *ProductStore) ListExpiredBefore(ctx context.Context, day time.Time) ([]model.Product, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+productCols+` FROM products WHERE expiry_date < ? ORDER BY expiry_date ASC, id ASC`,
		day.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *ProductStore) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// GetByBarcode returns the most recently added product with the barcode.
func (s *ProductStore) GetByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE barcode = ? AND barcode != '' ORDER BY id DESC LIMIT 1`, barcode)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return p, nil
}

// Create inserts p and returns the stored row. ID and timestamps on p are
// ignored.
func (s *ProductStore) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	now := time.Now().UTC()
	result, err := conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO products (name, brand, category, storage_location, expiry_date, barcode, image_url, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Brand, p.Category, p.StorageLocation, p.ExpiryDate.Format(model.DateLayout),
		p.Barcode, p.ImageURL, p.Notes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get product id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update overwrites the editable fields of product id. It returns (nil, nil)
// when the product does not exist.
func (s *ProductStore) Update(ctx context.Context, id int64, p *model.Product) (*model.Product, error) {
	result, err := conn(ctx, s.db).ExecContext(ctx,
		`UPDATE products SET name = ?, brand = ?, category = ?, storage_location = ?, expiry_date = ?,
		 barcode = ?, image_url = ?, notes = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Brand, p.Category, p.StorageLocation, p.ExpiryDate.Format(model.DateLayout),
		p.Barcode, p.ImageURL, p.Notes, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := conn(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
