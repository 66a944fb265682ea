package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newProduct(name string, expiry time.Time) *model.Product {
	return &model.Product{
		Name:            name,
		Category:        model.CategoryDairy,
		StorageLocation: model.LocationFridge,
		ExpiryDate:      expiry,
	}
}

func TestProductCreateAndGet(t *testing.T) {
	ps := NewProductStore(openTestDB(t))
	ctx := context.Background()

	in := newProduct("Yogurt", day(2024, 5, 8))
	in.Brand = "Danone"
	in.Barcode = "4600000000001"
	in.Notes = "strawberry"

	p, err := ps.Create(ctx, in)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if !p.ExpiryDate.Equal(day(2024, 5, 8)) {
		t.Errorf("expiry = %v, want 2024-05-08", p.ExpiryDate)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	got, err := ps.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Name != "Yogurt" || got.Brand != "Danone" || got.Notes != "strawberry" {
		t.Errorf("got %+v", got)
	}
	if got.Category != model.CategoryDairy {
		t.Errorf("category = %q, want dairy", got.Category)
	}
}

func TestProductGetMissing(t *testing.T) {
	ps := NewProductStore(openTestDB(t))

	got, err := ps.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestProductListOrderedByExpiry(t *testing.T) {
	ps := NewProductStore(openTestDB(t))
	ctx := context.Background()

	ps.Create(ctx, newProduct("Late", day(2024, 6, 1)))
	ps.Create(ctx, newProduct("Early", day(2024, 5, 1)))
	ps.Create(ctx, newProduct("Middle", day(2024, 5, 15)))

	products, err := ps.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("len = %d, want 3", len(products))
	}
	want := []string{"Early", "Middle", "Late"}
	for i, name := range want {
		if products[i].Name != name {
			t.Errorf("products[%d] = %q, want %q", i, products[i].Name, name)
		}
	}
}

func TestProductListExpiringBetween(t *testing.T) {
	ps := NewProductStore(openTestDB(t))
	ctx := context.Background()

	ps.Create(ctx, newProduct("Past", day(2024, 4, 30)))
	ps.Create(ctx, newProduct("Start", day(2024, 5, 1)))
	ps.Create(ctx, newProduct("End", day(2024, 5, 8)))
	ps.Create(ctx, newProduct("After", day(2024, 5, 9)))

	products, err := ps.ListExpiringBetween(ctx, day(2024, 5, 1), day(2024, 5, 8))
	if err != nil {
		t.Fatalf("list expiring: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("len = %d, want 2", len(products))
	}
	if products[0].Name != "Start" || products[1].Name != "End" {
		t.Errorf("got %q, %q", products[0].Name, products[1].Name)
	}

	expired, err := ps.ListExpiredBefore(ctx, day(2024, 5, 1))
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].Name != "Past" {
		t.Errorf("expired = %+v", expired)
	}
}

func TestProductGetByBarcode(t *testing.T) {
	ps := NewProductStore(openTestDB(t))
	ctx := context.Background()

	first := newProduct("Milk", day(2024, 5, 1))
	first.Barcode = "123"
	ps.Create(ctx, first)
	second := newProduct("Milk again", day(2024, 5, 9))
	second.Barcode = "123"
	ps.Create(ctx, second)
	ps.Create(ctx, newProduct("No code", day(2024, 5, 9)))

	got, err := ps.GetByBarcode(ctx, "123")
	if err != nil {
		t.Fatalf("get by barcode: %v", err)
	}
	if got == nil || got.Name != "Milk again" {
		t.Errorf("got %+v, want newest product with barcode", got)
	}

	got, err = ps.GetByBarcode(ctx, "")
	if err != nil {
		t.Fatalf("get by empty barcode: %v", err)
	}
	if got != nil {
		t.Errorf("empty barcode matched %+v", got)
	}
}

func TestProductUpdate(t *testing.T) {
	ps := NewProductStore(openTestDB(t))
	ctx := context.Background()

	p, _ := ps.Create(ctx, newProduct("Cheese", day(2024, 5, 1)))

	edit := *p
	edit.Name = "Gouda"
	edit.StorageLocation = model.LocationPantry
	edit.ExpiryDate = day(2024, 6, 1)

	got, err := ps.Update(ctx, p.ID, &edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("id changed: %d -> %d", p.ID, got.ID)
	}
	if got.Name != "Gouda" || got.StorageLocation != model.LocationPantry {
		t.Errorf("got %+v", got)
	}
	if !got.ExpiryDate.Equal(day(2024, 6, 1)) {
		t.Errorf("expiry = %v", got.ExpiryDate)
	}

	missing, err := ps.Update(ctx, 999, &edit)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing product")
	}
}

func TestProductDelete(t *testing.T) {
	ps := NewProductStore(openTestDB(t))
	ctx := context.Background()

	p, _ := ps.Create(ctx, newProduct("Bread", day(2024, 5, 1)))
	if err := ps.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, _ := ps.GetByID(ctx, p.ID)
	if got != nil {
		t.Error("expected product to be deleted")
	}
	n, _ := ps.Count(ctx)
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
