// Package shopping keeps the shopping list: adding an item that is already
// on the list merges the quantities instead of creating a duplicate.
package shopping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/larder/internal/category"
	"github.com/dukerupert/larder/internal/model"
)

var (
	// ErrBlankName is returned when an item name is empty or whitespace.
	ErrBlankName = errors.New("shopping item name is blank")
	// ErrProductNotFound is returned by AddFromProduct for an unknown product.
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateName is returned when an edit would leave two unpurchased
	// items with the same name.
	ErrDuplicateName = errors.New("an unpurchased item with that name already exists")
)

// Store is the persistence the service needs. Lookups return (nil, nil)
// when nothing matches.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindUnpurchasedByName(ctx context.Context, name string) (*model.ShoppingItem, error)
	Create(ctx context.Context, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error)
	UpdateQuantity(ctx context.Context, id int64, quantity *string) (*model.ShoppingItem, error)
	List(ctx context.Context) ([]model.ShoppingItem, error)
	GetByID(ctx context.Context, id int64) (*model.ShoppingItem, error)
	Update(ctx context.Context, id int64, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error)
	Toggle(ctx context.Context, id int64) (*model.ShoppingItem, error)
	Delete(ctx context.Context, id int64) error
	DeletePurchased(ctx context.Context) (int64, error)
}

// ProductGetter resolves a product for AddFromProduct.
type ProductGetter interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

type Service struct {
	store    Store
	products ProductGetter
	locks    *keyedMutex
	logger   *slog.Logger
}

func NewService(store Store, products ProductGetter, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		products: products,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// NameKey is the form under which names are compared for merging.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddOrMerge adds name to the list, or merges quantity into the unpurchased
// item of the same name. created reports whether a new item was inserted.
// The merged item keeps its ID, name and purchased flag.
func (s *Service) AddOrMerge(ctx context.Context, name string, quantity *string) (*model.ShoppingItem, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrBlankName
	}

	key := NameKey(name)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var (
		item    *model.ShoppingItem
		created bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindUnpurchasedByName(ctx, name)
		if err != nil {
			return err
		}

		if existing == nil {
			cat := category.Classify(name)
			item, err = s.store.Create(ctx, name, quantity, &cat)
			created = true
			return err
		}

		merged := MergeQuantities(existing.Quantity, quantity)
		item, err = s.store.UpdateQuantity(ctx, existing.ID, &merged)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("add shopping item: %w", err)
	}

	s.logger.Debug("shopping item added", "id", item.ID, "name", item.Name, "created", created)
	return item, created, nil
}

// AddFromProduct puts a stored product on the list with no quantity.
func (s *Service) AddFromProduct(ctx context.Context, productID int64) (*model.ShoppingItem, bool, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, false, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, false, ErrProductNotFound
	}
	return s.AddOrMerge(ctx, p.Name, nil)
}

func (s *Service) List(ctx context.Context) ([]model.ShoppingItem, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.ShoppingItem, error) {
	return s.store.GetByID(ctx, id)
}

// Update edits an item directly. No merging happens here: renaming an
// unpurchased item onto the name of another unpurchased item fails with
// ErrDuplicateName. A nil category is re-guessed from the name. It returns
// (nil, nil) when the item does not exist.
func (s *Service) Update(ctx context.Context, id int64, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankName
	}
	if cat == nil {
		guessed := category.Classify(name)
		cat = &guessed
	}

	key := NameKey(name)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var item *model.ShoppingItem
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.GetByID(ctx, id)
		if err != nil || current == nil {
			return err
		}
		if !current.Purchased {
			other, err := s.store.FindUnpurchasedByName(ctx, name)
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return ErrDuplicateName
			}
		}
		item, err = s.store.Update(ctx, id, name, quantity, cat)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	return item, nil
}

// Toggle flips the purchased flag. Un-purchasing an item whose name is
// already on the list merges its quantity into that item and removes it, so
// the returned item may carry a different ID than the one toggled.
func (s *Service) Toggle(ctx context.Context, id int64) (*model.ShoppingItem, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	if current == nil {
		return nil, nil
	}
	if !current.Purchased {
		return s.store.Toggle(ctx, id)
	}

	key := NameKey(current.Name)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var item *model.ShoppingItem
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.GetByID(ctx, id)
		if err != nil || current == nil {
			return err
		}
		if !current.Purchased {
			item, err = s.store.Toggle(ctx, id)
			return err
		}

		existing, err := s.store.FindUnpurchasedByName(ctx, current.Name)
		if err != nil {
			return err
		}
		if existing == nil || existing.ID == id {
			item, err = s.store.Toggle(ctx, id)
			return err
		}

		merged := MergeQuantities(existing.Quantity, current.Quantity)
		if item, err = s.store.UpdateQuantity(ctx, existing.ID, &merged); err != nil {
			return err
		}
		return s.store.Delete(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle shopping item: %w", err)
	}
	if item != nil && item.ID != id {
		s.logger.Debug("shopping item merged on restore", "from", id, "into", item.ID)
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// ClearPurchased removes every purchased item and returns how many went.
func (s *Service) ClearPurchased(ctx context.Context) (int64, error) {
	return s.store.DeletePurchased(ctx)
}
