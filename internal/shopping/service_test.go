package shopping

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/larder/internal/model"
)

// memStore is an in-memory Store. Its own mutex only keeps the map safe;
// it does nothing to stop a find-then-create race between callers.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.ShoppingItem
	finds  int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[int64]*model.ShoppingItem)}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) FindUnpurchasedByName(ctx context.Context, name string) (*model.ShoppingItem, error) {
	m.mu.Lock()
	m.finds++
	var found *model.ShoppingItem
	for _, it := range m.items {
		if !it.Purchased && NameKey(it.Name) == NameKey(name) {
			c := *it
			found = &c
			break
		}
	}
	m.mu.Unlock()

	// Widen the window between find and create.
	time.Sleep(time.Millisecond)
	return found, nil
}

func (m *memStore) Create(ctx context.Context, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	it := &model.ShoppingItem{ID: m.nextID, Name: name, Quantity: quantity, Category: cat}
	m.items[it.ID] = it
	c := *it
	return &c, nil
}

func (m *memStore) UpdateQuantity(ctx context.Context, id int64, quantity *string) (*model.ShoppingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	it.Quantity = quantity
	c := *it
	return &c, nil
}

func (m *memStore) List(ctx context.Context) ([]model.ShoppingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShoppingItem
	for id := int64(1); id <= m.nextID; id++ {
		if it, ok := m.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*model.ShoppingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	c := *it
	return &c, nil
}

func (m *memStore) Update(ctx context.Context, id int64, name string, quantity *string, cat *model.Category) (*model.ShoppingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	it.Name, it.Quantity, it.Category = name, quantity, cat
	c := *it
	return &c, nil
}

func (m *memStore) Toggle(ctx context.Context, id int64) (*model.ShoppingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	it.Purchased = !it.Purchased
	c := *it
	return &c, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memStore) DeletePurchased(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.items {
		if it.Purchased {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

type productMap map[int64]*model.Product

func (p productMap) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	return p[id], nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	products := productMap{
		7: {ID: 7, Name: "Кефир"},
	}
	return NewService(st, products, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func TestAddOrMerge_CreatesThenMerges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.AddOrMerge(ctx, "Milk", ptr("2 л"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2 л", *first.Quantity)
	require.NotNil(t, first.Category)
	assert.Equal(t, model.CategoryDairy, *first.Category)

	merged, created, err := svc.AddOrMerge(ctx, "milk", ptr("1 л"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, "Milk", merged.Name)
	assert.Equal(t, "3 л", *merged.Quantity)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddOrMerge_NilQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, created, err := svc.AddOrMerge(ctx, "Eggs", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, item.Quantity)

	item, _, err = svc.AddOrMerge(ctx, "EGGS", nil)
	require.NoError(t, err)
	assert.Equal(t, "2", *item.Quantity)
}

func TestAddOrMerge_CyrillicCase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.AddOrMerge(ctx, "Молоко", ptr("1 л"))
	require.NoError(t, err)
	item, created, err := svc.AddOrMerge(ctx, "МОЛОКО", ptr("2 л"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Молоко", item.Name)
	assert.Equal(t, "3 л", *item.Quantity)
}

func TestAddOrMerge_BlankName(t *testing.T) {
	svc, st := newTestService(t)

	for _, name := range []string{"", "   ", "\t\n"} {
		item, created, err := svc.AddOrMerge(context.Background(), name, ptr("1"))
		assert.ErrorIs(t, err, ErrBlankName)
		assert.Nil(t, item)
		assert.False(t, created)
	}
	assert.Empty(t, st.items)
	assert.Zero(t, st.finds)
}

func TestAddOrMerge_PurchasedItemIsNotMerged(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.AddOrMerge(ctx, "Bread", nil)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, first.ID)
	require.NoError(t, err)

	second, created, err := svc.AddOrMerge(ctx, "bread", ptr("1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAddOrMerge_MergeKeepsPurchasedFlag(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	item, _, err := svc.AddOrMerge(ctx, "Apples", ptr("3 шт"))
	require.NoError(t, err)
	merged, _, err := svc.AddOrMerge(ctx, "apples", ptr("2 кг"))
	require.NoError(t, err)

	assert.Equal(t, "5 шт", *merged.Quantity)
	assert.False(t, st.items[item.ID].Purchased)
}

func TestAddOrMerge_ConcurrentSameName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddOrMerge(ctx, "Milk", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "25", *items[0].Quantity)
	assert.Zero(t, svc.locks.size())
}

func TestAddFromProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, created, err := svc.AddFromProduct(ctx, 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Кефир", item.Name)
	assert.Nil(t, item.Quantity)

	_, _, err = svc.AddFromProduct(ctx, 99)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, _, err := svc.AddOrMerge(ctx, "Thing", nil)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, item.ID, " Сыр ", ptr("200 г"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Сыр", updated.Name)
	assert.Equal(t, model.CategoryDairy, *updated.Category)

	_, err = svc.Update(ctx, item.ID, " ", nil, nil)
	assert.ErrorIs(t, err, ErrBlankName)
}

func TestUpdate_RenameOntoUnpurchasedName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	milk, _, err := svc.AddOrMerge(ctx, "Milk", ptr("1 l"))
	require.NoError(t, err)
	bread, _, err := svc.AddOrMerge(ctx, "Bread", nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, bread.ID, "milk", nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateName)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.ElementsMatch(t, []string{"Milk", "Bread"}, names)

	// Changing the case of an item's own name is not a collision.
	renamed, err := svc.Update(ctx, milk.ID, "MILK", ptr("1 l"), nil)
	require.NoError(t, err)
	assert.Equal(t, "MILK", renamed.Name)
}

func TestUpdate_PurchasedItemMayShareName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.AddOrMerge(ctx, "Milk", nil)
	require.NoError(t, err)
	old, _, err := svc.AddOrMerge(ctx, "Old milk", nil)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, old.ID)
	require.NoError(t, err)

	renamed, err := svc.Update(ctx, old.ID, "milk", nil, nil)
	require.NoError(t, err)
	assert.True(t, renamed.Purchased)
}

func TestUpdate_Missing(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.Update(context.Background(), 42, "Tea", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestToggle_RestoreMergesIntoListedItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	eggs, _, err := svc.AddOrMerge(ctx, "Eggs", ptr("6 pcs"))
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, eggs.ID)
	require.NoError(t, err)

	fresh, created, err := svc.AddOrMerge(ctx, "eggs", ptr("4 pcs"))
	require.NoError(t, err)
	require.True(t, created)

	restored, err := svc.Toggle(ctx, eggs.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, restored.ID)
	require.NotNil(t, restored.Quantity)
	assert.Equal(t, "10 pcs", *restored.Quantity)
	assert.False(t, restored.Purchased)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, fresh.ID, items[0].ID)
}

func TestToggle_RestoreWithoutCollision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, _, err := svc.AddOrMerge(ctx, "Salt", nil)
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Purchased)

	toggled, err = svc.Toggle(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, toggled.ID)
	assert.False(t, toggled.Purchased)

	missing, err := svc.Toggle(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClearPurchased(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _, _ := svc.AddOrMerge(ctx, "A", nil)
	_, _, _ = svc.AddOrMerge(ctx, "B", nil)
	_, err := svc.Toggle(ctx, a.ID)
	require.NoError(t, err)

	n, err := svc.ClearPurchased(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, _ := svc.List(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Name)
}
