// internal/catalog/store_test.go
package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/query"
)

func namedProducts(names ...string) []models.Product {
	out := make([]models.Product, len(names))
	for i, n := range names {
		out[i] = models.Product{Name: n}
	}
	return out
}

func TestFetchProductsAppliesResult(t *testing.T) {
	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		return namedProducts("곶감 선물세트"), nil
	})

	err := store.FetchProducts(context.Background())

	assert.NoError(t, err)
	products := store.Products()
	assert.Len(t, products, 1)
	assert.Equal(t, "곶감 선물세트", products[0].Name)
	assert.False(t, store.Loading())
}

// A slow early fetch must never overwrite the result of a later one,
// regardless of the order the two resolve in.
func TestStaleFetchResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex

	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()

		if call == 1 {
			// First fetch stalls until the second has fully resolved.
			<-release
			return namedProducts("stale"), nil
		}
		return namedProducts("fresh"), nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.FetchProducts(context.Background())
	}()

	// Wait until the first fetch is in flight.
	for {
		mu.Lock()
		started := calls >= 1
		mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	assert.NoError(t, store.FetchProducts(context.Background()))
	assert.Equal(t, "fresh", store.Products()[0].Name)

	close(release)
	wg.Wait()

	// The stale result resolved after the fresh one and was dropped.
	assert.Equal(t, "fresh", store.Products()[0].Name)
}

func TestFetchErrorClassifiedAsAuth(t *testing.T) {
	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		return nil, &query.QueryError{Status: 401, Message: "JWT expired"}
	})

	err := store.FetchProducts(context.Background())

	assert.Error(t, err)
	kind, lastErr := store.LastError()
	assert.Equal(t, ErrorAuth, kind)
	assert.Error(t, lastErr)
	assert.Empty(t, store.Products())
}

func TestFetchErrorClassifiedAsGeneric(t *testing.T) {
	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		return nil, &query.QueryError{Status: 500, Message: "internal error"}
	})

	err := store.FetchProducts(context.Background())

	assert.Error(t, err)
	kind, _ := store.LastError()
	assert.Equal(t, ErrorGeneric, kind)
}

// A swallowed cancellation (nil slice, nil error) leaves the previous
// visible set in place.
func TestSwallowedCancellationKeepsVisibleSet(t *testing.T) {
	cancelled := false
	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		if cancelled {
			return nil, nil
		}
		return namedProducts("전통주 세트"), nil
	})

	assert.NoError(t, store.FetchProducts(context.Background()))
	cancelled = true
	assert.NoError(t, store.FetchProducts(context.Background()))

	products := store.Products()
	assert.Len(t, products, 1)
	assert.Equal(t, "전통주 세트", products[0].Name)
}

func TestSuccessClearsPreviousError(t *testing.T) {
	fail := true
	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		if fail {
			return nil, &query.QueryError{Status: 500, Message: "boom"}
		}
		return []models.Product{}, nil
	})

	assert.Error(t, store.FetchProducts(context.Background()))
	fail = false
	assert.NoError(t, store.FetchProducts(context.Background()))

	kind, lastErr := store.LastError()
	assert.Equal(t, ErrorNone, kind)
	assert.NoError(t, lastErr)
}

func TestFilterDefaultsAndSetters(t *testing.T) {
	store := NewStoreWithFetch(func(ctx context.Context, f Filter) ([]models.Product, error) {
		return []models.Product{}, nil
	})

	f := store.Filter()
	assert.Equal(t, "all", f.Category)
	assert.Equal(t, "created_at", f.SortBy)
	assert.False(t, f.SortAsc)

	store.SetCategory("food")
	store.SetSearchQuery("한과")
	store.SetSort("price", true)

	f = store.Filter()
	assert.Equal(t, "food", f.Category)
	assert.Equal(t, "한과", f.Search)
	assert.Equal(t, "price", f.SortBy)
	assert.True(t, f.SortAsc)
}
