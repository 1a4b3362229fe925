// internal/services/product_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/query"
)

func TestGetSellerProductsRetriesAfterSessionRefresh(t *testing.T) {
	refresher := &stubRefresher{}
	svc := NewProductService(nil, query.NewExecutor(refresher))
	svc.queryOpts = fastQueryOpts()

	want := []models.Product{{Name: "한과 선물세트"}}
	attempts := 0
	svc.fetchMine = func(ctx context.Context, sellerID uuid.UUID) (interface{}, error) {
		attempts++
		if attempts == 1 {
			return nil, &query.QueryError{Code: "PGRST301", Message: "JWT expired"}
		}
		return want, nil
	}

	products, err := svc.GetSellerProducts(context.Background(), uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, want, products)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, refresher.calls)
}

func TestGetSellerProductsSurfacesErrorWhenRetriesExhaust(t *testing.T) {
	refresher := &stubRefresher{}
	svc := NewProductService(nil, query.NewExecutor(refresher))
	svc.queryOpts = fastQueryOpts()

	attempts := 0
	svc.fetchMine = func(ctx context.Context, sellerID uuid.UUID) (interface{}, error) {
		attempts++
		return nil, &query.QueryError{Status: 401, Message: "JWT expired"}
	}

	_, err := svc.GetSellerProducts(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, refresher.calls)
}
