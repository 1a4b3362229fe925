// internal/services/order_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/query"
)

func validOrderRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		ProductID:  uuid.New(),
		BuyerName:  "김주문",
		BuyerEmail: "a@b.com",
		BuyerPhone: "010-1234-5678",
		Quantity:   2,
	}
}

func TestValidateOrderRequestAcceptsValidInput(t *testing.T) {
	assert.NoError(t, ValidateOrderRequest(validOrderRequest()))
}

func TestValidateOrderRequestRejectsBlankName(t *testing.T) {
	req := validOrderRequest()
	req.BuyerName = "   "
	assert.Error(t, ValidateOrderRequest(req))
}

func TestValidateOrderRequestEmail(t *testing.T) {
	cases := []struct {
		email string
		valid bool
	}{
		{"a@b.com", true},
		{"user.name@company.co.kr", true},
		{"not-an-email", false},
		{"missing@domain", false},
		{"spaces in@addr.com", false},
		{"", false},
	}

	for _, tc := range cases {
		req := validOrderRequest()
		req.BuyerEmail = tc.email
		err := ValidateOrderRequest(req)
		if tc.valid {
			assert.NoError(t, err, tc.email)
		} else {
			assert.Error(t, err, tc.email)
		}
	}
}

func TestValidateOrderRequestPhone(t *testing.T) {
	cases := []struct {
		phone string
		valid bool
	}{
		{"010-1234-5678", true},
		{"01012345678", true},
		{"011-123-4567", true},
		{"02-1234-5678", false}, // landline
		{"010-12-5678", false},
		{"", false},
	}

	for _, tc := range cases {
		req := validOrderRequest()
		req.BuyerPhone = tc.phone
		err := ValidateOrderRequest(req)
		if tc.valid {
			assert.NoError(t, err, tc.phone)
		} else {
			assert.Error(t, err, tc.phone)
		}
	}
}

func TestValidateOrderRequestMessageLength(t *testing.T) {
	req := validOrderRequest()
	req.Message = strings.Repeat("가", 300)
	assert.NoError(t, ValidateOrderRequest(req))

	req.Message = strings.Repeat("가", 301)
	assert.Error(t, ValidateOrderRequest(req))
}

func TestClampQuantity(t *testing.T) {
	assert.Equal(t, 1, ClampQuantity(0))
	assert.Equal(t, 1, ClampQuantity(-5))
	assert.Equal(t, 1, ClampQuantity(1))
	assert.Equal(t, 50, ClampQuantity(50))
	assert.Equal(t, 99, ClampQuantity(99))
	assert.Equal(t, 99, ClampQuantity(150))
}

type slowInvoker struct {
	started  chan struct{}
	release  chan struct{}
	invoked  chan uuid.UUID
	failWith error
}

func newSlowInvoker() *slowInvoker {
	return &slowInvoker{
		started: make(chan struct{}),
		release: make(chan struct{}),
		invoked: make(chan uuid.UUID, 1),
	}
}

func (i *slowInvoker) Invoke(ctx context.Context, orderID uuid.UUID) error {
	close(i.started)
	<-i.release
	i.invoked <- orderID
	return i.failWith
}

// The dispatch runs detached: the caller returns while the invocation is
// still in flight, and an invocation failure surfaces nowhere.
func TestDispatchNotificationIsDetached(t *testing.T) {
	invoker := newSlowInvoker()
	svc := NewOrderService(nil, nil, invoker)
	orderID := uuid.New()

	done := make(chan struct{})
	go func() {
		svc.dispatchNotification(orderID)
		close(done)
	}()

	<-invoker.started
	select {
	case <-done:
		t.Fatal("dispatch returned before the invocation settled")
	default:
	}

	close(invoker.release)
	<-done

	assert.Equal(t, orderID, <-invoker.invoked)
}

func TestDispatchNotificationSwallowsInvokerError(t *testing.T) {
	invoker := newSlowInvoker()
	invoker.failWith = errors.New("resend unreachable")
	close(invoker.release)

	svc := NewOrderService(nil, nil, invoker)

	// Must not panic or propagate anything.
	svc.dispatchNotification(uuid.New())

	select {
	case id := <-invoker.invoked:
		assert.NotEqual(t, uuid.Nil, id)
	case <-time.After(time.Second):
		t.Fatal("invoker was never called")
	}
}

func TestDispatchNotificationWithoutInvokerIsNoOp(t *testing.T) {
	svc := NewOrderService(nil, nil, nil)
	svc.dispatchNotification(uuid.New())
}

func TestBuildOrderCarriesSellerAttribution(t *testing.T) {
	product := &models.Product{SellerID: uuid.New()}
	product.ID = uuid.New()

	req := validOrderRequest()
	req.Quantity = 150

	order := buildOrder(req, product)

	assert.Equal(t, product.ID, order.ProductID)
	assert.Equal(t, product.SellerID, order.SellerID)
	assert.Equal(t, 99, order.Quantity)
	assert.Equal(t, models.EmailStatusPending, order.EmailStatus)
}

type stubRefresher struct {
	calls int
}

func (r *stubRefresher) RefreshSession(ctx context.Context) error {
	r.calls++
	return nil
}

func fastQueryOpts() *query.Options {
	return &query.Options{MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestGetMyOrdersRetriesAfterSessionRefresh(t *testing.T) {
	refresher := &stubRefresher{}
	svc := NewOrderService(nil, query.NewExecutor(refresher), nil)
	svc.queryOpts = fastQueryOpts()

	want := []models.Order{{BuyerName: "김주문"}}
	attempts := 0
	svc.fetchMine = func(ctx context.Context, buyerID uuid.UUID) (interface{}, error) {
		attempts++
		if attempts == 1 {
			return nil, &query.QueryError{Status: 401, Message: "JWT expired"}
		}
		return want, nil
	}

	orders, err := svc.GetMyOrders(context.Background(), uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, want, orders)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, refresher.calls)
}

func TestGetSellerOrdersDoesNotRetryNonAuthErrors(t *testing.T) {
	refresher := &stubRefresher{}
	svc := NewOrderService(nil, query.NewExecutor(refresher), nil)
	svc.queryOpts = fastQueryOpts()

	attempts := 0
	svc.fetchReceived = func(ctx context.Context, sellerID uuid.UUID) (interface{}, error) {
		attempts++
		return nil, &query.QueryError{Status: 500, Message: "relation does not exist"}
	}

	_, err := svc.GetSellerOrders(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, refresher.calls)
}
