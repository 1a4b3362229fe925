// internal/handlers/function_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/infonomu/bni/internal/mailer"
	"github.com/infonomu/bni/internal/middleware"
	"github.com/infonomu/bni/internal/models"
)

type stubLoader struct {
	order *models.Order
}

func (l *stubLoader) LoadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if l.order == nil {
		return nil, mailer.ErrOrderNotFound
	}
	return l.order, nil
}

func (l *stubLoader) SetEmailStatus(ctx context.Context, orderID uuid.UUID, status models.EmailStatus, sentAt *time.Time) error {
	return nil
}

type stubSender struct {
	sent []string
}

func (s *stubSender) Send(ctx context.Context, to, subject, html string) error {
	s.sent = append(s.sent, to)
	return nil
}

type FunctionTestSuite struct {
	suite.Suite
	router *gin.Engine
	loader *stubLoader
	sender *stubSender
}

func (suite *FunctionTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.loader = &stubLoader{}
	suite.sender = &stubSender{}
	dispatcher := mailer.NewDispatcher(suite.loader, suite.sender)
	handler := NewFunctionHandler(dispatcher, true)

	suite.router = gin.New()
	suite.router.POST("/functions/send-order-email", handler.SendOrderEmail)
	suite.router.OPTIONS("/functions/send-order-email", handler.Preflight)
}

func (suite *FunctionTestSuite) invoke(body interface{}) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/functions/send-order-email", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *FunctionTestSuite) TestMissingOrderID() {
	w := suite.invoke(map[string]interface{}{})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(suite.T(), response["success"].(bool))
	assert.Equal(suite.T(), "order_id is required", response["error"])
}

func (suite *FunctionTestSuite) TestOrderNotFound() {
	w := suite.invoke(map[string]interface{}{"order_id": uuid.NewString()})

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Empty(suite.T(), suite.sender.sent)
}

func (suite *FunctionTestSuite) TestSuccessfulDispatch() {
	seller := &models.Profile{Name: "박판매", Email: "seller@example.com"}
	product := &models.Product{Name: "한과 선물세트", Price: 35000, Seller: seller}
	suite.loader.order = &models.Order{
		BuyerName:  "김주문",
		BuyerEmail: "buyer@example.com",
		BuyerPhone: "010-1234-5678",
		Quantity:   1,
		Product:    product,
	}

	w := suite.invoke(map[string]interface{}{"order_id": uuid.NewString()})

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var result mailer.DispatchResult
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(suite.T(), result.Success)
	assert.True(suite.T(), result.SellerEmailSent)
	assert.True(suite.T(), result.BuyerEmailSent)
	assert.Equal(suite.T(), []string{"seller@example.com", "buyer@example.com"}, suite.sender.sent)
}

func (suite *FunctionTestSuite) TestPreflightCORSHeaders() {
	req, _ := http.NewRequest("OPTIONS", "/functions/send-order-email", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(suite.T(), "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func (suite *FunctionTestSuite) TestUnconfiguredProviderFails() {
	dispatcher := mailer.NewDispatcher(suite.loader, suite.sender)
	handler := NewFunctionHandler(dispatcher, false)

	router := gin.New()
	router.POST("/functions/send-order-email", handler.SendOrderEmail)

	jsonData, _ := json.Marshal(map[string]interface{}{"order_id": uuid.NewString()})
	req, _ := http.NewRequest("POST", "/functions/send-order-email", bytes.NewBuffer(jsonData))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
}

// The dispatch endpoint runs under the privileged service key, presented
// as a bearer token or in the apikey header.
func (suite *FunctionTestSuite) TestServiceKeyGuard() {
	seller := &models.Profile{Name: "박판매", Email: "seller@example.com"}
	suite.loader.order = &models.Order{
		BuyerName:  "김주문",
		BuyerEmail: "buyer@example.com",
		Quantity:   1,
		Product:    &models.Product{Name: "한과 선물세트", Price: 35000, Seller: seller},
	}

	dispatcher := mailer.NewDispatcher(suite.loader, suite.sender)
	handler := NewFunctionHandler(dispatcher, true)

	router := gin.New()
	router.POST("/functions/send-order-email",
		middleware.ServiceKeyRequired("service-key"), handler.SendOrderEmail)

	body, _ := json.Marshal(map[string]interface{}{"order_id": uuid.NewString()})

	// No credentials.
	req, _ := http.NewRequest("POST", "/functions/send-order-email", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Empty(suite.T(), suite.sender.sent)

	// Wrong bearer token.
	req, _ = http.NewRequest("POST", "/functions/send-order-email", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer wrong-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Empty(suite.T(), suite.sender.sent)

	// Correct key as bearer token.
	req, _ = http.NewRequest("POST", "/functions/send-order-email", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer service-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// Correct key in the apikey header.
	req, _ = http.NewRequest("POST", "/functions/send-order-email", bytes.NewBuffer(body))
	req.Header.Set("apikey", "service-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func TestFunctionSuite(t *testing.T) {
	suite.Run(t, new(FunctionTestSuite))
}
