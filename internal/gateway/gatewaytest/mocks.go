// Package gatewaytest provides testify mocks of the remote capabilities.
package gatewaytest

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/internal/wooapi/options"
	"github.com/stretchr/testify/mock"
)

type CommerceMock struct {
	mock.Mock

	filterMu     sync.Mutex
	orderFilters []url.Values
}

// OrderFilters returns the query filters of every ListOrders call so far.
func (m *CommerceMock) OrderFilters() []url.Values {
	m.filterMu.Lock()
	defer m.filterMu.Unlock()
	return append([]url.Values(nil), m.orderFilters...)
}

var _ gateway.Commerce = (*CommerceMock)(nil)

func (m *CommerceMock) ListProducts(ctx context.Context, page, perPage int) ([]models.Product, error) {
	args := m.Called(ctx, page, perPage)
	out, _ := args.Get(0).([]models.Product)
	return out, args.Error(1)
}

func (m *CommerceMock) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Product)
	return out, args.Error(1)
}

func (m *CommerceMock) GetProductBySku(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	out, _ := args.Get(0).(*models.Product)
	return out, args.Error(1)
}

func (m *CommerceMock) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*models.Product)
	return out, args.Error(1)
}

func (m *CommerceMock) UpdateProduct(ctx context.Context, id int64, p *models.Product) (*models.Product, error) {
	args := m.Called(ctx, id, p)
	out, _ := args.Get(0).(*models.Product)
	return out, args.Error(1)
}

func (m *CommerceMock) BatchUpdateProducts(ctx context.Context, items []models.Product) (*models.BatchResult, error) {
	args := m.Called(ctx, items)
	out, _ := args.Get(0).(*models.BatchResult)
	return out, args.Error(1)
}

func (m *CommerceMock) ListVariations(ctx context.Context, productID int64) ([]models.Variation, error) {
	args := m.Called(ctx, productID)
	out, _ := args.Get(0).([]models.Variation)
	return out, args.Error(1)
}

func (m *CommerceMock) BatchUpdateVariations(ctx context.Context, productID int64, items []models.Variation) (*models.BatchResult, error) {
	args := m.Called(ctx, productID, items)
	out, _ := args.Get(0).(*models.BatchResult)
	return out, args.Error(1)
}

func (m *CommerceMock) ListOrders(ctx context.Context, page, perPage int, filters ...options.Option) ([]models.Order, error) {
	m.filterMu.Lock()
	m.orderFilters = append(m.orderFilters, options.Values(filters...))
	m.filterMu.Unlock()
	args := m.Called(ctx, page, perPage)
	out, _ := args.Get(0).([]models.Order)
	return out, args.Error(1)
}

func (m *CommerceMock) GetOrderRaw(ctx context.Context, id int64) (*models.Order, json.RawMessage, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Order)
	raw, _ := args.Get(1).(json.RawMessage)
	return out, raw, args.Error(2)
}

func (m *CommerceMock) UpdateOrderStatus(ctx context.Context, id int64, status string) bool {
	return m.Called(ctx, id, status).Bool(0)
}

func (m *CommerceMock) ListCategories(ctx context.Context, page, perPage int) ([]models.ProductCategory, error) {
	args := m.Called(ctx, page, perPage)
	out, _ := args.Get(0).([]models.ProductCategory)
	return out, args.Error(1)
}

func (m *CommerceMock) CreateCategory(ctx context.Context, c *models.ProductCategory) (*models.ProductCategory, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(*models.ProductCategory)
	return out, args.Error(1)
}

func (m *CommerceMock) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Attribute)
	return out, args.Error(1)
}

func (m *CommerceMock) ListAttributeTerms(ctx context.Context, attributeID int64, page, perPage int) ([]models.AttributeTerm, error) {
	args := m.Called(ctx, attributeID, page, perPage)
	out, _ := args.Get(0).([]models.AttributeTerm)
	return out, args.Error(1)
}

func (m *CommerceMock) CreateAttributeTerm(ctx context.Context, attributeID int64, t *models.AttributeTerm) (*models.AttributeTerm, error) {
	args := m.Called(ctx, attributeID, t)
	out, _ := args.Get(0).(*models.AttributeTerm)
	return out, args.Error(1)
}

func (m *CommerceMock) ListTags(ctx context.Context, page, perPage int) ([]models.Tag, error) {
	args := m.Called(ctx, page, perPage)
	out, _ := args.Get(0).([]models.Tag)
	return out, args.Error(1)
}

func (m *CommerceMock) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)
	out, _ := args.Get(0).(*models.Coupon)
	return out, args.Error(1)
}

type ERPMock struct {
	mock.Mock
}

var _ gateway.ERP = (*ERPMock)(nil)

func (m *ERPMock) FetchProductsRaw(ctx context.Context) ([]json.RawMessage, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]json.RawMessage)
	return out, args.Error(1)
}

func (m *ERPMock) CreateInvoice(ctx context.Context, o *order.Order) string {
	return m.Called(ctx, o).String(0)
}

func (m *ERPMock) CheckStock(ctx context.Context, sku string) int {
	return m.Called(ctx, sku).Int(0)
}

// RemoteError is a ready-made adapter failure for tests.
func RemoteError(op string, status int) error {
	return &gateway.Error{Remote: gateway.RemoteWoo, Op: op, Status: status, Message: "test failure"}
}
