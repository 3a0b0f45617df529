package catalog

import (
	"context"
	"testing"
	"time"

	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/gateway/gatewaytest"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTermsLookupsDoNotWaitOnEachOther(t *testing.T) {
	ctx := context.Background()
	commerce := &gatewaytest.CommerceMock{}
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	commerce.On("ListCategories", mock.Anything, 1, 100).Run(func(mock.Arguments) {
		started <- struct{}{}
		<-release
	}).Return([]models.ProductCategory{{ID: 20, Name: "Çay"}}, nil)
	commerce.On("ListAttributes", mock.Anything).Return([]models.Attribute{{ID: 6, Name: "Marka", Slug: "pa_brand"}}, nil)
	commerce.On("ListAttributeTerms", mock.Anything, int64(6), 1, 100).Return([]models.AttributeTerm{{ID: 31, Name: "Doğuş"}}, nil)
	tm := newTerms(commerce, logging.Discard())

	slow := make(chan *models.Product, 2)
	for i := 0; i < 2; i++ {
		go func() {
			p := &models.Product{}
			tm.apply(ctx, &staging.Record{Category: "çay"}, p)
			slow <- p
		}()
	}
	<-started

	brand := &models.Product{}
	done := make(chan struct{})
	go func() {
		tm.apply(ctx, &staging.Record{Brand: "Doğuş"}, brand)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("brand lookup waited on the category load")
	}
	require.Len(t, brand.Attributes, 1)
	assert.Equal(t, []string{"Doğuş"}, brand.Attributes[0].Options)

	close(release)
	for i := 0; i < 2; i++ {
		p := <-slow
		require.Len(t, p.Categories, 1)
		assert.EqualValues(t, 20, p.Categories[0].Id)
	}
	commerce.AssertNumberOfCalls(t, "ListCategories", 1)
	commerce.AssertNotCalled(t, "CreateCategory", mock.Anything, mock.Anything)
}

func TestTermsCreateMissingNameOnce(t *testing.T) {
	ctx := context.Background()
	commerce := &gatewaytest.CommerceMock{}
	commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	commerce.On("CreateCategory", mock.Anything, mock.Anything).
		After(20*time.Millisecond).Return(&models.ProductCategory{ID: 44, Name: "Kahve"}, nil)
	tm := newTerms(commerce, logging.Discard())

	out := make(chan int64, 4)
	for i := 0; i < 4; i++ {
		go func() { out <- tm.category(ctx, "Kahve") }()
	}
	for i := 0; i < 4; i++ {
		assert.EqualValues(t, 44, <-out)
	}
	assert.EqualValues(t, 44, tm.category(ctx, " kahve "))
	commerce.AssertNumberOfCalls(t, "CreateCategory", 1)
}

func TestBrandFallsBackToExistingTag(t *testing.T) {
	ctx := context.Background()
	commerce := &gatewaytest.CommerceMock{}
	commerce.On("ListAttributes", mock.Anything).Return([]models.Attribute{{ID: 4, Name: "Renk"}}, nil).Once()
	commerce.On("ListTags", mock.Anything, 1, 100).Return([]models.Tag{{ID: 70, Name: "Doğuş"}}, nil).Once()
	tm := newTerms(commerce, logging.Discard())

	p := &models.Product{}
	tm.apply(ctx, &staging.Record{Brand: "doğuş "}, p)
	assert.Empty(t, p.Attributes)
	assert.Equal(t, []models.Categories{{Id: 70}}, p.Tags)

	other := &models.Product{}
	tm.apply(ctx, &staging.Record{Brand: "Lipton"}, other)
	assert.Empty(t, other.Tags, "tags are never created")
	commerce.AssertNotCalled(t, "CreateAttributeTerm", mock.Anything, mock.Anything, mock.Anything)
}
