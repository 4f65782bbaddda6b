package mocks

import (
	"context"

	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/promotion"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCollectionStore is a mock type for the promotion.CollectionStore type
type MockCollectionStore struct {
	mock.Mock
}

// InsertCollection provides a mock function with given fields: ctx, ownerID, header
func (_m *MockCollectionStore) InsertCollection(ctx context.Context, ownerID uuid.UUID, header models.CollectionHeader) (uuid.UUID, error) {
	ret := _m.Called(ctx, ownerID, header)

	var r0 uuid.UUID
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, models.CollectionHeader) uuid.UUID); ok {
		r0 = rf(ctx, ownerID, header)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(uuid.UUID)
	}
	return r0, ret.Error(1)
}

// InsertCollectionItems provides a mock function with given fields: ctx, collectionID, podIDs
func (_m *MockCollectionStore) InsertCollectionItems(ctx context.Context, collectionID uuid.UUID, podIDs []int64) error {
	ret := _m.Called(ctx, collectionID, podIDs)
	return ret.Error(0)
}

// DeleteCollection provides a mock function with given fields: ctx, collectionID
func (_m *MockCollectionStore) DeleteCollection(ctx context.Context, collectionID uuid.UUID) error {
	ret := _m.Called(ctx, collectionID)
	return ret.Error(0)
}

// NewMockCollectionStore creates a new instance of MockCollectionStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCollectionStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCollectionStore {
	m := &MockCollectionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockProductionStore is a mock type for the promotion.ProductionStore type
type MockProductionStore struct {
	mock.Mock
}

// PromoteDraft provides a mock function with given fields: ctx, req
func (_m *MockProductionStore) PromoteDraft(ctx context.Context, req models.PromotionRequest) (*models.PromotionOutcome, error) {
	ret := _m.Called(ctx, req)

	var r0 *models.PromotionOutcome
	if rf, ok := ret.Get(0).(func(context.Context, models.PromotionRequest) *models.PromotionOutcome); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.PromotionOutcome)
	}
	return r0, ret.Error(1)
}

// NewMockProductionStore creates a new instance of MockProductionStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockProductionStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProductionStore {
	m := &MockProductionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockPublisher is a mock type for the promotion.CacheInvalidator and promotion.ProductionTaskPublisher types
type MockPublisher struct {
	mock.Mock
}

// PublishCacheInvalidation provides a mock function with given fields: ctx, payload
func (_m *MockPublisher) PublishCacheInvalidation(ctx context.Context, payload models.CacheInvalidationPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// PublishProductionTask provides a mock function with given fields: ctx, payload
func (_m *MockPublisher) PublishProductionTask(ctx context.Context, payload models.ProductionTaskPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockPublisher creates a new instance of MockPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPublisher {
	m := &MockPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ promotion.CollectionStore         = (*MockCollectionStore)(nil)
	_ promotion.ProductionStore         = (*MockProductionStore)(nil)
	_ promotion.CacheInvalidator        = (*MockPublisher)(nil)
	_ promotion.ProductionTaskPublisher = (*MockPublisher)(nil)
)
