package mocks

import (
	"context"
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDraftGenerator is a mock type for the draft.Generator type
type MockDraftGenerator struct {
	mock.Mock
}

// GenerateDraft provides a mock function with given fields: ctx, inputs
func (_m *MockDraftGenerator) GenerateDraft(ctx context.Context, inputs models.DraftInputs) (*models.DraftContent, error) {
	ret := _m.Called(ctx, inputs)

	var r0 *models.DraftContent
	if rf, ok := ret.Get(0).(func(context.Context, models.DraftInputs) *models.DraftContent); ok {
		r0 = rf(ctx, inputs)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.DraftContent)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, models.DraftInputs) error); ok {
		r1 = rf(ctx, inputs)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockDraftGenerator creates a new instance of MockDraftGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockDraftGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDraftGenerator {
	m := &MockDraftGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ draft.Generator = (*MockDraftGenerator)(nil)

// MockDraftRepository is a mock type for the draft.Repository and draft.StaleDraftDeleter types
type MockDraftRepository struct {
	mock.Mock
}

// CreateDraft provides a mock function with given fields: ctx, rec
func (_m *MockDraftRepository) CreateDraft(ctx context.Context, rec *models.DraftRecord) error {
	ret := _m.Called(ctx, rec)
	if rf, ok := ret.Get(0).(func(context.Context, *models.DraftRecord) error); ok {
		return rf(ctx, rec)
	}
	return ret.Error(0)
}

// UpdateDraft provides a mock function with given fields: ctx, rec
func (_m *MockDraftRepository) UpdateDraft(ctx context.Context, rec *models.DraftRecord) error {
	ret := _m.Called(ctx, rec)
	if rf, ok := ret.Get(0).(func(context.Context, *models.DraftRecord) error); ok {
		return rf(ctx, rec)
	}
	return ret.Error(0)
}

// DeleteDraft provides a mock function with given fields: ctx, userID, draftID
func (_m *MockDraftRepository) DeleteDraft(ctx context.Context, userID uuid.UUID, draftID uuid.UUID) error {
	ret := _m.Called(ctx, userID, draftID)
	return ret.Error(0)
}

// DeleteDraftsOlderThan provides a mock function with given fields: ctx, cutoff
func (_m *MockDraftRepository) DeleteDraftsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ret := _m.Called(ctx, cutoff)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) int64); ok {
		r0 = rf(ctx, cutoff)
	} else {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}

// NewMockDraftRepository creates a new instance of MockDraftRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockDraftRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDraftRepository {
	m := &MockDraftRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ draft.Repository        = (*MockDraftRepository)(nil)
	_ draft.StaleDraftDeleter = (*MockDraftRepository)(nil)
)
