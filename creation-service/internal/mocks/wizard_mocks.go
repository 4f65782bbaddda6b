package mocks

import (
	"context"

	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/wizard"
	sharedModels "nicepods-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockNarrativeGenerator is a mock type for the wizard.NarrativeGenerator type
type MockNarrativeGenerator struct {
	mock.Mock
}

// GenerateNarrativeOptions provides a mock function with given fields: ctx, req
func (_m *MockNarrativeGenerator) GenerateNarrativeOptions(ctx context.Context, req models.NarrativeRequest) ([]models.NarrativeOption, error) {
	ret := _m.Called(ctx, req)

	var r0 []models.NarrativeOption
	if rf, ok := ret.Get(0).(func(context.Context, models.NarrativeRequest) []models.NarrativeOption); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.NarrativeOption)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, models.NarrativeRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockNarrativeGenerator creates a new instance of MockNarrativeGenerator.
func NewMockNarrativeGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNarrativeGenerator {
	m := &MockNarrativeGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ wizard.NarrativeGenerator = (*MockNarrativeGenerator)(nil)

// MockPromoter is a mock type for the wizard.Promoter type
type MockPromoter struct {
	mock.Mock
}

// PromoteDraft provides a mock function with given fields: ctx, req
func (_m *MockPromoter) PromoteDraft(ctx context.Context, req models.PromotionRequest) sharedModels.ActionResult {
	ret := _m.Called(ctx, req)

	if rf, ok := ret.Get(0).(func(context.Context, models.PromotionRequest) sharedModels.ActionResult); ok {
		return rf(ctx, req)
	}
	return ret.Get(0).(sharedModels.ActionResult)
}

// NewMockPromoter creates a new instance of MockPromoter.
func NewMockPromoter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPromoter {
	m := &MockPromoter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ wizard.Promoter = (*MockPromoter)(nil)
