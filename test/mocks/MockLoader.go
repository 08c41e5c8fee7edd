package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thirdweb-dev/eth-ingest/internal/warehouse"
)

// MockLoader is a mock type for the pipeline.Loader type
type MockLoader struct {
	mock.Mock
}

func (_m *MockLoader) Load(ctx context.Context, req warehouse.LoadRequest) (*warehouse.LoadResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *warehouse.LoadResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*warehouse.LoadResult)
	}
	return r0, ret.Error(1)
}

func NewMockLoader(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLoader {
	m := &MockLoader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
