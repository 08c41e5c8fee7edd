package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thirdweb-dev/eth-ingest/internal/publisher"
)

// MockNotifier is a mock type for the pipeline.Notifier type
type MockNotifier struct {
	mock.Mock
}

func (_m *MockNotifier) PublishIngestionCompleted(ctx context.Context, event publisher.IngestionCompleted) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
