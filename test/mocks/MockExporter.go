package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thirdweb-dev/eth-ingest/internal/extractor"
)

// MockExporter is a mock type for the pipeline.Exporter type
type MockExporter struct {
	mock.Mock
}

func (_m *MockExporter) Export(ctx context.Context, req extractor.Request) error {
	ret := _m.Called(ctx, req)
	return ret.Error(0)
}

// NewMockExporter registers a cleanup that asserts the mock's expectations.
func NewMockExporter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockExporter {
	m := &MockExporter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
