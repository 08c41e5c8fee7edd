package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thirdweb-dev/eth-ingest/internal/archive"
)

// MockArchiver is a mock type for the pipeline.Archiver type
type MockArchiver struct {
	mock.Mock
}

func (_m *MockArchiver) Archive(ctx context.Context, req archive.Request) ([]archive.Object, error) {
	ret := _m.Called(ctx, req)

	var r0 []archive.Object
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]archive.Object)
	}
	return r0, ret.Error(1)
}

func NewMockArchiver(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockArchiver {
	m := &MockArchiver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
