package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thirdweb-dev/eth-ingest/internal/common"
)

// MockMirror is a mock type for the pipeline.Mirror type
type MockMirror struct {
	mock.Mock
}

func (_m *MockMirror) InsertTransactions(ctx context.Context, chainID uint64, txs []common.Transaction) (int, error) {
	ret := _m.Called(ctx, chainID, txs)
	return ret.Int(0), ret.Error(1)
}

func NewMockMirror(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMirror {
	m := &MockMirror{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
