package mocks

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"
)

// MockIRPCClient is a mock type for the rpc.IRPCClient type
type MockIRPCClient struct {
	mock.Mock
}

func (_m *MockIRPCClient) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	ret := _m.Called(ctx)

	var r0 *big.Int
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*big.Int)
	}
	return r0, ret.Error(1)
}

func (_m *MockIRPCClient) GetChainID() *big.Int {
	ret := _m.Called()

	var r0 *big.Int
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*big.Int)
	}
	return r0
}

func (_m *MockIRPCClient) GetURL() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_m *MockIRPCClient) IsWebsocket() bool {
	ret := _m.Called()
	return ret.Bool(0)
}

func (_m *MockIRPCClient) Close() {
	_m.Called()
}

func NewMockIRPCClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIRPCClient {
	m := &MockIRPCClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
