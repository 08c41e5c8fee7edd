package rpc

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

type fakeEthService struct {
	chainID *big.Int
	head    uint64
}

func (s *fakeEthService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(s.chainID)
}

func (s *fakeEthService) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(s.head)
}

func newInProcClient(t *testing.T, chainID int64, head uint64) IRPCClient {
	t.Helper()
	server := gethRpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &fakeEthService{chainID: big.NewInt(chainID), head: head}))
	t.Cleanup(server.Stop)

	client, err := NewClient(context.Background(), gethRpc.DialInProc(server), "inproc://test")
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewClientResolvesChainID(t *testing.T) {
	client := newInProcClient(t, 1, 23732700)

	assert.Equal(t, big.NewInt(1), client.GetChainID())
	assert.Equal(t, "inproc://test", client.GetURL())
	assert.False(t, client.IsWebsocket())

	head, err := client.GetLatestBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(23732700), head)
}

func TestPreflight(t *testing.T) {
	client := newInProcClient(t, 1, 23732691)

	info, err := Preflight(context.Background(), client, types.BlockRange{Start: 23732687, End: 23732691})
	require.NoError(t, err)
	assert.Equal(t, uint64(23732691), info.Head)
	assert.Equal(t, big.NewInt(1), info.ChainID)

	_, err = Preflight(context.Background(), client, types.BlockRange{Start: 23732687, End: 23732692})
	assert.ErrorIs(t, err, ErrRangeBeyondHead)
}

func TestInitializeRequiresURL(t *testing.T) {
	_, err := Initialize(context.Background(), "")
	assert.Error(t, err)
}

type failingClient struct{ IRPCClient }

func (failingClient) GetLatestBlockNumber(context.Context) (*big.Int, error) {
	return nil, errors.New("connection refused")
}

func TestPreflightPropagatesRPCErrors(t *testing.T) {
	_, err := Preflight(context.Background(), failingClient{}, types.BlockRange{Start: 1, End: 1})
	assert.ErrorContains(t, err, "connection refused")
}
