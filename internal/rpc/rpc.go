package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

var ErrRangeBeyondHead = errors.New("block range is beyond the chain head")

type IRPCClient interface {
	GetLatestBlockNumber(ctx context.Context) (*big.Int, error)
	GetChainID() *big.Int
	GetURL() string
	IsWebsocket() bool
	Close()
}

type Client struct {
	RPCClient   *gethRpc.Client
	EthClient   *ethclient.Client
	isWebsocket bool
	url         string
	chainID     *big.Int
}

// Initialize dials url and resolves the chain id.
func Initialize(ctx context.Context, url string) (IRPCClient, error) {
	if url == "" {
		return nil, fmt.Errorf("provider URI is not set")
	}
	log.Debug().Msg("Initializing RPC")
	rpcClient, dialErr := gethRpc.DialContext(ctx, url)
	if dialErr != nil {
		return nil, dialErr
	}
	return NewClient(ctx, rpcClient, url)
}

// NewClient wraps an already connected client, e.g. an in-process one.
func NewClient(ctx context.Context, rpcClient *gethRpc.Client, url string) (IRPCClient, error) {
	rpc := &Client{
		RPCClient:   rpcClient,
		EthClient:   ethclient.NewClient(rpcClient),
		url:         url,
		isWebsocket: strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://"),
	}
	if err := rpc.setChainID(ctx); err != nil {
		rpcClient.Close()
		return nil, err
	}
	return IRPCClient(rpc), nil
}

func (rpc *Client) GetChainID() *big.Int {
	return rpc.chainID
}

func (rpc *Client) GetURL() string {
	return rpc.url
}

func (rpc *Client) IsWebsocket() bool {
	return rpc.isWebsocket
}

func (rpc *Client) Close() {
	rpc.EthClient.Close()
}

func (rpc *Client) setChainID(ctx context.Context) error {
	chainID, err := rpc.EthClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %v", err)
	}
	rpc.chainID = chainID
	return nil
}

func (rpc *Client) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	blockNumber, err := rpc.EthClient.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block number: %v", err)
	}
	return new(big.Int).SetUint64(blockNumber), nil
}

// ChainInfo is what the preflight learned about the provider.
type ChainInfo struct {
	ChainID *big.Int
	Head    uint64
}

// Preflight checks that every block of r already exists on the provider's chain.
func Preflight(ctx context.Context, client IRPCClient, r types.BlockRange) (*ChainInfo, error) {
	head, err := client.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if !head.IsUint64() {
		return nil, fmt.Errorf("chain head %s does not fit in uint64", head)
	}
	info := &ChainInfo{ChainID: client.GetChainID(), Head: head.Uint64()}
	if r.End > info.Head {
		return info, fmt.Errorf("%w: end block %d, head %d", ErrRangeBeyondHead, r.End, info.Head)
	}
	log.Debug().
		Str("chain_id", info.ChainID.String()).
		Uint64("head", info.Head).
		Msg("Preflight passed")
	return info, nil
}
