package types

import (
	"errors"
	"fmt"
)

var ErrInvalidBlockRange = errors.New("invalid block range")

// BlockRange is an inclusive span of block numbers.
type BlockRange struct {
	Start uint64 `json:"start_block"`
	End   uint64 `json:"end_block"`
}

// NewBlockRange validates signed inputs as they come from flags and config.
func NewBlockRange(start, end int64) (BlockRange, error) {
	if start < 0 || end < 0 {
		return BlockRange{}, fmt.Errorf("%w: negative block number (start=%d, end=%d)", ErrInvalidBlockRange, start, end)
	}
	r := BlockRange{Start: uint64(start), End: uint64(end)}
	if err := r.Validate(); err != nil {
		return BlockRange{}, err
	}
	return r, nil
}

func (r BlockRange) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("%w: start block %d is greater than end block %d", ErrInvalidBlockRange, r.Start, r.End)
	}
	return nil
}

func (r BlockRange) Count() uint64 {
	return r.End - r.Start + 1
}

func (r BlockRange) Contains(n uint64) bool {
	return n >= r.Start && n <= r.End
}

func (r BlockRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParquetTransaction is the archived row layout of a transaction. Big numbers are
// kept as decimal strings.
type ParquetTransaction struct {
	ChainId              uint64   `parquet:"chain_id"`
	Hash                 string   `parquet:"hash"`
	Nonce                uint64   `parquet:"nonce"`
	BlockHash            string   `parquet:"block_hash"`
	BlockNumber          uint64   `parquet:"block_number"`
	BlockTimestamp       int64    `parquet:"block_timestamp"`
	TransactionIndex     uint64   `parquet:"transaction_index"`
	FromAddress          string   `parquet:"from_address"`
	ToAddress            *string  `parquet:"to_address"`
	Value                string   `parquet:"value"`
	Gas                  uint64   `parquet:"gas"`
	GasPrice             string   `parquet:"gas_price"`
	Input                string   `parquet:"input,zstd"`
	MaxFeePerGas         *string  `parquet:"max_fee_per_gas"`
	MaxPriorityFeePerGas *string  `parquet:"max_priority_fee_per_gas"`
	TransactionType      int32    `parquet:"transaction_type"`
	MaxFeePerBlobGas     *string  `parquet:"max_fee_per_blob_gas"`
	BlobVersionedHashes  []string `parquet:"blob_versioned_hashes,list"`
}

// ParquetBlock is the archived row layout of a block.
type ParquetBlock struct {
	ChainId          uint64  `parquet:"chain_id"`
	BlockNumber      uint64  `parquet:"block_number"`
	BlockHash        string  `parquet:"block_hash"`
	ParentHash       string  `parquet:"parent_hash"`
	BlockTimestamp   int64   `parquet:"block_timestamp"`
	Miner            string  `parquet:"miner"`
	Size             uint64  `parquet:"size"`
	GasLimit         uint64  `parquet:"gas_limit"`
	GasUsed          uint64  `parquet:"gas_used"`
	TransactionCount uint64  `parquet:"transaction_count"`
	BaseFeePerGas    *string `parquet:"base_fee_per_gas"`
	Difficulty       *string `parquet:"difficulty"`
	ExtraData        string  `parquet:"extra_data"`
	WithdrawalsRoot  string  `parquet:"withdrawals_root"`
	BlobGasUsed      uint64  `parquet:"blob_gas_used"`
	ExcessBlobGas    uint64  `parquet:"excess_blob_gas"`
}
