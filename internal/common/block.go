package common

import (
	"math/big"
	"time"
)

// Block is one row of an ethereum-etl blocks export.
type Block struct {
	Number           uint64
	Hash             string
	ParentHash       string
	Nonce            string
	Sha3Uncles       string
	LogsBloom        string
	TransactionsRoot string
	StateRoot        string
	ReceiptsRoot     string
	Miner            string
	Difficulty       *big.Int
	TotalDifficulty  *big.Int
	Size             uint64
	ExtraData        string
	GasLimit         uint64
	GasUsed          uint64
	Timestamp        time.Time
	TransactionCount uint64
	BaseFeePerGas    *big.Int
	WithdrawalsRoot  string
	BlobGasUsed      uint64
	ExcessBlobGas    uint64
}

func BlockFromRow(row Row) (Block, error) {
	var (
		b   Block
		err error
	)
	b.Hash = row.String("hash")
	b.ParentHash = row.String("parent_hash")
	b.Nonce = row.String("nonce")
	b.Sha3Uncles = row.String("sha3_uncles")
	b.LogsBloom = row.String("logs_bloom")
	b.TransactionsRoot = row.String("transactions_root")
	b.StateRoot = row.String("state_root")
	b.ReceiptsRoot = row.String("receipts_root")
	b.Miner = row.String("miner")
	b.ExtraData = row.String("extra_data")
	b.WithdrawalsRoot = row.String("withdrawals_root")

	if b.Number, err = row.Uint64("number"); err != nil {
		return b, err
	}
	if b.Size, err = row.Uint64("size"); err != nil {
		return b, err
	}
	if b.GasLimit, err = row.Uint64("gas_limit"); err != nil {
		return b, err
	}
	if b.GasUsed, err = row.Uint64("gas_used"); err != nil {
		return b, err
	}
	if b.TransactionCount, err = row.Uint64("transaction_count"); err != nil {
		return b, err
	}
	if b.BlobGasUsed, err = row.Uint64("blob_gas_used"); err != nil {
		return b, err
	}
	if b.ExcessBlobGas, err = row.Uint64("excess_blob_gas"); err != nil {
		return b, err
	}
	if b.Difficulty, err = row.BigInt("difficulty"); err != nil {
		return b, err
	}
	if b.TotalDifficulty, err = row.BigInt("total_difficulty"); err != nil {
		return b, err
	}
	if b.BaseFeePerGas, err = row.BigInt("base_fee_per_gas"); err != nil {
		return b, err
	}
	ts, err := row.Uint64("timestamp")
	if err != nil {
		return b, err
	}
	b.Timestamp = time.Unix(int64(ts), 0).UTC()
	return b, nil
}

// ReadBlocks decodes every row of a blocks export.
func ReadBlocks(path string) ([]Block, error) {
	blocks := []Block{}
	_, err := ForEachRow(path, func(row Row) error {
		b, err := BlockFromRow(row)
		if err != nil {
			return err
		}
		blocks = append(blocks, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}
