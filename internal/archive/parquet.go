package archive

import (
	"fmt"
	"math/big"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/thirdweb-dev/eth-ingest/internal/common"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

var writerOptions = []parquet.WriterOption{
	parquet.Compression(&parquet.Zstd),
	parquet.DataPageStatistics(true),
	parquet.PageBufferSize(8 * 1024 * 1024), // 8MB pages
}

func ToParquetTransactions(chainID uint64, txs []common.Transaction) []types.ParquetTransaction {
	rows := make([]types.ParquetTransaction, 0, len(txs))
	for _, tx := range txs {
		row := types.ParquetTransaction{
			ChainId:              chainID,
			Hash:                 tx.Hash,
			Nonce:                tx.Nonce,
			BlockHash:            tx.BlockHash,
			BlockNumber:          tx.BlockNumber,
			BlockTimestamp:       int64(tx.BlockTimestamp),
			TransactionIndex:     tx.TransactionIndex,
			FromAddress:          tx.FromAddress,
			Value:                decimalOrZero(tx.Value),
			Gas:                  tx.Gas,
			GasPrice:             decimalOrZero(tx.GasPrice),
			Input:                tx.Input,
			MaxFeePerGas:         optionalDecimal(tx.MaxFeePerGas),
			MaxPriorityFeePerGas: optionalDecimal(tx.MaxPriorityFeePerGas),
			TransactionType:      int32(tx.TransactionType),
			MaxFeePerBlobGas:     optionalDecimal(tx.MaxFeePerBlobGas),
			BlobVersionedHashes:  tx.BlobVersionedHashes,
		}
		if !tx.IsContractCreation() {
			to := tx.ToAddress
			row.ToAddress = &to
		}
		rows = append(rows, row)
	}
	return rows
}

func ToParquetBlocks(chainID uint64, blocks []common.Block) []types.ParquetBlock {
	rows := make([]types.ParquetBlock, 0, len(blocks))
	for _, b := range blocks {
		rows = append(rows, types.ParquetBlock{
			ChainId:          chainID,
			BlockNumber:      b.Number,
			BlockHash:        b.Hash,
			ParentHash:       b.ParentHash,
			BlockTimestamp:   b.Timestamp.Unix(),
			Miner:            b.Miner,
			Size:             b.Size,
			GasLimit:         b.GasLimit,
			GasUsed:          b.GasUsed,
			TransactionCount: b.TransactionCount,
			BaseFeePerGas:    optionalDecimal(b.BaseFeePerGas),
			Difficulty:       optionalDecimal(b.Difficulty),
			ExtraData:        b.ExtraData,
			WithdrawalsRoot:  b.WithdrawalsRoot,
			BlobGasUsed:      b.BlobGasUsed,
			ExcessBlobGas:    b.ExcessBlobGas,
		})
	}
	return rows
}

// writeParquetFile writes rows to a new temporary file and returns it positioned at
// the start. The caller owns closing and removing it.
func writeParquetFile[T any](rows []T) (*os.File, error) {
	file, err := os.CreateTemp("", "eth-ingest-*.parquet")
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](file, writerOptions...)
	if _, err := writer.Write(rows); err != nil {
		discard(file)
		return nil, fmt.Errorf("failed to write parquet data: %w", err)
	}
	if err := writer.Close(); err != nil {
		discard(file)
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		discard(file)
		return nil, fmt.Errorf("failed to seek to beginning of file: %w", err)
	}
	return file, nil
}

func discard(file *os.File) {
	file.Close()
	os.Remove(file.Name())
}

func decimalOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optionalDecimal(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
