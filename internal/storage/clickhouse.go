package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"
	config "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/common"
	"github.com/thirdweb-dev/eth-ingest/internal/metrics"
)

var defaultTransactionFields = []string{
	"chain_id", "hash", "nonce", "block_hash", "block_number", "block_timestamp",
	"transaction_index", "from_address", "to_address", "value", "gas", "gas_price",
	"data", "function_selector", "max_fee_per_gas", "max_priority_fee_per_gas",
	"max_fee_per_blob_gas", "blob_versioned_hashes", "transaction_type",
	"insert_timestamp", "is_deleted",
}

const createTransactionsTable = `CREATE TABLE IF NOT EXISTS %s.transactions (
    chain_id UInt256,
    hash FixedString(66),
    nonce UInt64,
    block_hash FixedString(66),
    block_number UInt256,
    block_timestamp DateTime CODEC(Delta, ZSTD),
    transaction_index UInt64,
    from_address FixedString(42),
    to_address String,
    value UInt256,
    gas UInt64,
    gas_price UInt256,
    data String CODEC(ZSTD),
    function_selector String,
    max_fee_per_gas Nullable(UInt256),
    max_priority_fee_per_gas Nullable(UInt256),
    max_fee_per_blob_gas Nullable(UInt256),
    blob_versioned_hashes Array(String),
    transaction_type UInt8,
    insert_timestamp DateTime DEFAULT now(),
    is_deleted UInt8 DEFAULT 0
) ENGINE = ReplacingMergeTree(insert_timestamp, is_deleted)
ORDER BY (chain_id, block_number, hash)`

// clickhouseConn is the part of clickhouse.Conn the mirror uses.
type clickhouseConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Close() error
}

// ClickHouseMirror copies loaded transactions into a ReplacingMergeTree table keyed by
// (chain_id, block_number, hash).
type ClickHouseMirror struct {
	conn     clickhouseConn
	database string
}

func NewClickHouseMirror(cfg *config.ClickhouseConfig) (*ClickHouseMirror, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Protocol: clickhouse.Native,
		TLS: func() *tls.Config {
			if cfg.EnableTLS {
				return &tls.Config{}
			}
			return nil
		}(),
		Auth: clickhouse.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
			Database: cfg.Database,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return newClickHouseMirror(conn, cfg.Database), nil
}

func newClickHouseMirror(conn clickhouseConn, database string) *ClickHouseMirror {
	if database == "" {
		database = "default"
	}
	return &ClickHouseMirror{conn: conn, database: database}
}

func (m *ClickHouseMirror) EnsureTable(ctx context.Context) error {
	if err := m.conn.Exec(ctx, fmt.Sprintf(createTransactionsTable, m.database)); err != nil {
		return fmt.Errorf("failed to create %s.transactions: %w", m.database, err)
	}
	return nil
}

func (m *ClickHouseMirror) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s.transactions (%s)", m.database, strings.Join(defaultTransactionFields, ", "))
}

// InsertTransactions writes txs in a single batch and returns the number of rows sent.
func (m *ClickHouseMirror) InsertTransactions(ctx context.Context, chainID uint64, txs []common.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	batch, err := m.conn.PrepareBatch(ctx, m.insertQuery())
	if err != nil {
		return 0, fmt.Errorf("failed to prepare transactions batch: %w", err)
	}

	now := time.Now().UTC()
	for i := range txs {
		if err := batch.Append(transactionRow(chainID, &txs[i], now)...); err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("failed to append transaction %s: %w", txs[i].Hash, err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send transactions batch: %w", err)
	}

	metrics.ClickHouseTransactionsInserted.Add(float64(len(txs)))
	log.Debug().Int("count", len(txs)).Str("database", m.database).Msg("Inserted transactions into ClickHouse")
	return len(txs), nil
}

func (m *ClickHouseMirror) Close() error {
	return m.conn.Close()
}

// transactionRow returns the column values of tx in defaultTransactionFields order.
func transactionRow(chainID uint64, tx *common.Transaction, insertedAt time.Time) []any {
	hashes := tx.BlobVersionedHashes
	if hashes == nil {
		hashes = []string{}
	}
	return []any{
		new(big.Int).SetUint64(chainID),
		tx.Hash,
		tx.Nonce,
		tx.BlockHash,
		new(big.Int).SetUint64(tx.BlockNumber),
		time.Unix(int64(tx.BlockTimestamp), 0).UTC(),
		tx.TransactionIndex,
		tx.FromAddress,
		tx.ToAddress,
		zeroIfNil(tx.Value),
		tx.Gas,
		zeroIfNil(tx.GasPrice),
		tx.Input,
		tx.FunctionSelector(),
		tx.MaxFeePerGas,
		tx.MaxPriorityFeePerGas,
		tx.MaxFeePerBlobGas,
		hashes,
		tx.TransactionType,
		insertedAt,
		uint8(0),
	}
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
