package storage

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdweb-dev/eth-ingest/internal/common"
)

type fakeConn struct {
	execQueries  []string
	batchQueries []string
	prepareErr   error
}

func (f *fakeConn) Exec(_ context.Context, query string, _ ...any) error {
	f.execQueries = append(f.execQueries, query)
	return nil
}

func (f *fakeConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	f.batchQueries = append(f.batchQueries, query)
	return nil, f.prepareErr
}

func (f *fakeConn) Close() error {
	return nil
}

func TestTransactionRowMatchesFields(t *testing.T) {
	insertedAt := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	tx := common.Transaction{
		Hash:         "0xaa",
		BlockNumber:  23732687,
		ToAddress:    "0xto",
		Value:        big.NewInt(5),
		Input:        "0xa9059cbb00000000",
		MaxFeePerGas: big.NewInt(10),
	}

	row := transactionRow(1, &tx, insertedAt)
	require.Len(t, row, len(defaultTransactionFields))

	values := make(map[string]any, len(row))
	for i, name := range defaultTransactionFields {
		values[name] = row[i]
	}
	assert.Equal(t, big.NewInt(1), values["chain_id"])
	assert.Equal(t, big.NewInt(23732687), values["block_number"])
	assert.Equal(t, big.NewInt(5), values["value"])
	assert.Equal(t, big.NewInt(0), values["gas_price"])
	assert.Equal(t, "0xa9059cbb", values["function_selector"])
	assert.Equal(t, "0xa9059cbb00000000", values["data"])
	assert.Equal(t, big.NewInt(10), values["max_fee_per_gas"])
	assert.Nil(t, values["max_priority_fee_per_gas"])
	assert.Equal(t, []string{}, values["blob_versioned_hashes"])
	assert.Equal(t, insertedAt, values["insert_timestamp"])
}

func TestInsertTransactions(t *testing.T) {
	conn := &fakeConn{}
	m := newClickHouseMirror(conn, "")

	n, err := m.InsertTransactions(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, conn.batchQueries)

	conn.prepareErr = errors.New("connection refused")
	_, err = m.InsertTransactions(context.Background(), 1, []common.Transaction{{Hash: "0xaa"}})
	assert.ErrorContains(t, err, "connection refused")
	require.Len(t, conn.batchQueries, 1)
	assert.Contains(t, conn.batchQueries[0], "INSERT INTO default.transactions (chain_id, hash, nonce")
}

func TestEnsureTable(t *testing.T) {
	conn := &fakeConn{}
	m := newClickHouseMirror(conn, "ethereum")

	require.NoError(t, m.EnsureTable(context.Background()))
	require.Len(t, conn.execQueries, 1)
	assert.Contains(t, conn.execQueries[0], "CREATE TABLE IF NOT EXISTS ethereum.transactions")
	assert.Contains(t, conn.execQueries[0], "ReplacingMergeTree")
}
