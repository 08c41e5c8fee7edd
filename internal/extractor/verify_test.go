package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

func writeExports(t *testing.T, blocks, txs string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	blocksPath := filepath.Join(dir, "blocks.csv")
	txsPath := filepath.Join(dir, "transactions.csv")
	require.NoError(t, os.WriteFile(blocksPath, []byte(blocks), 0o644))
	require.NoError(t, os.WriteFile(txsPath, []byte(txs), 0o644))
	return blocksPath, txsPath
}

func TestVerifyReportsMissingBlocks(t *testing.T) {
	blocksPath, txsPath := writeExports(t,
		"number,hash\n100,0xa\n102,0xc\n",
		"hash,block_number\n0x1,100\n")

	summary, err := Verify(types.BlockRange{Start: 100, End: 103}, blocksPath, txsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Blocks)
	assert.Equal(t, 1, summary.Transactions)
	assert.Equal(t, uint64(2), summary.MissingCount)
	assert.Equal(t, []uint64{101, 103}, summary.MissingBlocks)
	assert.Empty(t, summary.UnexpectedBlocks)
	assert.False(t, summary.Complete())
	assert.ErrorIs(t, summary.Err(), ErrIncompleteExport)
}

func TestVerifyReportsBlocksOutsideRange(t *testing.T) {
	blocksPath, txsPath := writeExports(t,
		"number,hash\n7,0xa\n5,0xb\n6,0xc\n",
		"hash,block_number\n")

	summary, err := Verify(types.BlockRange{Start: 5, End: 5}, blocksPath, txsPath)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Blocks)
	assert.Equal(t, 0, summary.Transactions)
	assert.Empty(t, summary.MissingBlocks)
	assert.Equal(t, 2, summary.UnexpectedCount)
	assert.Equal(t, []uint64{6, 7}, summary.UnexpectedBlocks)
	assert.Error(t, summary.Err())
}

func TestVerifyRequiresNumberColumn(t *testing.T) {
	blocksPath, txsPath := writeExports(t, "hash\n0xa\n", "hash\n")

	_, err := Verify(types.BlockRange{Start: 1, End: 1}, blocksPath, txsPath)
	assert.ErrorContains(t, err, "no number column")
}

func TestVerifyMissingTransactionsFile(t *testing.T) {
	blocksPath, _ := writeExports(t, "number\n1\n", "hash\n")

	_, err := Verify(types.BlockRange{Start: 1, End: 1}, blocksPath, filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "failed to read transactions export")
}

func TestVerifyEmptyBlocksFileMissesWholeRange(t *testing.T) {
	blocksPath, txsPath := writeExports(t, "", "")

	summary, err := Verify(types.BlockRange{Start: 10, End: 14}, blocksPath, txsPath)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Blocks)
	assert.Equal(t, 0, summary.Transactions)
	assert.Equal(t, uint64(5), summary.MissingCount)
	assert.Equal(t, []uint64{10, 11, 12, 13, 14}, summary.MissingBlocks)
	assert.ErrorIs(t, summary.Err(), ErrIncompleteExport)
}

func TestVerifyZeroByteTransactionsFile(t *testing.T) {
	blocksPath, txsPath := writeExports(t, "number,hash\n1,0xa\n2,0xb\n", "")

	summary, err := Verify(types.BlockRange{Start: 1, End: 2}, blocksPath, txsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Blocks)
	assert.Equal(t, 0, summary.Transactions)
	assert.True(t, summary.Complete())
	assert.NoError(t, summary.Err())
}

func TestVerifyCapsReportedBlocksOnLargeRanges(t *testing.T) {
	blocksPath, txsPath := writeExports(t, "number\n0\n2\n", "")

	r := types.BlockRange{Start: 0, End: 1 << 40}
	summary, err := Verify(r, blocksPath, txsPath)
	require.NoError(t, err)
	assert.Equal(t, r.Count()-2, summary.MissingCount)
	require.Len(t, summary.MissingBlocks, MaxReportedBlocks)
	assert.Equal(t, uint64(1), summary.MissingBlocks[0])
	assert.Equal(t, uint64(3), summary.MissingBlocks[1])
	assert.Equal(t, uint64(MaxReportedBlocks+1), summary.MissingBlocks[MaxReportedBlocks-1])
	assert.ErrorContains(t, summary.Err(), "1099511627775 missing")
}

func TestVerifyCapsReportedUnexpectedBlocks(t *testing.T) {
	var blocks strings.Builder
	blocks.WriteString("number\n")
	for n := MaxReportedBlocks + 10; n > 0; n-- {
		fmt.Fprintf(&blocks, "%d\n", 100+n)
	}
	blocksPath, txsPath := writeExports(t, blocks.String(), "")

	summary, err := Verify(types.BlockRange{Start: 1, End: 1}, blocksPath, txsPath)
	require.NoError(t, err)
	assert.Equal(t, MaxReportedBlocks+10, summary.UnexpectedCount)
	require.Len(t, summary.UnexpectedBlocks, MaxReportedBlocks)
	assert.Equal(t, uint64(101), summary.UnexpectedBlocks[0])
	assert.Equal(t, uint64(1), summary.MissingCount)
}
