package common

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBlocks(t *testing.T) {
	path := writeFile(t, "blocks.csv",
		"number,hash,parent_hash,nonce,sha3_uncles,logs_bloom,transactions_root,state_root,receipts_root,miner,difficulty,total_difficulty,size,extra_data,gas_limit,gas_used,timestamp,transaction_count,base_fee_per_gas,withdrawals_root,withdrawals,blob_gas_used,excess_blob_gas\n"+
			"23732687,0xh1,0xp1,0x0000000000000000,0xu,0xl,0xt,0xs,0xr,0xminer,0,,1234,0x,45000000,30000000,1762300000,180,312345678,0xw,[],131072,0\n")

	blocks, err := ReadBlocks(path)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, uint64(23732687), b.Number)
	assert.Equal(t, "0xh1", b.Hash)
	assert.Equal(t, big.NewInt(0), b.Difficulty)
	assert.Nil(t, b.TotalDifficulty)
	assert.Equal(t, uint64(180), b.TransactionCount)
	assert.Equal(t, big.NewInt(312345678), b.BaseFeePerGas)
	assert.Equal(t, time.Unix(1762300000, 0).UTC(), b.Timestamp)
	assert.Equal(t, uint64(131072), b.BlobGasUsed)
}
