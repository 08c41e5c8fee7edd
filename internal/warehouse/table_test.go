package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableID(t *testing.T) {
	testCases := []struct {
		input    string
		expected TableID
		wantErr  bool
	}{
		{input: "nansen-technical-test.crypto_ethereum.transactions", expected: TableID{"nansen-technical-test", "crypto_ethereum", "transactions"}},
		{input: "proj:dataset.table", expected: TableID{"proj", "dataset", "table"}},
		{input: "example.com:proj.dataset.table", expected: TableID{"example.com:proj", "dataset", "table"}},
		{input: "  proj.ds.tbl  ", expected: TableID{"proj", "ds", "tbl"}},
		{input: "", wantErr: true},
		{input: "dataset.table", wantErr: true},
		{input: "table", wantErr: true},
		{input: "proj..table", wantErr: true},
		{input: "proj.ds.", wantErr: true},
		{input: ":ds.table", wantErr: true},
		{input: "proj.ds.my table", wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.input, func(t *testing.T) {
			id, err := ParseTableID(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTableID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestTableIDString(t *testing.T) {
	id := TableID{Project: "p", Dataset: "d", Table: "t"}
	assert.Equal(t, "p.d.t", id.String())
}
