package common

import (
	"errors"
	"math/big"
	"strings"
)

var errTransactionTypeRange = errors.New("transaction type does not fit in a byte")

// Transaction is one row of an ethereum-etl transactions export.
type Transaction struct {
	Hash                 string   `json:"hash" ch:"hash"`
	Nonce                uint64   `json:"nonce" ch:"nonce"`
	BlockHash            string   `json:"block_hash" ch:"block_hash"`
	BlockNumber          uint64   `json:"block_number" ch:"block_number"`
	TransactionIndex     uint64   `json:"transaction_index" ch:"transaction_index"`
	FromAddress          string   `json:"from_address" ch:"from_address"`
	ToAddress            string   `json:"to_address" ch:"to_address"`
	Value                *big.Int `json:"value" ch:"value"`
	Gas                  uint64   `json:"gas" ch:"gas"`
	GasPrice             *big.Int `json:"gas_price" ch:"gas_price"`
	Input                string   `json:"input" ch:"data"`
	BlockTimestamp       uint64   `json:"block_timestamp" ch:"block_timestamp"`
	MaxFeePerGas         *big.Int `json:"max_fee_per_gas" ch:"max_fee_per_gas"`
	MaxPriorityFeePerGas *big.Int `json:"max_priority_fee_per_gas" ch:"max_priority_fee_per_gas"`
	TransactionType      uint8    `json:"transaction_type" ch:"transaction_type"`
	MaxFeePerBlobGas     *big.Int `json:"max_fee_per_blob_gas" ch:"max_fee_per_blob_gas"`
	BlobVersionedHashes  []string `json:"blob_versioned_hashes" ch:"blob_versioned_hashes"`
}

// FunctionSelector returns the 4-byte selector of the input data, or "" when the
// input is too short to carry one.
func (t *Transaction) FunctionSelector() string {
	if len(t.Input) < 10 {
		return ""
	}
	return t.Input[0:10]
}

func (t *Transaction) IsContractCreation() bool {
	return t.ToAddress == ""
}

func TransactionFromRow(row Row) (Transaction, error) {
	var (
		tx  Transaction
		err error
	)
	tx.Hash = row.String("hash")
	tx.BlockHash = row.String("block_hash")
	tx.FromAddress = row.String("from_address")
	tx.ToAddress = row.String("to_address")
	tx.Input = row.String("input")

	if tx.Nonce, err = row.Uint64("nonce"); err != nil {
		return tx, err
	}
	if tx.BlockNumber, err = row.Uint64("block_number"); err != nil {
		return tx, err
	}
	if tx.TransactionIndex, err = row.Uint64("transaction_index"); err != nil {
		return tx, err
	}
	if tx.Gas, err = row.Uint64("gas"); err != nil {
		return tx, err
	}
	if tx.BlockTimestamp, err = row.Uint64("block_timestamp"); err != nil {
		return tx, err
	}
	if tx.Value, err = row.BigInt("value"); err != nil {
		return tx, err
	}
	if tx.GasPrice, err = row.BigInt("gas_price"); err != nil {
		return tx, err
	}
	if tx.MaxFeePerGas, err = row.BigInt("max_fee_per_gas"); err != nil {
		return tx, err
	}
	if tx.MaxPriorityFeePerGas, err = row.BigInt("max_priority_fee_per_gas"); err != nil {
		return tx, err
	}
	if tx.MaxFeePerBlobGas, err = row.BigInt("max_fee_per_blob_gas"); err != nil {
		return tx, err
	}
	txType, err := row.Uint64("transaction_type")
	if err != nil {
		return tx, err
	}
	if txType > 255 {
		return tx, row.columnError("transaction_type", errTransactionTypeRange)
	}
	tx.TransactionType = uint8(txType)
	tx.BlobVersionedHashes = splitHashList(row.String("blob_versioned_hashes"))
	return tx, nil
}

// ReadTransactions decodes every row of a transactions export.
func ReadTransactions(path string) ([]Transaction, error) {
	txs := []Transaction{}
	_, err := ForEachRow(path, func(row Row) error {
		tx, err := TransactionFromRow(row)
		if err != nil {
			return err
		}
		txs = append(txs, tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// splitHashList accepts both "a,b" and the bracketed "['a', 'b']" list rendering.
func splitHashList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	hashes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			hashes = append(hashes, p)
		}
	}
	return hashes
}
