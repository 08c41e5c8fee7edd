package extractor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/thirdweb-dev/eth-ingest/internal/common"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

var ErrIncompleteExport = errors.New("export does not cover the requested block range")

// MaxReportedBlocks bounds the block numbers listed in an ExportSummary. The counts stay exact.
const MaxReportedBlocks = 1000

// ExportSummary describes what an export actually contains relative to the requested range.
// MissingBlocks and UnexpectedBlocks hold at most MaxReportedBlocks of the lowest numbers.
type ExportSummary struct {
	Range            types.BlockRange
	Blocks           int
	Transactions     int
	MissingCount     uint64
	MissingBlocks    []uint64
	UnexpectedCount  int
	UnexpectedBlocks []uint64
}

func (s ExportSummary) Complete() bool {
	return s.MissingCount == 0 && s.UnexpectedCount == 0
}

// Err reports an incomplete export as ErrIncompleteExport; complete exports return nil.
func (s ExportSummary) Err() error {
	if s.Complete() {
		return nil
	}
	return fmt.Errorf("%w %s: %d missing, %d outside the range",
		ErrIncompleteExport, s.Range, s.MissingCount, s.UnexpectedCount)
}

// Verify counts the rows of both export files and compares the block numbers in the
// blocks file against the requested range. It does not validate row contents.
func Verify(r types.BlockRange, blocksPath string, transactionsPath string) (ExportSummary, error) {
	summary := ExportSummary{Range: r}

	seen := make(map[uint64]struct{}, min(r.Count(), MaxReportedBlocks))
	var unexpected []uint64
	blocks, err := common.ForEachRow(blocksPath, func(row common.Row) error {
		if !row.Has("number") {
			return fmt.Errorf("%s has no number column", blocksPath)
		}
		n, err := row.Uint64("number")
		if err != nil {
			return err
		}
		if !r.Contains(n) {
			unexpected = append(unexpected, n)
			return nil
		}
		seen[n] = struct{}{}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("failed to read blocks export: %w", err)
	}
	summary.Blocks = blocks

	summary.MissingCount = r.Count() - uint64(len(seen))
	summary.MissingBlocks = missingBlocks(r, seen, summary.MissingCount)

	sort.Slice(unexpected, func(i, j int) bool { return unexpected[i] < unexpected[j] })
	summary.UnexpectedCount = len(unexpected)
	summary.UnexpectedBlocks = unexpected[:min(len(unexpected), MaxReportedBlocks)]

	transactions, err := common.CountRows(transactionsPath)
	if err != nil {
		return summary, fmt.Errorf("failed to read transactions export: %w", err)
	}
	summary.Transactions = transactions
	return summary, nil
}

// missingBlocks lists the lowest block numbers of r absent from seen. The walk stops
// after MaxReportedBlocks hits, so it visits at most len(seen)+MaxReportedBlocks numbers.
func missingBlocks(r types.BlockRange, seen map[uint64]struct{}, missing uint64) []uint64 {
	if missing == 0 {
		return nil
	}
	out := make([]uint64, 0, min(missing, MaxReportedBlocks))
	for n := r.Start; len(out) < cap(out); n++ {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
		if n == r.End {
			break
		}
	}
	return out
}
