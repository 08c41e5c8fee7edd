package archive

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thirdweb-dev/eth-ingest/internal/common"
	"github.com/thirdweb-dev/eth-ingest/internal/metrics"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

type Request struct {
	ChainID          uint64
	Range            types.BlockRange
	BlocksPath       string
	TransactionsPath string
}

// Archiver copies a verified export to object storage, either as the raw CSV files
// or re-encoded as parquet.
type Archiver struct {
	uploader *S3Uploader
	format   string
}

func NewArchiver(uploader *S3Uploader, format string) (*Archiver, error) {
	switch format {
	case "", FormatParquet:
		format = FormatParquet
	case FormatCSV:
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
	return &Archiver{uploader: uploader, format: format}, nil
}

func (a *Archiver) Archive(ctx context.Context, req Request) ([]Object, error) {
	start := time.Now()
	var objects []Object

	blocks, err := a.archiveBlocks(ctx, req)
	if err != nil {
		return nil, err
	}
	objects = append(objects, blocks)

	txs, err := a.archiveTransactions(ctx, req)
	if err != nil {
		return objects, err
	}
	objects = append(objects, txs)

	metrics.ArchiveDuration.Observe(time.Since(start).Seconds())
	log.Info().Str("range", req.Range.String()).Str("format", a.format).Int("objects", len(objects)).Msg("Archived export")
	return objects, nil
}

func (a *Archiver) archiveBlocks(ctx context.Context, req Request) (Object, error) {
	if a.format == FormatCSV {
		return a.uploadCSV(ctx, req, "blocks", req.BlocksPath)
	}
	blocks, err := common.ReadBlocks(req.BlocksPath)
	if err != nil {
		return Object{}, err
	}
	file, err := writeParquetFile(ToParquetBlocks(req.ChainID, blocks))
	if err != nil {
		return Object{}, err
	}
	defer discard(file)
	return a.upload(ctx, req, "blocks", file, len(blocks))
}

func (a *Archiver) archiveTransactions(ctx context.Context, req Request) (Object, error) {
	if a.format == FormatCSV {
		return a.uploadCSV(ctx, req, "transactions", req.TransactionsPath)
	}
	txs, err := common.ReadTransactions(req.TransactionsPath)
	if err != nil {
		return Object{}, err
	}
	file, err := writeParquetFile(ToParquetTransactions(req.ChainID, txs))
	if err != nil {
		return Object{}, err
	}
	defer discard(file)
	return a.upload(ctx, req, "transactions", file, len(txs))
}

func (a *Archiver) uploadCSV(ctx context.Context, req Request, kind string, path string) (Object, error) {
	rows, err := common.CountRows(path)
	if err != nil {
		return Object{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return Object{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return a.upload(ctx, req, kind, file, rows)
}

func (a *Archiver) upload(ctx context.Context, req Request, kind string, file *os.File, rows int) (Object, error) {
	contentType := "application/octet-stream"
	if a.format == FormatCSV {
		contentType = "text/csv"
	}
	key := a.uploader.GenerateS3Key(req.ChainID, kind, req.Range, a.format)
	obj, err := a.uploader.Upload(ctx, file, key, contentType, map[string]string{
		"chain_id":    strconv.FormatUint(req.ChainID, 10),
		"start_block": strconv.FormatUint(req.Range.Start, 10),
		"end_block":   strconv.FormatUint(req.Range.End, 10),
		"row_count":   strconv.Itoa(rows),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Object{}, err
	}
	obj.Kind = kind
	obj.Rows = rows
	return obj, nil
}
