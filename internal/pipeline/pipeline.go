package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/thirdweb-dev/eth-ingest/internal/archive"
	"github.com/thirdweb-dev/eth-ingest/internal/common"
	"github.com/thirdweb-dev/eth-ingest/internal/extractor"
	"github.com/thirdweb-dev/eth-ingest/internal/metrics"
	"github.com/thirdweb-dev/eth-ingest/internal/publisher"
	"github.com/thirdweb-dev/eth-ingest/internal/rpc"
	"github.com/thirdweb-dev/eth-ingest/internal/schema"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
	"github.com/thirdweb-dev/eth-ingest/internal/warehouse"
)

const (
	StagePlan      = "plan"
	StagePreflight = "preflight"
	StageExtract   = "extract"
	StageVerify    = "verify"
	StageArchive   = "archive"
	StageSchema    = "schema"
	StageLoad      = "load"
	StageMirror    = "mirror"
	StageNotify    = "notify"
)

type Exporter interface {
	Export(ctx context.Context, req extractor.Request) error
}

type Loader interface {
	Load(ctx context.Context, req warehouse.LoadRequest) (*warehouse.LoadResult, error)
}

type Archiver interface {
	Archive(ctx context.Context, req archive.Request) ([]archive.Object, error)
}

type Mirror interface {
	InsertTransactions(ctx context.Context, chainID uint64, txs []common.Transaction) (int, error)
}

type Notifier interface {
	PublishIngestionCompleted(ctx context.Context, event publisher.IngestionCompleted) error
}

type VerifyFunc func(r types.BlockRange, blocksPath string, transactionsPath string) (extractor.ExportSummary, error)

type SchemaSource func(path string) (bigquery.Schema, error)

// Pipeline runs the ingestion stages in order. Exporter and Loader are required;
// RPC, Archiver, Mirror and Notifier are skipped when nil.
type Pipeline struct {
	Exporter Exporter
	Loader   Loader
	RPC      rpc.IRPCClient
	Archiver Archiver
	Mirror   Mirror
	Notifier Notifier
	Verify   VerifyFunc
	Schema   SchemaSource
}

// Plan is one ingestion run over a fixed block range.
type Plan struct {
	Range              types.BlockRange
	ChainID            uint64
	ProviderURI        string
	BlocksOutput       string
	TransactionsOutput string
	SchemaPath         string
	Table              warehouse.TableID
	Strict             bool
}

type Report struct {
	Range    types.BlockRange
	ChainID  uint64
	Export   extractor.ExportSummary
	Load     *warehouse.LoadResult
	Archived []archive.Object
	Mirrored int
}

// StageError carries the stage a run stopped at.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err, or "" when err did not come from Run.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func (p *Pipeline) Run(ctx context.Context, plan Plan) (report *Report, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
			metrics.StageFailures.WithLabelValues(StageOf(err)).Inc()
		}
		metrics.Runs.WithLabelValues(status).Inc()
	}()

	if err := plan.Range.Validate(); err != nil {
		return nil, stageErr(StagePlan, err)
	}
	if p.Exporter == nil || p.Loader == nil {
		return nil, stageErr(StagePlan, errors.New("pipeline needs an exporter and a loader"))
	}

	logger := log.With().Str("range", plan.Range.String()).Logger()
	report = &Report{Range: plan.Range, ChainID: plan.ChainID}

	if p.RPC != nil {
		if err := p.preflight(ctx, plan, report, logger); err != nil {
			return report, stageErr(StagePreflight, err)
		}
	}

	logger.Info().Uint64("blocks", plan.Range.Count()).Msg("Exporting blocks and transactions")
	start := time.Now()
	err = p.Exporter.Export(ctx, extractor.Request{
		Range:              plan.Range,
		ProviderURI:        plan.ProviderURI,
		BlocksOutput:       plan.BlocksOutput,
		TransactionsOutput: plan.TransactionsOutput,
	})
	if err != nil {
		return report, stageErr(StageExtract, err)
	}
	metrics.ExtractDuration.Observe(time.Since(start).Seconds())

	if err := p.verify(plan, report, logger); err != nil {
		return report, stageErr(StageVerify, err)
	}

	if p.Archiver != nil {
		objects, err := p.Archiver.Archive(ctx, archive.Request{
			ChainID:          report.ChainID,
			Range:            plan.Range,
			BlocksPath:       plan.BlocksOutput,
			TransactionsPath: plan.TransactionsOutput,
		})
		if err != nil {
			return report, stageErr(StageArchive, err)
		}
		report.Archived = objects
	}

	loadSchema := p.Schema
	if loadSchema == nil {
		loadSchema = schema.LoadBigQuery
	}
	tableSchema, err := loadSchema(plan.SchemaPath)
	if err != nil {
		return report, stageErr(StageSchema, err)
	}
	logger.Debug().Int("columns", len(tableSchema)).Str("path", plan.SchemaPath).Msg("Loaded schema")

	if err := p.load(ctx, plan, tableSchema, report, logger); err != nil {
		return report, stageErr(StageLoad, err)
	}

	if p.Mirror != nil {
		txs, err := common.ReadTransactions(plan.TransactionsOutput)
		if err != nil {
			return report, stageErr(StageMirror, err)
		}
		n, err := p.Mirror.InsertTransactions(ctx, report.ChainID, txs)
		if err != nil {
			return report, stageErr(StageMirror, err)
		}
		report.Mirrored = n
	}

	if p.Notifier != nil {
		if err := p.Notifier.PublishIngestionCompleted(ctx, completionEvent(report)); err != nil {
			return report, stageErr(StageNotify, err)
		}
	}

	return report, nil
}

func (p *Pipeline) preflight(ctx context.Context, plan Plan, report *Report, logger zerolog.Logger) error {
	info, err := rpc.Preflight(ctx, p.RPC, plan.Range)
	if err != nil {
		return err
	}
	if info.ChainID == nil || !info.ChainID.IsUint64() {
		return nil
	}
	chainID := info.ChainID.Uint64()
	if plan.ChainID != 0 && plan.ChainID != chainID {
		logger.Warn().Uint64("configured", plan.ChainID).Uint64("provider", chainID).Msg("Provider chain id differs from configured chain id")
	}
	report.ChainID = chainID
	return nil
}

func (p *Pipeline) verify(plan Plan, report *Report, logger zerolog.Logger) error {
	verify := p.Verify
	if verify == nil {
		verify = extractor.Verify
	}
	summary, err := verify(plan.Range, plan.BlocksOutput, plan.TransactionsOutput)
	if err != nil {
		return err
	}
	report.Export = summary

	metrics.ExportedBlocks.Set(float64(summary.Blocks))
	metrics.ExportedTransactions.Set(float64(summary.Transactions))
	metrics.MissingBlocks.Set(float64(summary.MissingCount))

	if summary.Complete() {
		logger.Info().Int("blocks", summary.Blocks).Int("transactions", summary.Transactions).Msg("Export complete")
		return nil
	}
	if plan.Strict {
		return summary.Err()
	}
	logger.Warn().
		Uint64("missing", summary.MissingCount).
		Int("unexpected", summary.UnexpectedCount).
		Uints64("missing_blocks", summary.MissingBlocks).
		Uints64("unexpected_blocks", summary.UnexpectedBlocks).
		Msg("Export does not cover the requested range, loading it anyway")
	return nil
}

func (p *Pipeline) load(ctx context.Context, plan Plan, tableSchema bigquery.Schema, report *Report, logger zerolog.Logger) error {
	start := time.Now()
	result, err := p.Loader.Load(ctx, warehouse.LoadRequest{
		Path:   plan.TransactionsOutput,
		Table:  plan.Table,
		Schema: tableSchema,
		Labels: map[string]string{
			"tool":        "eth-ingest",
			"start_block": strconv.FormatUint(plan.Range.Start, 10),
			"end_block":   strconv.FormatUint(plan.Range.End, 10),
		},
	})
	if err != nil {
		return err
	}
	report.Load = result

	metrics.LoadDuration.Observe(time.Since(start).Seconds())
	metrics.RowsLoaded.Add(float64(result.OutputRows))
	metrics.LastLoadedBlock.Set(float64(plan.Range.End))

	if result.OutputRows != int64(report.Export.Transactions) {
		logger.Warn().
			Int64("output_rows", result.OutputRows).
			Int("exported_transactions", report.Export.Transactions).
			Msg("Loaded row count differs from exported transaction count")
	}
	return nil
}

func completionEvent(report *Report) publisher.IngestionCompleted {
	event := publisher.IngestionCompleted{
		ChainID:      report.ChainID,
		Range:        report.Range,
		Transactions: report.Export.Transactions,
		Blocks:       report.Export.Blocks,
	}
	if report.Load != nil {
		event.Table = report.Load.Table.String()
		event.JobID = report.Load.JobID
		event.RowsLoaded = report.Load.OutputRows
	}
	for _, obj := range report.Archived {
		event.ArchiveKeys = append(event.ArchiveKeys, obj.Key)
	}
	return event
}
