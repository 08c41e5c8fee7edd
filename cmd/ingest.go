package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	configs "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/archive"
	"github.com/thirdweb-dev/eth-ingest/internal/extractor"
	"github.com/thirdweb-dev/eth-ingest/internal/metrics"
	"github.com/thirdweb-dev/eth-ingest/internal/pipeline"
	"github.com/thirdweb-dev/eth-ingest/internal/publisher"
	"github.com/thirdweb-dev/eth-ingest/internal/rpc"
	"github.com/thirdweb-dev/eth-ingest/internal/storage"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
	"github.com/thirdweb-dev/eth-ingest/internal/warehouse"
)

func RunIngest(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	plan, err := planFromConfig(&configs.Cfg)
	if err != nil {
		fail(pipeline.StagePlan, err)
	}

	p, closeAll, err := newPipeline(ctx, &configs.Cfg, plan)
	if err != nil {
		fail(pipeline.StageOf(err), err)
	}
	defer closeAll()

	log.Info().
		Str("range", plan.Range.String()).
		Str("table", plan.Table.String()).
		Msg("Starting ingestion")

	report, err := p.Run(ctx, plan)
	pushMetrics()
	if err != nil {
		closeAll()
		fail(pipeline.StageOf(err), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows into %s.\n", report.Load.OutputRows, plan.Table)
}

// planFromConfig resolves the block range, output paths and destination table.
func planFromConfig(cfg *configs.Config) (pipeline.Plan, error) {
	r, err := types.NewBlockRange(cfg.Extract.StartBlock, cfg.Extract.EndBlock)
	if err != nil {
		return pipeline.Plan{}, err
	}
	table, err := warehouse.ParseTableID(cfg.Warehouse.BigQuery.Table)
	if err != nil {
		return pipeline.Plan{}, err
	}
	if cfg.RPC.ChainID < 0 {
		return pipeline.Plan{}, fmt.Errorf("invalid chain id %d", cfg.RPC.ChainID)
	}
	return pipeline.Plan{
		Range:              r,
		ChainID:            uint64(cfg.RPC.ChainID),
		ProviderURI:        cfg.Extract.ProviderURI,
		BlocksOutput:       outputPath(cfg.Extract.OutputDir, cfg.Extract.BlocksOutput),
		TransactionsOutput: outputPath(cfg.Extract.OutputDir, cfg.Extract.TransactionsOutput),
		SchemaPath:         cfg.Warehouse.BigQuery.SchemaPath,
		Table:              table,
		Strict:             cfg.Extract.Strict,
	}, nil
}

func outputPath(dir string, name string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// newPipeline connects every enabled stage. The returned func closes whatever was opened.
// Errors carry the stage whose dependency could not be set up. The BigQuery client is
// only created by the first load.
func newPipeline(ctx context.Context, cfg *configs.Config, plan pipeline.Plan) (*pipeline.Pipeline, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}
	failed := func(stage string, err error) (*pipeline.Pipeline, func(), error) {
		closeAll()
		return nil, closeAll, &pipeline.StageError{Stage: stage, Err: err}
	}

	p := &pipeline.Pipeline{
		Exporter: extractor.NewExtractor(&cfg.Extract),
	}

	loader, err := warehouse.NewLazyLoader(&cfg.Warehouse.BigQuery, plan.Table.Project)
	if err != nil {
		return failed(pipeline.StageLoad, err)
	}
	closers = append(closers, func() { loader.Close() })
	p.Loader = loader

	if cfg.RPC.Preflight {
		client, err := rpc.Initialize(ctx, plan.ProviderURI)
		if err != nil {
			return failed(pipeline.StagePreflight, fmt.Errorf("failed to initialize RPC: %w", err))
		}
		closers = append(closers, client.Close)
		p.RPC = client
	}

	if cfg.Archive.Enabled {
		uploader, err := archive.NewS3Uploader(ctx, &cfg.Archive.S3)
		if err != nil {
			return failed(pipeline.StageArchive, err)
		}
		archiver, err := archive.NewArchiver(uploader, cfg.Archive.Format)
		if err != nil {
			return failed(pipeline.StageArchive, err)
		}
		p.Archiver = archiver
	}

	if cfg.Mirror.Enabled {
		mirror, err := storage.NewClickHouseMirror(&cfg.Mirror.Clickhouse)
		if err != nil {
			return failed(pipeline.StageMirror, err)
		}
		closers = append(closers, func() { mirror.Close() })
		if err := mirror.EnsureTable(ctx); err != nil {
			return failed(pipeline.StageMirror, err)
		}
		p.Mirror = mirror
	}

	if cfg.Notify.Enabled {
		pub, err := publisher.New(&cfg.Notify.Kafka, plan.ChainID)
		if err != nil {
			return failed(pipeline.StageNotify, err)
		}
		closers = append(closers, func() { pub.Close() })
		p.Notifier = pub
	}

	return p, closeAll, nil
}

func pushMetrics() {
	if err := metrics.Push(configs.Cfg.Metrics.PushGateway, configs.Cfg.Metrics.Job); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}

func fail(stage string, err error) {
	if stage == "" {
		stage = pipeline.StagePlan
	}
	log.Fatal().Err(err).Str("stage", stage).Msg("Ingestion failed")
}
