package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	configs "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/extractor"
	"github.com/thirdweb-dev/eth-ingest/internal/pipeline"
	"github.com/thirdweb-dev/eth-ingest/internal/rpc"
)

var (
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Only export the block range to CSV",
		Long:  "Runs the preflight check and ethereumetl for the configured range and reports what the export contains. Nothing is loaded.",
		Run:   RunExport,
	}
)

func RunExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	plan, err := planFromConfig(&configs.Cfg)
	if err != nil {
		fail(pipeline.StagePlan, err)
	}

	if configs.Cfg.RPC.Preflight {
		client, err := rpc.Initialize(ctx, plan.ProviderURI)
		if err != nil {
			fail(pipeline.StagePreflight, err)
		}
		_, err = rpc.Preflight(ctx, client, plan.Range)
		client.Close()
		if err != nil {
			fail(pipeline.StagePreflight, err)
		}
	}

	err = extractor.NewExtractor(&configs.Cfg.Extract).Export(ctx, extractor.Request{
		Range:              plan.Range,
		ProviderURI:        plan.ProviderURI,
		BlocksOutput:       plan.BlocksOutput,
		TransactionsOutput: plan.TransactionsOutput,
	})
	if err != nil {
		fail(pipeline.StageExtract, err)
	}

	summary, err := extractor.Verify(plan.Range, plan.BlocksOutput, plan.TransactionsOutput)
	if err != nil {
		fail(pipeline.StageVerify, err)
	}
	if plan.Strict {
		if err := summary.Err(); err != nil {
			fail(pipeline.StageVerify, err)
		}
	}

	log.Info().
		Int("blocks", summary.Blocks).
		Int("transactions", summary.Transactions).
		Uint64("missing", summary.MissingCount).
		Uints64("missing_blocks", summary.MissingBlocks).
		Str("blocks_output", plan.BlocksOutput).
		Str("transactions_output", plan.TransactionsOutput).
		Msg("Export finished")
}
