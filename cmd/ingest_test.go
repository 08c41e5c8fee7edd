package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	configs "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/pipeline"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
	"github.com/thirdweb-dev/eth-ingest/internal/warehouse"
)

func testConfig() *configs.Config {
	cfg := &configs.Config{}
	cfg.Extract.StartBlock = 23732687
	cfg.Extract.EndBlock = 23732691
	cfg.Extract.ProviderURI = "https://mainnet.example/v3/key"
	cfg.Extract.OutputDir = "output"
	cfg.Extract.BlocksOutput = "blocks.csv"
	cfg.Extract.TransactionsOutput = "transactions.csv"
	cfg.RPC.ChainID = 1
	cfg.Warehouse.BigQuery.Table = "nansen-technical-test.crypto_ethereum.transactions"
	cfg.Warehouse.BigQuery.SchemaPath = "assets/transactions_schema.json"
	return cfg
}

func TestPlanFromConfig(t *testing.T) {
	plan, err := planFromConfig(testConfig())
	require.NoError(t, err)

	assert.Equal(t, types.BlockRange{Start: 23732687, End: 23732691}, plan.Range)
	assert.Equal(t, uint64(1), plan.ChainID)
	assert.Equal(t, filepath.Join("output", "blocks.csv"), plan.BlocksOutput)
	assert.Equal(t, filepath.Join("output", "transactions.csv"), plan.TransactionsOutput)
	assert.Equal(t, warehouse.TableID{Project: "nansen-technical-test", Dataset: "crypto_ethereum", Table: "transactions"}, plan.Table)
	assert.False(t, plan.Strict)
}

func TestPlanFromConfigRejectsBadInput(t *testing.T) {
	cfg := testConfig()
	cfg.Extract.StartBlock = 23732692
	_, err := planFromConfig(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidBlockRange)

	cfg = testConfig()
	cfg.Extract.StartBlock = -1
	_, err = planFromConfig(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidBlockRange)

	cfg = testConfig()
	cfg.Warehouse.BigQuery.Table = "transactions"
	_, err = planFromConfig(cfg)
	assert.ErrorIs(t, err, warehouse.ErrInvalidTableID)

	cfg = testConfig()
	cfg.RPC.ChainID = -1
	_, err = planFromConfig(cfg)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("output", "blocks.csv"), outputPath("output", "blocks.csv"))
	assert.Equal(t, "blocks.csv", outputPath("", "blocks.csv"))
	assert.Equal(t, "/data/blocks.csv", outputPath("output", "/data/blocks.csv"))
}

func TestNewPipelineReportsRPCFailureAsPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.RPC.Preflight = true
	plan, err := planFromConfig(cfg)
	require.NoError(t, err)
	plan.ProviderURI = ""

	p, closeAll, err := newPipeline(context.Background(), cfg, plan)
	require.Error(t, err)
	defer closeAll()

	assert.Nil(t, p)
	assert.Equal(t, pipeline.StagePreflight, pipeline.StageOf(err))
	assert.ErrorContains(t, err, "failed to initialize RPC")
}

func TestNewPipelineWithoutCredentials(t *testing.T) {
	t.Setenv(warehouse.CredentialsEnvVar, "")
	cfg := testConfig()
	cfg.Warehouse.BigQuery.CredentialsFile = filepath.Join(t.TempDir(), "gcp-key.json")
	plan, err := planFromConfig(cfg)
	require.NoError(t, err)

	p, closeAll, err := newPipeline(context.Background(), cfg, plan)
	require.NoError(t, err)
	defer closeAll()

	assert.NotNil(t, p.Exporter)
	assert.NotNil(t, p.Loader)
	assert.Nil(t, p.RPC)
	assert.Nil(t, p.Archiver)
	assert.Nil(t, p.Mirror)
	assert.Nil(t, p.Notifier)
	assert.Equal(t, "", os.Getenv(warehouse.CredentialsEnvVar))
}

func TestNewPipelineReportsLoaderConfigAsLoad(t *testing.T) {
	cfg := testConfig()
	cfg.Warehouse.BigQuery.WriteDisposition = "sometimes"
	plan, err := planFromConfig(cfg)
	require.NoError(t, err)

	_, closeAll, err := newPipeline(context.Background(), cfg, plan)
	defer closeAll()
	assert.Equal(t, pipeline.StageLoad, pipeline.StageOf(err))
}
