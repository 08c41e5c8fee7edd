package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	configs "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/pipeline"
	"github.com/thirdweb-dev/eth-ingest/internal/schema"
	"github.com/thirdweb-dev/eth-ingest/internal/warehouse"
)

var (
	loadFile string

	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Only load an existing transactions CSV",
		Long:  "Reads the schema file and loads an already exported transactions CSV into the configured table. Every call appends a new load job.",
		Run:   RunLoad,
	}
)

func init() {
	loadCmd.Flags().StringVar(&loadFile, "file", "", "transactions CSV to load (default is the configured transactions output)")
}

func RunLoad(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg := &configs.Cfg.Warehouse.BigQuery

	table, err := warehouse.ParseTableID(cfg.Table)
	if err != nil {
		fail(pipeline.StagePlan, err)
	}
	path := loadFile
	if path == "" {
		path = outputPath(configs.Cfg.Extract.OutputDir, configs.Cfg.Extract.TransactionsOutput)
	}

	tableSchema, err := schema.LoadBigQuery(cfg.SchemaPath)
	if err != nil {
		fail(pipeline.StageSchema, err)
	}

	loader, err := warehouse.NewBigQueryLoader(ctx, cfg, table.Project)
	if err != nil {
		fail(pipeline.StageLoad, err)
	}
	defer loader.Close()

	result, err := loader.Load(ctx, warehouse.LoadRequest{Path: path, Table: table, Schema: tableSchema})
	pushMetrics()
	if err != nil {
		loader.Close()
		fail(pipeline.StageLoad, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows into %s.\n", result.OutputRows, table)
}
