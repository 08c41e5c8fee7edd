package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	configs "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/env"
	customLogger "github.com/thirdweb-dev/eth-ingest/internal/log"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "eth-ingest",
		Short: "Export an Ethereum block range with ethereum-etl and load its transactions into BigQuery",
		Long: "eth-ingest runs ethereumetl export_blocks_and_transactions for a fixed block range, " +
			"checks the export, and loads the transactions CSV into a BigQuery table under an explicit schema. " +
			"Archiving to S3, mirroring to ClickHouse and a Kafka completion event are optional.",
		Run: RunIngest,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level to use for the application")
	rootCmd.PersistentFlags().Bool("log-prettify", false, "Whether to prettify the log output")
	rootCmd.PersistentFlags().Int64("start-block", 0, "First block of the range to ingest")
	rootCmd.PersistentFlags().Int64("end-block", 0, "Last block of the range to ingest, inclusive")
	rootCmd.PersistentFlags().String("provider-uri", "", "Ethereum JSON-RPC endpoint passed to ethereumetl")
	rootCmd.PersistentFlags().String("extract-command", "", "Path or name of the ethereumetl executable")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory the CSV exports are written to")
	rootCmd.PersistentFlags().Int("extract-batch-size", 0, "ethereumetl --batch-size, 0 keeps the tool default")
	rootCmd.PersistentFlags().Int("extract-max-workers", 0, "ethereumetl --max-workers, 0 keeps the tool default")
	rootCmd.PersistentFlags().Bool("strict", false, "Fail when the export does not cover every block of the range")
	rootCmd.PersistentFlags().Bool("rpc-preflight", true, "Check the range against the provider's chain head before exporting")
	rootCmd.PersistentFlags().Int64("chain-id", 0, "Chain id recorded in archives, mirror rows and events")
	rootCmd.PersistentFlags().String("table", "", "Destination table as project.dataset.table")
	rootCmd.PersistentFlags().String("schema", "", "Path to the JSON schema file of the destination table")
	rootCmd.PersistentFlags().String("credentials-file", "", "Service account key file exported as GOOGLE_APPLICATION_CREDENTIALS")
	rootCmd.PersistentFlags().String("project", "", "Project billed for the load job, defaults to the table's project")
	rootCmd.PersistentFlags().String("write-disposition", "", "WRITE_APPEND, WRITE_TRUNCATE or WRITE_EMPTY")
	rootCmd.PersistentFlags().Bool("archive-enabled", false, "Upload the export to S3")
	rootCmd.PersistentFlags().String("archive-format", "", "Archive format, parquet or csv")
	rootCmd.PersistentFlags().String("archive-s3-bucket", "", "S3 bucket for archives")
	rootCmd.PersistentFlags().String("archive-s3-region", "", "S3 region for archives")
	rootCmd.PersistentFlags().Bool("mirror-enabled", false, "Insert the loaded transactions into ClickHouse")
	rootCmd.PersistentFlags().String("mirror-clickhouse-host", "", "Clickhouse host for the mirror")
	rootCmd.PersistentFlags().Int("mirror-clickhouse-port", 0, "Clickhouse port for the mirror")
	rootCmd.PersistentFlags().String("mirror-clickhouse-database", "", "Clickhouse database for the mirror")
	rootCmd.PersistentFlags().Bool("notify-enabled", false, "Publish an ingestion_completed event to Kafka")
	rootCmd.PersistentFlags().String("notify-kafka-brokers", "", "Comma separated Kafka brokers")
	rootCmd.PersistentFlags().String("notify-kafka-topic", "", "Kafka topic for completion events")
	rootCmd.PersistentFlags().String("metrics-push-gateway", "", "Prometheus Pushgateway URL, empty disables pushing")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.prettify", rootCmd.PersistentFlags().Lookup("log-prettify"))
	viper.BindPFlag("extract.startBlock", rootCmd.PersistentFlags().Lookup("start-block"))
	viper.BindPFlag("extract.endBlock", rootCmd.PersistentFlags().Lookup("end-block"))
	viper.BindPFlag("extract.providerUri", rootCmd.PersistentFlags().Lookup("provider-uri"))
	viper.BindPFlag("extract.command", rootCmd.PersistentFlags().Lookup("extract-command"))
	viper.BindPFlag("extract.outputDir", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("extract.batchSize", rootCmd.PersistentFlags().Lookup("extract-batch-size"))
	viper.BindPFlag("extract.maxWorkers", rootCmd.PersistentFlags().Lookup("extract-max-workers"))
	viper.BindPFlag("extract.strict", rootCmd.PersistentFlags().Lookup("strict"))
	viper.BindPFlag("rpc.preflight", rootCmd.PersistentFlags().Lookup("rpc-preflight"))
	viper.BindPFlag("rpc.chainId", rootCmd.PersistentFlags().Lookup("chain-id"))
	viper.BindPFlag("warehouse.bigquery.table", rootCmd.PersistentFlags().Lookup("table"))
	viper.BindPFlag("warehouse.bigquery.schemaPath", rootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("warehouse.bigquery.credentialsFile", rootCmd.PersistentFlags().Lookup("credentials-file"))
	viper.BindPFlag("warehouse.bigquery.project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("warehouse.bigquery.writeDisposition", rootCmd.PersistentFlags().Lookup("write-disposition"))
	viper.BindPFlag("archive.enabled", rootCmd.PersistentFlags().Lookup("archive-enabled"))
	viper.BindPFlag("archive.format", rootCmd.PersistentFlags().Lookup("archive-format"))
	viper.BindPFlag("archive.s3.bucket", rootCmd.PersistentFlags().Lookup("archive-s3-bucket"))
	viper.BindPFlag("archive.s3.region", rootCmd.PersistentFlags().Lookup("archive-s3-region"))
	viper.BindPFlag("mirror.enabled", rootCmd.PersistentFlags().Lookup("mirror-enabled"))
	viper.BindPFlag("mirror.clickhouse.host", rootCmd.PersistentFlags().Lookup("mirror-clickhouse-host"))
	viper.BindPFlag("mirror.clickhouse.port", rootCmd.PersistentFlags().Lookup("mirror-clickhouse-port"))
	viper.BindPFlag("mirror.clickhouse.database", rootCmd.PersistentFlags().Lookup("mirror-clickhouse-database"))
	viper.BindPFlag("notify.enabled", rootCmd.PersistentFlags().Lookup("notify-enabled"))
	viper.BindPFlag("notify.kafka.brokers", rootCmd.PersistentFlags().Lookup("notify-kafka-brokers"))
	viper.BindPFlag("notify.kafka.topic", rootCmd.PersistentFlags().Lookup("notify-kafka-topic"))
	viper.BindPFlag("metrics.pushGateway", rootCmd.PersistentFlags().Lookup("metrics-push-gateway"))
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(loadCmd)
}

func initConfig() {
	env.Load()
	if err := configs.LoadConfig(cfgFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	customLogger.InitLogger()
}
