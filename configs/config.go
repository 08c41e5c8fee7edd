package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Prettify bool   `mapstructure:"prettify"`
}

type ExtractConfig struct {
	Command            string `mapstructure:"command"`
	StartBlock         int64  `mapstructure:"startBlock"`
	EndBlock           int64  `mapstructure:"endBlock"`
	ProviderURI        string `mapstructure:"providerUri"`
	OutputDir          string `mapstructure:"outputDir"`
	BlocksOutput       string `mapstructure:"blocksOutput"`
	TransactionsOutput string `mapstructure:"transactionsOutput"`
	BatchSize          int    `mapstructure:"batchSize"`
	MaxWorkers         int    `mapstructure:"maxWorkers"`
	Strict             bool   `mapstructure:"strict"`
}

type RPCConfig struct {
	Preflight bool  `mapstructure:"preflight"`
	ChainID   int64 `mapstructure:"chainId"`
}

type BigQueryConfig struct {
	Table             string `mapstructure:"table"`
	Project           string `mapstructure:"project"`
	Location          string `mapstructure:"location"`
	CredentialsFile   string `mapstructure:"credentialsFile"`
	SchemaPath        string `mapstructure:"schemaPath"`
	WriteDisposition  string `mapstructure:"writeDisposition"`
	CreateDisposition string `mapstructure:"createDisposition"`
	MaxBadRecords     int64  `mapstructure:"maxBadRecords"`
}

type WarehouseConfig struct {
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Format  string   `mapstructure:"format"`
	S3      S3Config `mapstructure:"s3"`
}

type ClickhouseConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	EnableTLS bool   `mapstructure:"enableTLS"`
}

type MirrorConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Clickhouse ClickhouseConfig `mapstructure:"clickhouse"`
}

type KafkaConfig struct {
	Brokers   string `mapstructure:"brokers"`
	Topic     string `mapstructure:"topic"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	EnableTLS bool   `mapstructure:"enableTLS"`
}

type NotifyConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type MetricsConfig struct {
	PushGateway string `mapstructure:"pushGateway"`
	Job         string `mapstructure:"job"`
}

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

var Cfg Config

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("extract.command", "ethereumetl")
	viper.SetDefault("extract.outputDir", "output")
	viper.SetDefault("extract.blocksOutput", "blocks.csv")
	viper.SetDefault("extract.transactionsOutput", "transactions.csv")
	viper.SetDefault("rpc.preflight", true)
	viper.SetDefault("rpc.chainId", 1)
	viper.SetDefault("warehouse.bigquery.schemaPath", "assets/transactions_schema.json")
	viper.SetDefault("warehouse.bigquery.credentialsFile", "gcp-key.json")
	viper.SetDefault("warehouse.bigquery.writeDisposition", "WRITE_APPEND")
	viper.SetDefault("warehouse.bigquery.createDisposition", "CREATE_IF_NEEDED")
	viper.SetDefault("archive.format", "parquet")
	viper.SetDefault("mirror.clickhouse.port", 9440)
	viper.SetDefault("mirror.clickhouse.database", "default")
	viper.SetDefault("metrics.job", "eth_ingest")
}

// LoadConfig reads cfgFile, or ./configs/config.yml when cfgFile is empty.
// A missing default config file is not an error; flags, env and defaults still apply.
func LoadConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file, %s", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file, %s", err)
			}
		}
	}

	// sets e.g. EXTRACT_STARTBLOCK to extract.startBlock
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv()

	err := viper.Unmarshal(&Cfg)
	if err != nil {
		return fmt.Errorf("error unmarshalling config: %v", err)
	}

	return nil
}
