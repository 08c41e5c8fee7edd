package warehouse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "github.com/thirdweb-dev/eth-ingest/configs"
)

func TestParseLoadOptions(t *testing.T) {
	opts, err := ParseLoadOptions(&config.BigQueryConfig{})
	require.NoError(t, err)
	assert.Equal(t, bigquery.WriteAppend, opts.WriteDisposition)
	assert.Equal(t, bigquery.CreateIfNeeded, opts.CreateDisposition)
	assert.Equal(t, int64(0), opts.MaxBadRecords)

	opts, err = ParseLoadOptions(&config.BigQueryConfig{
		WriteDisposition:  "write_truncate",
		CreateDisposition: "CREATE_NEVER",
		MaxBadRecords:     3,
		Location:          "US",
	})
	require.NoError(t, err)
	assert.Equal(t, bigquery.WriteTruncate, opts.WriteDisposition)
	assert.Equal(t, bigquery.CreateNever, opts.CreateDisposition)
	assert.Equal(t, int64(3), opts.MaxBadRecords)
	assert.Equal(t, "US", opts.Location)

	_, err = ParseLoadOptions(&config.BigQueryConfig{WriteDisposition: "WRITE_SOMETIMES"})
	assert.ErrorContains(t, err, "unknown write disposition")

	_, err = ParseLoadOptions(&config.BigQueryConfig{CreateDisposition: "CREATE_ALWAYS"})
	assert.ErrorContains(t, err, "unknown create disposition")

	_, err = ParseLoadOptions(&config.BigQueryConfig{MaxBadRecords: -1})
	assert.Error(t, err)
}

func TestNewCSVSource(t *testing.T) {
	schema := bigquery.Schema{
		{Name: "hash", Type: bigquery.StringFieldType, Required: true},
		{Name: "nonce", Type: bigquery.IntegerFieldType},
	}
	source := NewCSVSource(strings.NewReader("hash,nonce\n0x1,1\n"), schema, 0)

	assert.Equal(t, bigquery.CSV, source.SourceFormat)
	assert.Equal(t, int64(1), source.SkipLeadingRows)
	assert.False(t, source.AutoDetect)
	assert.Equal(t, schema, source.Schema)
	assert.Equal(t, int64(0), source.MaxBadRecords)
}

func TestApplyLoadOptions(t *testing.T) {
	loader := &bigquery.Loader{}
	ApplyLoadOptions(loader, LoadOptions{
		WriteDisposition:  bigquery.WriteAppend,
		CreateDisposition: bigquery.CreateIfNeeded,
		Location:          "EU",
	}, map[string]string{"start_block": "23732687"})

	assert.Equal(t, bigquery.WriteAppend, loader.WriteDisposition)
	assert.Equal(t, bigquery.CreateIfNeeded, loader.CreateDisposition)
	assert.Equal(t, "EU", loader.Location)
	assert.Equal(t, "23732687", loader.Labels["start_block"])
}

func TestResultFromStatus(t *testing.T) {
	table := TableID{Project: "p", Dataset: "d", Table: "t"}

	result, err := ResultFromStatus("job_1", table, &bigquery.JobStatus{
		State: bigquery.Done,
		Statistics: &bigquery.JobStatistics{
			Details: &bigquery.LoadStatistics{OutputRows: 12, InputFileBytes: 4096},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "job_1", result.JobID)
	assert.Equal(t, table, result.Table)
	assert.Equal(t, int64(12), result.OutputRows)
	assert.Equal(t, int64(4096), result.InputBytes)

	result, err = ResultFromStatus("job_2", table, &bigquery.JobStatus{State: bigquery.Done})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.OutputRows)

	_, err = ResultFromStatus("job_3", table, &bigquery.JobStatus{State: bigquery.Running})
	assert.ErrorContains(t, err, "is not done")

	_, err = ResultFromStatus("job_4", table, nil)
	assert.ErrorContains(t, err, "returned no status")
}

func TestJobError(t *testing.T) {
	cause := errors.New("invalid")
	err := &JobError{
		JobID: "job_1",
		Table: TableID{Project: "p", Dataset: "d", Table: "t"},
		Err:   cause,
		Details: []*bigquery.Error{
			{Message: "Error while reading data, error message: CSV table references column position 16, but line contains only 15 columns."},
			nil,
		},
	}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "load job job_1 into p.d.t failed")
	assert.Contains(t, err.Error(), "column position 16")
}

func TestExportCredentials(t *testing.T) {
	t.Setenv(CredentialsEnvVar, "")

	require.NoError(t, ExportCredentials(""))
	assert.Equal(t, "", os.Getenv(CredentialsEnvVar))

	require.NoError(t, ExportCredentials("gcp-key.json"))

	want, err := filepath.Abs("gcp-key.json")
	require.NoError(t, err)
	assert.Equal(t, want, os.Getenv(CredentialsEnvVar))
}

func TestNewLazyLoaderDefersCredentials(t *testing.T) {
	t.Setenv(CredentialsEnvVar, "/keys/original.json")

	cfg := &config.BigQueryConfig{CredentialsFile: filepath.Join(t.TempDir(), "gcp-key.json")}
	loader, err := NewLazyLoader(cfg, "nansen-technical-test")
	require.NoError(t, err)
	assert.Equal(t, "/keys/original.json", os.Getenv(CredentialsEnvVar))
	assert.NoError(t, loader.Close())
}

func TestNewLazyLoaderValidatesEagerly(t *testing.T) {
	_, err := NewLazyLoader(&config.BigQueryConfig{}, "")
	assert.ErrorContains(t, err, "no BigQuery project configured")

	_, err = NewLazyLoader(&config.BigQueryConfig{WriteDisposition: "sometimes"}, "p")
	assert.ErrorContains(t, err, "unknown write disposition")

	loader, err := NewLazyLoader(&config.BigQueryConfig{Project: "billing"}, "")
	require.NoError(t, err)
	assert.NotNil(t, loader)
}

func TestLazyLoaderReturnsOpenError(t *testing.T) {
	opens := 0
	loader := &LazyLoader{open: func(context.Context) (*BigQueryLoader, error) {
		opens++
		return nil, errors.New("credentials: could not find default credentials")
	}}

	_, err := loader.Load(context.Background(), LoadRequest{Path: "transactions.csv"})
	assert.ErrorContains(t, err, "could not find default credentials")
	_, err = loader.Load(context.Background(), LoadRequest{Path: "transactions.csv"})
	assert.Error(t, err)
	assert.Equal(t, 2, opens)
	assert.NoError(t, loader.Close())
}
