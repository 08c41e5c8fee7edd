package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	config "github.com/thirdweb-dev/eth-ingest/configs"
	"google.golang.org/api/option"
)

const CredentialsEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"

// LoadRequest describes one batch load of a local CSV export.
type LoadRequest struct {
	Path   string
	Table  TableID
	Schema bigquery.Schema
	Labels map[string]string
}

// LoadResult is the outcome of a finished load job.
type LoadResult struct {
	JobID      string
	Location   string
	Table      TableID
	OutputRows int64
	InputBytes int64
	Duration   time.Duration
}

type LoadOptions struct {
	WriteDisposition  bigquery.TableWriteDisposition
	CreateDisposition bigquery.TableCreateDisposition
	MaxBadRecords     int64
	Location          string
}

type BigQueryLoader struct {
	client  *bigquery.Client
	options LoadOptions
}

// ExportCredentials points GOOGLE_APPLICATION_CREDENTIALS at the absolute path of
// keyFile. It must run before the client is constructed. An empty keyFile leaves the
// environment untouched so application default credentials still apply.
func ExportCredentials(keyFile string) error {
	if keyFile == "" {
		return nil
	}
	abs, err := filepath.Abs(keyFile)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials file %s: %w", keyFile, err)
	}
	if err := os.Setenv(CredentialsEnvVar, abs); err != nil {
		return fmt.Errorf("failed to set %s: %w", CredentialsEnvVar, err)
	}
	log.Debug().Str("path", abs).Msg("Using service account key file")
	return nil
}

func ParseLoadOptions(cfg *config.BigQueryConfig) (LoadOptions, error) {
	opts := LoadOptions{
		WriteDisposition:  bigquery.WriteAppend,
		CreateDisposition: bigquery.CreateIfNeeded,
		MaxBadRecords:     cfg.MaxBadRecords,
		Location:          cfg.Location,
	}

	switch wd := bigquery.TableWriteDisposition(strings.ToUpper(cfg.WriteDisposition)); wd {
	case "":
	case bigquery.WriteAppend, bigquery.WriteTruncate, bigquery.WriteEmpty:
		opts.WriteDisposition = wd
	default:
		return opts, fmt.Errorf("unknown write disposition %q", cfg.WriteDisposition)
	}

	switch cd := bigquery.TableCreateDisposition(strings.ToUpper(cfg.CreateDisposition)); cd {
	case "":
	case bigquery.CreateIfNeeded, bigquery.CreateNever:
		opts.CreateDisposition = cd
	default:
		return opts, fmt.Errorf("unknown create disposition %q", cfg.CreateDisposition)
	}

	if opts.MaxBadRecords < 0 {
		return opts, fmt.Errorf("maxBadRecords must not be negative, got %d", opts.MaxBadRecords)
	}
	return opts, nil
}

// NewBigQueryLoader exports the credentials file into the environment and then
// constructs a client billed to project.
func NewBigQueryLoader(ctx context.Context, cfg *config.BigQueryConfig, project string) (*BigQueryLoader, error) {
	opts, err := ParseLoadOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Project != "" {
		project = cfg.Project
	}
	if project == "" {
		return nil, errors.New("no BigQuery project configured")
	}

	if err := ExportCredentials(cfg.CredentialsFile); err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, project, option.WithUserAgent("eth-ingest"))
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	if opts.Location != "" {
		client.Location = opts.Location
	}

	return &BigQueryLoader{client: client, options: opts}, nil
}

// LazyLoader defers credentials and client construction to the first Load, so a run
// can export before the key file exists. Options and project are still checked up front.
type LazyLoader struct {
	mu     sync.Mutex
	open   func(ctx context.Context) (*BigQueryLoader, error)
	loader *BigQueryLoader
}

func NewLazyLoader(cfg *config.BigQueryConfig, project string) (*LazyLoader, error) {
	if _, err := ParseLoadOptions(cfg); err != nil {
		return nil, err
	}
	if cfg.Project == "" && project == "" {
		return nil, errors.New("no BigQuery project configured")
	}
	return &LazyLoader{
		open: func(ctx context.Context) (*BigQueryLoader, error) {
			return NewBigQueryLoader(ctx, cfg, project)
		},
	}, nil
}

func (l *LazyLoader) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	l.mu.Lock()
	if l.loader == nil {
		loader, err := l.open(ctx)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.loader = loader
	}
	loader := l.loader
	l.mu.Unlock()
	return loader.Load(ctx, req)
}

// Close releases the client if one was opened.
func (l *LazyLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loader == nil {
		return nil
	}
	err := l.loader.Close()
	l.loader = nil
	return err
}

// Load submits a load job for req.Path and blocks until the job is done.
// Every call creates a new job; loading the same file twice writes its rows twice.
func (l *BigQueryLoader) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	file, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", req.Path, err)
	}
	defer file.Close()

	start := time.Now()
	table := l.client.DatasetInProject(req.Table.Project, req.Table.Dataset).Table(req.Table.Table)
	loader := table.LoaderFrom(NewCSVSource(file, req.Schema, l.options.MaxBadRecords))
	ApplyLoadOptions(loader, l.options, req.Labels)

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to submit load job for %s: %w", req.Table, err)
	}
	logger := log.With().Str("job_id", job.ID()).Str("table", req.Table.String()).Logger()
	logger.Info().Str("location", job.Location()).Msg("Load job submitted, waiting for completion")

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for load job %s: %w", job.ID(), err)
	}

	result, err := ResultFromStatus(job.ID(), req.Table, status)
	if err != nil {
		return nil, err
	}
	result.Location = job.Location()
	result.Duration = time.Since(start)
	logger.Info().Int64("output_rows", result.OutputRows).Dur("duration", result.Duration).Msg("Load job done")
	return result, nil
}

func (l *BigQueryLoader) Close() error {
	return l.client.Close()
}

// NewCSVSource reads a header-prefixed CSV under an explicit schema. Autodetection
// stays off so the schema file is authoritative.
func NewCSVSource(r io.Reader, schema bigquery.Schema, maxBadRecords int64) *bigquery.ReaderSource {
	source := bigquery.NewReaderSource(r)
	source.SourceFormat = bigquery.CSV
	source.SkipLeadingRows = 1
	source.AutoDetect = false
	source.Schema = schema
	source.MaxBadRecords = maxBadRecords
	return source
}

func ApplyLoadOptions(loader *bigquery.Loader, opts LoadOptions, labels map[string]string) {
	loader.WriteDisposition = opts.WriteDisposition
	loader.CreateDisposition = opts.CreateDisposition
	if opts.Location != "" {
		loader.Location = opts.Location
	}
	if len(labels) > 0 {
		loader.Labels = labels
	}
}

// ResultFromStatus turns a finished job status into a LoadResult, or the job's error.
func ResultFromStatus(jobID string, table TableID, status *bigquery.JobStatus) (*LoadResult, error) {
	if status == nil {
		return nil, fmt.Errorf("load job %s returned no status", jobID)
	}
	if err := status.Err(); err != nil {
		return nil, &JobError{JobID: jobID, Table: table, Err: err, Details: status.Errors}
	}
	if !status.Done() {
		return nil, fmt.Errorf("load job %s is not done (state %v)", jobID, status.State)
	}

	result := &LoadResult{JobID: jobID, Table: table}
	if status.Statistics != nil {
		if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
			result.OutputRows = stats.OutputRows
			result.InputBytes = stats.InputFileBytes
		}
	}
	return result, nil
}

// JobError is a load job that reached DONE with an error result.
type JobError struct {
	JobID   string
	Table   TableID
	Err     error
	Details []*bigquery.Error
}

func (e *JobError) Error() string {
	msg := fmt.Sprintf("load job %s into %s failed: %v", e.JobID, e.Table, e.Err)
	for _, d := range e.Details {
		if d == nil || d.Message == "" {
			continue
		}
		msg += "; " + d.Message
	}
	return msg
}

func (e *JobError) Unwrap() error {
	return e.Err
}
