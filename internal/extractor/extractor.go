package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	config "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

const (
	DEFAULT_COMMAND  = "ethereumetl"
	exportSubcommand = "export_blocks_and_transactions"
	stderrTailLines  = 20
)

// Request describes one export of a block range to a pair of CSV files.
type Request struct {
	Range              types.BlockRange
	ProviderURI        string
	BlocksOutput       string
	TransactionsOutput string
}

func (r Request) Validate() error {
	if err := r.Range.Validate(); err != nil {
		return err
	}
	if r.ProviderURI == "" {
		return errors.New("provider URI is required")
	}
	if r.BlocksOutput == "" || r.TransactionsOutput == "" {
		return errors.New("both blocks and transactions output paths are required")
	}
	if filepath.Clean(r.BlocksOutput) == filepath.Clean(r.TransactionsOutput) {
		return fmt.Errorf("blocks and transactions outputs must differ, both are %s", r.BlocksOutput)
	}
	return nil
}

// ExitError is returned when the export tool exits with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.Code, e.Stderr)
}

type Extractor struct {
	command    string
	batchSize  int
	maxWorkers int
}

func NewExtractor(cfg *config.ExtractConfig) *Extractor {
	command := cfg.Command
	if command == "" {
		command = DEFAULT_COMMAND
	}
	return &Extractor{
		command:    command,
		batchSize:  cfg.BatchSize,
		maxWorkers: cfg.MaxWorkers,
	}
}

// Args returns the argument vector passed to the export tool, without the command itself.
func (e *Extractor) Args(req Request) []string {
	args := []string{
		exportSubcommand,
		"--start-block", strconv.FormatUint(req.Range.Start, 10),
		"--end-block", strconv.FormatUint(req.Range.End, 10),
		"--provider-uri", req.ProviderURI,
		"--blocks-output", req.BlocksOutput,
		"--transactions-output", req.TransactionsOutput,
	}
	if e.batchSize > 0 {
		args = append(args, "--batch-size", strconv.Itoa(e.batchSize))
	}
	if e.maxWorkers > 0 {
		args = append(args, "--max-workers", strconv.Itoa(e.maxWorkers))
	}
	return args
}

// Export runs the export tool to completion. Both output files exist when it returns nil.
func (e *Extractor) Export(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid export request: %w", err)
	}

	for _, out := range []string{req.BlocksOutput, req.TransactionsOutput} {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory for %s: %w", out, err)
		}
	}

	logger := log.With().
		Str("command", e.command).
		Uint64("start_block", req.Range.Start).
		Uint64("end_block", req.Range.End).
		Logger()

	stderrTail := &tailWriter{max: stderrTailLines}
	cmd := exec.CommandContext(ctx, e.command, e.Args(req)...)
	cmd.Stdout = &lineLogger{logger: logger, level: zerolog.InfoLevel}
	cmd.Stderr = io.MultiWriter(&lineLogger{logger: logger, level: zerolog.InfoLevel}, stderrTail)

	logger.Info().Str("provider", redactURI(req.ProviderURI)).Msg("Exporting blocks and transactions")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: e.command, Code: exitErr.ExitCode(), Stderr: stderrTail.String()}
		}
		return fmt.Errorf("failed to run %s: %w", e.command, err)
	}

	for _, out := range []string{req.BlocksOutput, req.TransactionsOutput} {
		if _, err := os.Stat(out); err != nil {
			return fmt.Errorf("%s exited successfully but did not produce %s: %w", e.command, out, err)
		}
	}
	logger.Info().
		Str("blocks_output", req.BlocksOutput).
		Str("transactions_output", req.TransactionsOutput).
		Msg("Export finished")
	return nil
}

// redactURI drops everything after the host so API keys in provider paths stay out of logs.
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return "<redacted>"
	}
	host, _, _ := strings.Cut(rest, "/")
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	return scheme + "://" + host
}

// lineLogger forwards complete lines written by the subprocess to zerolog.
type lineLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
	buf    bytes.Buffer
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.logger.WithLevel(w.level).Msg(line)
		}
	}
	return len(p), nil
}

// tailWriter keeps the last max lines written to it.
type tailWriter struct {
	mu    sync.Mutex
	max   int
	lines []string
	part  string
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	chunks := strings.Split(w.part+string(p), "\n")
	w.part = chunks[len(chunks)-1]
	for _, line := range chunks[:len(chunks)-1] {
		if line = strings.TrimRight(line, "\r"); line == "" {
			continue
		}
		w.lines = append(w.lines, line)
		if len(w.lines) > w.max {
			w.lines = w.lines[len(w.lines)-w.max:]
		}
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	lines := w.lines
	if w.part != "" {
		lines = append(append([]string(nil), lines...), w.part)
	}
	return strings.Join(lines, "\n")
}
