package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/trace"
)

const filePrefix = "sandbox-"

// Option configures RuntimeLogger creation.
type Option func(*newOptions)

type newOptions struct {
	dir      string
	level    log.Level
	maxFiles int
	runID    string
	now      func() time.Time
}

// WithDir writes logs under dir instead of ~/.sandbox/logs.
func WithDir(dir string) Option {
	return func(opts *newOptions) {
		opts.dir = strings.TrimSpace(dir)
	}
}

// WithLevel sets the minimum level from its name. Unknown names keep Info.
func WithLevel(level string) Option {
	return func(opts *newOptions) {
		if parsed, err := log.ParseLevel(strings.TrimSpace(level)); err == nil {
			opts.level = parsed
		}
	}
}

// WithMaxFiles keeps at most n log files, deleting the oldest at startup.
func WithMaxFiles(n int) Option {
	return func(opts *newOptions) {
		opts.maxFiles = n
	}
}

// WithRunID configures the run_id field used in emitted log records.
func WithRunID(runID string) Option {
	return func(opts *newOptions) {
		opts.runID = strings.TrimSpace(runID)
	}
}

// RuntimeLogger writes structured JSON logs to disk.
type RuntimeLogger struct {
	Logger     *log.Logger
	file       *os.File
	path       string
	baseLogger *log.Logger
	runID      string
	traceID    string
	spanID     string
}

// New initializes logging under ~/.sandbox/logs without writing to stdout,
// which belongs to the terminal UI.
func New(ctx context.Context, options ...Option) (*RuntimeLogger, error) {
	resolved := resolveOptions(options)

	logDir := resolved.dir
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".sandbox", "logs")
	}
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	timestamp := resolved.now().UTC().Format("20060102-150405.000")
	fileName := fmt.Sprintf("%s%s.log", filePrefix, timestamp)
	if resolved.runID != "" {
		fileName = fmt.Sprintf("%s%s-%s.log", filePrefix, timestamp, resolved.runID)
	}
	filePath := filepath.Join(logDir, fileName)
	// #nosec G304 -- filePath is constructed from trusted local paths.
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.NewWithOptions(file, log.Options{
		Level:           resolved.level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	logger.SetFormatter(log.JSONFormatter)

	runtimeLogger := &RuntimeLogger{
		file:       file,
		path:       filePath,
		baseLogger: logger,
		runID:      resolved.runID,
	}
	runtimeLogger.WithTrace(ctx)
	runtimeLogger.Logger.With("log_file", filePath).Info("logger initialized")

	if resolved.maxFiles > 0 {
		removed, pruneErr := prune(logDir, filePath, resolved.maxFiles)
		if pruneErr != nil {
			runtimeLogger.Logger.Warn("prune old logs", "error", pruneErr)
		} else if removed > 0 {
			runtimeLogger.Logger.Debug("pruned old logs", "removed", removed)
		}
	}
	return runtimeLogger, nil
}

// WithRunID updates the run_id field for subsequent log records.
func (r *RuntimeLogger) WithRunID(runID string) *RuntimeLogger {
	if r == nil {
		return nil
	}
	r.runID = strings.TrimSpace(runID)
	r.rebuildLogger()
	return r
}

// WithTrace copies the trace and span ids of the span active in ctx, if any.
func (r *RuntimeLogger) WithTrace(ctx context.Context) *RuntimeLogger {
	if r == nil {
		return nil
	}
	r.traceID, r.spanID = "", ""
	if ctx != nil {
		if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
			r.traceID = spanContext.TraceID().String()
			r.spanID = spanContext.SpanID().String()
		}
	}
	r.rebuildLogger()
	return r
}

// Close flushes and closes the log file.
func (r *RuntimeLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Path returns the current log file path.
func (r *RuntimeLogger) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

func (r *RuntimeLogger) rebuildLogger() {
	if r == nil || r.baseLogger == nil {
		return
	}
	r.Logger = r.baseLogger.With(
		"run_id", r.runID,
		"trace_id", r.traceID,
		"span_id", r.spanID,
	)
}

// prune deletes the oldest sandbox log files beyond keep, never current.
// File names embed a sortable UTC timestamp.
func prune(dir, current string, keep int) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.log"))
	if err != nil {
		return 0, fmt.Errorf("list log files: %w", err)
	}
	sort.Strings(matches)
	excess := len(matches) - keep
	removed := 0
	for _, candidate := range matches {
		if removed >= excess {
			break
		}
		if candidate == current {
			continue
		}
		if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", candidate, err)
		}
		removed++
	}
	return removed, nil
}

func resolveOptions(options []Option) newOptions {
	resolved := newOptions{level: log.InfoLevel, now: time.Now}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&resolved)
	}
	return resolved
}
