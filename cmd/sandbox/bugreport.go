package main

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/studentcode/sandbox/internal/config"
)

const bugreportLogLimit = 3

var (
	bugreportNowFn = func() time.Time {
		return time.Now().UTC()
	}
	bugreportHomeDirFn = os.UserHomeDir
	bugreportGetwdFn   = os.Getwd
)

var sensitiveConfigKeys = []string{"token", "secret", "password", "api_key", "apikey", "authorization", "endpoint"}

func newBugreportCommand(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "bugreport",
		Short: "Collect recent logs and settings into a diagnostic bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if logger != nil {
				logger.With("command", "bugreport").Info("collecting diagnostic bundle")
			}
			return runBugReport(cmd.OutOrStdout())
		},
	}
}

type bugreportSummary struct {
	Timestamp string
	Version   string
	LogFiles  []string
	RunID     string
	TraceID   string
	Warnings  []string
}

func runBugReport(out io.Writer) error {
	homeDir, err := bugreportHomeDirFn()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	homeDir = filepath.Clean(homeDir)
	if strings.TrimSpace(homeDir) == "" || homeDir == "." {
		return fmt.Errorf("home directory is not valid")
	}
	cwd, err := bugreportGetwdFn()
	if err != nil {
		return fmt.Errorf("resolve current directory: %w", err)
	}

	bundlePath := filepath.Join(filepath.Clean(cwd), fmt.Sprintf(".sandbox-bugreport-%s.tar.gz", bugreportNowFn().Format("20060102-150405")))
	stagingDir, err := os.MkdirTemp("", "sandbox-bugreport-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	summary := bugreportSummary{
		Timestamp: bugreportNowFn().Format(time.RFC3339),
		Version:   Version,
	}
	logFiles, warnings := copyRecentLogs(homeDir, stagingDir, bugreportLogLimit)
	summary.LogFiles = logFiles
	summary.Warnings = append(summary.Warnings, warnings...)
	summary.RunID, summary.TraceID = extractLastCorrelation(logFiles)
	if summary.RunID == "" && summary.TraceID == "" {
		summary.Warnings = append(summary.Warnings, "no run_id/trace_id found in copied logs")
	}

	configs := []struct{ source, name string }{
		{filepath.Join(homeDir, config.DirName, "config.toml"), "config-home.toml"},
		{filepath.Join(cwd, config.DirName, "config.toml"), "config-project.toml"},
	}
	for _, cfg := range configs {
		if err := copyRedactedConfig(cfg.source, stagingDir, cfg.name, &summary); err != nil {
			return err
		}
	}
	if err := writeStagedFile(stagingDir, "version.txt", fmt.Sprintf("sandbox version: %s\n", strings.TrimSpace(summary.Version))); err != nil {
		return err
	}
	if err := writeStagedFile(stagingDir, "last-run.txt", fmt.Sprintf("run_id: %s\ntrace_id: %s\n", summary.RunID, summary.TraceID)); err != nil {
		return err
	}
	if err := writeStagedFile(stagingDir, "README.txt", bugreportREADME(summary)); err != nil {
		return err
	}
	if err := archiveBugreport(stagingDir, bundlePath); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(out, "Bug report written to: %s\n", bundlePath); err != nil {
		return fmt.Errorf("write bugreport output: %w", err)
	}
	return nil
}

func copyRecentLogs(homeDir, stagingDir string, limit int) ([]string, []string) {
	files, err := newestFiles(filepath.Join(homeDir, config.DirName, "logs"), limit)
	if err != nil {
		return nil, []string{fmt.Sprintf("unable to read logs directory: %v", err)}
	}
	destDir := filepath.Join(stagingDir, "logs")
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, []string{fmt.Sprintf("unable to create logs staging directory: %v", err)}
	}

	var warnings []string
	copied := make([]string, 0, len(files))
	for _, file := range files {
		// #nosec G304 -- source path comes from the ~/.sandbox/logs listing.
		data, readErr := os.ReadFile(file.path)
		if readErr != nil {
			warnings = append(warnings, fmt.Sprintf("unable to read log %s: %v", file.path, readErr))
			continue
		}
		if writeErr := os.WriteFile(filepath.Join(destDir, filepath.Base(file.path)), data, 0o600); writeErr != nil {
			warnings = append(warnings, fmt.Sprintf("unable to stage log %s: %v", file.path, writeErr))
			continue
		}
		copied = append(copied, file.path)
	}
	return copied, warnings
}

// extractLastCorrelation returns the newest run_id/trace_id pair found in the
// JSON log lines, scanning newest file first and each file bottom up.
func extractLastCorrelation(logPaths []string) (string, string) {
	for _, logPath := range logPaths {
		// #nosec G304 -- log paths come from the ~/.sandbox/logs listing.
		data, err := os.ReadFile(logPath)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			record := map[string]any{}
			if err := json.Unmarshal([]byte(strings.TrimSpace(lines[i])), &record); err != nil {
				continue
			}
			runID, _ := record["run_id"].(string)
			traceID, _ := record["trace_id"].(string)
			if runID != "" || traceID != "" {
				return strings.TrimSpace(runID), strings.TrimSpace(traceID)
			}
		}
	}
	return "", ""
}

func copyRedactedConfig(source, stagingDir, name string, summary *bugreportSummary) error {
	// #nosec G304 -- config paths are fixed locations under home and cwd.
	data, err := os.ReadFile(source)
	if err != nil {
		if !os.IsNotExist(err) {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("unable to read config %s: %v", source, err))
		}
		return nil
	}
	return writeStagedFile(stagingDir, name, redactSensitiveConfig(string(data)))
}

// redactSensitiveConfig masks the value of any `key = value` line whose key
// names a credential or a collector address.
func redactSensitiveConfig(configText string) string {
	lines := strings.Split(configText, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 || !isSensitiveKey(parts[0]) {
			continue
		}
		lines[i] = parts[0] + `= "***REDACTED***"`
	}
	return strings.Join(lines, "\n")
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, sensitive := range sensitiveConfigKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

func bugreportREADME(summary bugreportSummary) string {
	var b strings.Builder
	b.WriteString("Student Code Sandbox Bug Report\n")
	b.WriteString("===============================\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", summary.Timestamp)
	fmt.Fprintf(&b, "Version: %s\n", summary.Version)
	fmt.Fprintf(&b, "run_id: %s\n", summary.RunID)
	fmt.Fprintf(&b, "trace_id: %s\n\n", summary.TraceID)
	b.WriteString("Included artifacts:\n")
	fmt.Fprintf(&b, "- logs/ (up to last %d log files)\n", bugreportLogLimit)
	b.WriteString("- config-home.toml / config-project.toml (redacted, when present)\n")
	b.WriteString("- version.txt\n")
	b.WriteString("- last-run.txt\n")
	if len(summary.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, warning := range summary.Warnings {
			b.WriteString("- " + warning + "\n")
		}
	}
	return b.String()
}

func writeStagedFile(stagingDir, name, content string) error {
	if err := os.WriteFile(filepath.Join(stagingDir, name), []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func archiveBugreport(stagingDir, destination string) (err error) {
	// #nosec G304 -- destination is a generated name in the working directory.
	archiveFile, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", destination, err)
	}
	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)
	defer func() {
		for _, closer := range []io.Closer{tarWriter, gzipWriter, archiveFile} {
			if closeErr := closer.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("finish archive: %w", closeErr)
			}
		}
	}()

	walkErr := filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("read file info for %s: %w", path, err)
		}
		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return fmt.Errorf("compute archive path for %s: %w", path, err)
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("create tar header for %s: %w", path, err)
		}
		header.Name = filepath.ToSlash(relPath)
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("write tar header for %s: %w", path, err)
		}
		// #nosec G304 -- walk paths originate from the staging directory.
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s for archive: %w", path, err)
		}
		defer file.Close()
		if _, err := io.Copy(tarWriter, file); err != nil {
			return fmt.Errorf("copy %s into archive: %w", path, err)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("archive bugreport: %w", walkErr)
	}
	return nil
}

type datedFile struct {
	path    string
	modTime time.Time
}

func newestFiles(dir string, limit int) ([]datedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]datedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, datedFile{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}
