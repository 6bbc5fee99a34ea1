// Package data persists decoded reports on the local file system.
package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/target/reportfetch/internal/core"
	apperrors "github.com/target/reportfetch/internal/errors"
)

const defaultFileMode fs.FileMode = 0o644

// FileReportWriterOptions configures FileReportWriter.
type FileReportWriterOptions struct {
	// Mode is applied to the final file. Zero selects 0644.
	Mode fs.FileMode
	// CreateDirs creates missing parent directories.
	CreateDirs bool
	Logger     *slog.Logger
}

// FileReportWriter writes a report atomically: content goes to a temp file in the
// target directory which is renamed over the destination only after a complete write.
type FileReportWriter struct {
	mode       fs.FileMode
	createDirs bool
	logger     *slog.Logger
}

var _ core.ReportWriter = (*FileReportWriter)(nil)

// NewFileReportWriter creates a FileReportWriter.
func NewFileReportWriter(opts FileReportWriterOptions) *FileReportWriter {
	mode := opts.Mode
	if mode == 0 {
		mode = defaultFileMode
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileReportWriter{
		mode:       mode,
		createDirs: opts.CreateDirs,
		logger:     logger.With("component", "report_writer"),
	}
}

// WriteReport copies content to path and returns the number of bytes written. On any
// failure, including a read error from content, the destination is left untouched
// and the temp file is removed.
func (w *FileReportWriter) WriteReport(ctx context.Context, path string, content io.Reader) (int64, error) {
	if path == "" {
		return 0, apperrors.Wrap(ErrOutputPathRequired, apperrors.ErrCodeValidation, "write report")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return 0, apperrors.Wrapf(ErrOutputIsDirectory, apperrors.ErrCodeWrite, "write report to %s", path)
	}

	dir := filepath.Dir(path)
	if w.createDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, apperrors.Wrapf(err, apperrors.ErrCodeWrite, "create directory %s", dir)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeWrite, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if committed {
			return
		}
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			w.logger.WarnContext(ctx, "remove temp report file failed", "path", tmpName, "error", rmErr)
		}
	}()

	n, err := copyAndClose(ctx, tmp, content)
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeWrite, "write report to %s", path)
	}
	if err := os.Chmod(tmpName, w.mode); err != nil {
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeWrite, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeWrite, "rename %s to %s", tmpName, path)
	}
	committed = true

	w.logger.DebugContext(ctx, "report written", "path", path, "bytes", n)
	return n, nil
}

// copyAndClose streams content into f, syncs it and always closes it.
func copyAndClose(ctx context.Context, f *os.File, content io.Reader) (int64, error) {
	n, copyErr := io.Copy(f, contextReader{ctx: ctx, r: content})
	var syncErr error
	if copyErr == nil {
		syncErr = f.Sync()
	}
	closeErr := f.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close: %w", closeErr)
	}
	return n, errors.Join(copyErr, syncErr, closeErr)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
