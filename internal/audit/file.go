package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// FileConfig configures FileShipper.
type FileConfig struct {
	Path string
	// MaxSizeMB > 0 rotates the file to Path.1 .. Path.MaxBackups once exceeded.
	MaxSizeMB  int
	MaxBackups int
}

// FileShipper appends audit entries as JSON lines.
type FileShipper struct {
	cfg  FileConfig
	mu   sync.Mutex
	file *os.File
}

// NewFileShipper opens (or creates) the audit file in append mode.
func NewFileShipper(cfg *FileConfig) (*FileShipper, error) {
	f, err := openAppend(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileShipper{cfg: *cfg, file: f}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 -- operator-configured path
}

// Ship writes entry followed by a newline.
func (fs *FileShipper) Ship(_ context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cfg.MaxSizeMB > 0 {
		if info, err := fs.file.Stat(); err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)<<20 {
			if err := fs.rotate(); err != nil {
				slog.Warn("audit file rotation failed", "path", fs.cfg.Path, "error", err)
			}
		}
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}

	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", fs.cfg.Path, i), fmt.Sprintf("%s.%d", fs.cfg.Path, i+1))
	}
	if fs.cfg.MaxBackups > 0 {
		_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")
	} else {
		_ = os.Remove(fs.cfg.Path)
	}

	f, err := openAppend(fs.cfg.Path)
	if err != nil {
		return err
	}
	fs.file = f
	return nil
}

// Close closes the underlying file.
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
