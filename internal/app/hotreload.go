package app

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// HotReloader watches the running binary and reports once when a newer build
// replaces it. It is a development aid enabled by ui.hot_reload.
type HotReloader struct {
	execPath string
	baseline time.Time
	interval time.Duration
	log      *zap.Logger
	stat     func(string) (os.FileInfo, error)
}

// NewHotReloader watches the current executable. It returns nil when the
// executable cannot be located.
func NewHotReloader(interval time.Duration, log *zap.Logger) *HotReloader {
	execPath, err := os.Executable()
	if err != nil {
		return nil
	}
	// go build replaces the file, so watch the target rather than a symlink
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return newHotReloader(execPath, interval, log, os.Stat)
}

func newHotReloader(path string, interval time.Duration, log *zap.Logger, stat func(string) (os.FileInfo, error)) *HotReloader {
	info, err := stat(path)
	if err != nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HotReloader{execPath: path, baseline: info.ModTime(), interval: interval, log: log, stat: stat}
}

// ExecPath returns the watched executable.
func (h *HotReloader) ExecPath() string {
	return h.execPath
}

// Watch polls until ctx ends or a newer binary appears, then calls onNewBinary
// once and returns.
func (h *HotReloader) Watch(ctx context.Context, onNewBinary func()) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.changed() {
				h.log.Info("newer binary detected", zap.String("path", h.execPath))
				onNewBinary()
				return
			}
		}
	}
}

func (h *HotReloader) changed() bool {
	info, err := h.stat(h.execPath)
	if err != nil {
		return false
	}
	return info.ModTime().After(h.baseline)
}

// ResetBaseline accepts the current binary, e.g. after the user declines a restart.
func (h *HotReloader) ResetBaseline() {
	if info, err := h.stat(h.execPath); err == nil {
		h.baseline = info.ModTime()
	}
}

// Restart replaces the process with the new binary, keeping args and environment.
// It does not return on success.
func (h *HotReloader) Restart() error {
	return syscall.Exec(h.execPath, os.Args, os.Environ())
}
