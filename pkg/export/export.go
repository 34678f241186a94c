// Package export delivers composited roast cards to the user as files.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/menta2k/roast-cam/pkg/types"
)

// Exporter hands encoded image bytes to wherever the user receives files.
// It returns the location the file was delivered to.
type Exporter interface {
	Export(ctx context.Context, data []byte, filename string) (string, error)
}

// Filename returns ai-roast-<style>-<unixMillis>.png
func Filename(style types.Style, t time.Time) string {
	return FilenameAt(style, t.UnixMilli())
}

// FilenameAt formats a filename from a millisecond stamp
func FilenameAt(style types.Style, ms int64) string {
	return fmt.Sprintf("ai-roast-%s-%d.png", style.Key(), ms)
}

// Namer issues filenames whose timestamps strictly increase, so two exports
// inside the same millisecond still get distinct names. Safe for concurrent
// use.
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewNamer returns a Namer reading the wall clock
func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

// NewNamerWithClock returns a Namer reading now
func NewNamerWithClock(now func() time.Time) *Namer {
	return &Namer{now: now}
}

// Next returns a fresh filename for style
func (n *Namer) Next(style types.Style) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return FilenameAt(style, ms)
}

// FileExporter writes cards into a directory
type FileExporter struct {
	Dir  string
	Perm os.FileMode
}

// NewFileExporter creates an exporter for dir
func NewFileExporter(dir string) *FileExporter {
	return &FileExporter{Dir: dir, Perm: 0o644}
}

// Export writes data to Dir/filename. The bytes go to a temporary file in
// the same directory first and are renamed into place, so a reader never
// sees a partial card and no temporary file survives a failure.
func (e *FileExporter) Export(ctx context.Context, data []byte, filename string) (path string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: invalid export filename %q", types.ErrCompositing, filename)
	}

	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create export dir: %v", types.ErrCompositing, err)
	}

	tmp, err := os.CreateTemp(dir, ".roast-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", types.ErrCompositing, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", fmt.Errorf("%w: write card: %v", types.ErrCompositing, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close card: %v", types.ErrCompositing, err)
	}

	perm := e.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return "", fmt.Errorf("%w: chmod card: %v", types.ErrCompositing, err)
	}

	path = filepath.Join(dir, filename)
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: move card into place: %v", types.ErrCompositing, err)
	}
	return path, nil
}

// ErrNothingToExport is returned when no roast result is available
var ErrNothingToExport = errors.New("nothing to export")
