package writer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

const (
	dirMode  fs.FileMode = 0o755
	fileMode fs.FileMode = 0o644
)

// BizFunc decides the new content of a biz file while its lock is held.
// cur is nil when the file does not exist. Returning write=false leaves the
// file untouched.
type BizFunc func(cur []byte, exists bool) (content []byte, write bool, err error)

// Writer writes base and biz files.
type Writer struct {
	locks  *pathLocks
	log    logger.Logger
	dryRun bool

	reportMu sync.Mutex
	report   io.Writer
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// WithDryRun reports every write to out instead of touching the disk.
func WithDryRun(out io.Writer) Option {
	return func(w *Writer) {
		w.dryRun = true
		w.report = out
	}
}

// New creates a writer.
func New(opts ...Option) *Writer {
	w := &Writer{locks: newPathLocks(), log: logger.Default(), report: io.Discard}
	for _, o := range opts {
		o(w)
	}
	return w
}

// DryRun reports whether the writer only reports.
func (w *Writer) DryRun() bool {
	return w.dryRun
}

// EnsureLayout creates <out>, <out>/base and <out>/biz.
func (w *Writer) EnsureLayout(out string) error {
	if w.dryRun {
		return nil
	}
	for _, dir := range []string{out, LayerDir(out, model.LayerBase), LayerDir(out, model.LayerBiz)} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return apperr.Wrapf(err, apperr.KindIO, "cannot create directory %s", dir)
		}
	}
	return nil
}

// LayerDir returns the directory of a layer under out.
func LayerDir(out string, layer model.Layer) string {
	return filepath.Join(out, string(layer))
}

// WriteBase overwrites path with content.
func (w *Writer) WriteBase(path string, content []byte) error {
	unlock := w.locks.lock(path)
	defer unlock()

	if w.dryRun {
		w.reportf("Overwrite %s (%d bytes)", path, len(content))
		return nil
	}
	if err := writeAtomic(path, content); err != nil {
		return apperr.Wrapf(err, apperr.KindIO, "cannot write %s", path)
	}
	w.log.Debug("base file written", logger.F("path", path), logger.F("bytes", len(content)))
	return nil
}

// WriteBiz runs fn under the path lock and writes what it returns.
// In dry-run mode fn still runs so the report reflects the merge outcome.
func (w *Writer) WriteBiz(path string, fn BizFunc) (bool, error) {
	unlock := w.locks.lock(path)
	defer unlock()

	cur, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, apperr.Wrapf(err, apperr.KindIO, "cannot read %s", path)
	}

	content, write, err := fn(cur, exists)
	if err != nil {
		return false, err
	}
	if !write {
		if w.dryRun {
			w.reportf("Keep %s", path)
		}
		return false, nil
	}

	if w.dryRun {
		verb := "Create"
		if exists {
			verb = "Update"
		}
		w.reportf("%s %s (%d bytes)", verb, path, len(content))
		return true, nil
	}
	if err := writeAtomic(path, content); err != nil {
		return false, apperr.Wrapf(err, apperr.KindIO, "cannot write %s", path)
	}
	w.log.Debug("biz file written", logger.F("path", path), logger.F("bytes", len(content)))
	return true, nil
}

func (w *Writer) reportf(format string, args ...any) {
	w.reportMu.Lock()
	defer w.reportMu.Unlock()
	fmt.Fprintf(w.report, "✓ [DRY RUN] "+format+"\n", args...)
}

// writeAtomic writes content to a temp file beside path and renames it into
// place. An existing file keeps its permissions.
func writeAtomic(path string, content []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return err
	}

	mode := fileMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name()) // best effort
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
