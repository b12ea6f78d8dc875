package protect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Backuper copies a file aside before it is replaced and returns the copy's path.
type Backuper interface {
	Backup(path string) (string, error)
}

// BackupPath returns <path>.backup.<timestamp>, where timestamp is the UTC
// ISO-8601 time with ':' and '.' replaced by '-'.
//
//	user.service.ts.backup.2026-10-19T08-15-02-123Z
func BackupPath(path string, t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return path + ".backup." + stamp
}

// FileBackup copies files next to the original.
type FileBackup struct {
	// Now is the clock used for the timestamp; time.Now when nil.
	Now func() time.Time
}

// Backup copies path to its backup name. It never overwrites an existing
// backup: a numeric suffix is added when the name is taken.
func (b FileBackup) Backup(path string) (string, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	target := BackupPath(path, now())
	for n := 1; ; n++ {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if errors.Is(err, fs.ErrExist) {
			target = fmt.Sprintf("%s-%d", BackupPath(path, now()), n)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create backup %s: %w", target, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write backup %s: %w", target, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close backup %s: %w", target, err)
		}
		return target, nil
	}
}
