package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const defaultMaxBytes = 100 * 1024

// RotatingFile is an io.WriteCloser that starts a new file once the current
// one would grow past maxBytes.  Up to `backups` old files are kept, named
// <file>.1 (newest) to <file>.N.  With no backups the file is truncated.
type RotatingFile struct {
	mu       sync.Mutex
	fileName string
	maxBytes int64
	backups  int
	file     *os.File
	size     int64
	closed   bool
}

func NewRotatingFile(fileName string, maxBytes int64, backups int) (*RotatingFile, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if backups < 0 {
		backups = 0
	}

	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating log directory for %s", fileName)
	}

	r := &RotatingFile{
		fileName: fileName,
		maxBytes: maxBytes,
		backups:  backups,
	}

	if err := r.open(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *RotatingFile) open() error {
	file, err := os.OpenFile(r.fileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening log file %s", r.fileName)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "checking log file %s", r.fileName)
	}

	r.file = file
	r.size = fi.Size()
	return nil
}

// rotate moves the current file aside.  If that fails the current file is
// reopened so logging carries on, and the error is returned.
func (r *RotatingFile) rotate() error {
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return errors.Wrapf(err, "closing log file %s", r.fileName)
	}

	if err := r.shuffle(); err != nil {
		if openErr := r.open(); openErr != nil {
			return openErr
		}
		return err
	}

	return r.open()
}

func (r *RotatingFile) shuffle() error {
	if r.backups == 0 {
		return errors.Wrapf(os.Truncate(r.fileName, 0), "truncating log file %s", r.fileName)
	}

	// shuffle <file>.N-1 -> <file>.N, oldest falls off the end
	for i := r.backups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", r.fileName, i)
		dst := fmt.Sprintf("%s.%d", r.fileName, i+1)
		if _, err := os.Stat(src); err == nil {
			if err := os.Rename(src, dst); err != nil {
				return errors.Wrapf(err, "rotating %s", src)
			}
		}
	}

	return errors.Wrapf(os.Rename(r.fileName, r.fileName+".1"), "rotating %s", r.fileName)
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, os.ErrClosed
	}

	// an earlier rotation left no file open
	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}

	if r.size > 0 && r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil && r.file == nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}
