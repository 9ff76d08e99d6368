// Package pid keeps PID files so only one pwmctl writes a channel at a time.
//
// The file is only a name to lock. Exclusion comes from flock(2) held on
// the open file, so a file left behind by a crashed process never blocks
// the next run. The holder's PID is written into the file for diagnostics.
package pid

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/pwmctl/internal/errors"
)

const (
	pidFileSuffix = ".pid"
	pidFilePerm   = 0o600
	// A holder releasing between our open and flock unlinks the file we
	// locked. Each retry means someone else got through first.
	maxAttempts = 5
)

// Lock is a held PID file. Release it when the channel is done.
type Lock struct {
	path string
	file *os.File
}

// Path returns the PID file for name inside dir. Path separators in name
// are flattened so a sysfs path can serve as the name.
func Path(dir, name string) string {
	name = strings.Trim(name, string(filepath.Separator))
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")

	return filepath.Join(dir, "pwmctl-"+name+pidFileSuffix)
}

// Acquire takes the PID file for name. It fails with ErrAlreadyRunning
// while another open file, in this or any other process, holds it.
func Acquire(dir, name string) (*Lock, error) {
	errFactory := errors.New()
	path := Path(dir, name)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, pidFilePerm)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}

		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			holder := readPID(f)
			f.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return nil, errFactory.WithData(errors.ErrAlreadyRunning, struct {
					Path string
					PID  int
				}{
					Path: path,
					PID:  holder,
				})
			}
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}

		if !stillLinked(f, path) {
			f.Close()
			continue
		}

		if err := writePID(f); err != nil {
			f.Close()
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}

		return &Lock{path: path, file: f}, nil
	}

	return nil, errFactory.WithData(errors.ErrResourceBusy, path)
}

// Path returns the locked file.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the PID file and drops the lock. The file is unlinked
// before unlocking, waiters that opened it notice and start over.
func (l *Lock) Release() error {
	errFactory := errors.New()

	removeErr := os.Remove(l.path)
	closeErr := l.file.Close()

	if removeErr != nil && !os.IsNotExist(removeErr) {
		return errFactory.Wrap(errors.ErrInternal, removeErr)
	}
	if closeErr != nil {
		return errFactory.Wrap(errors.ErrInternal, closeErr)
	}

	return nil
}

// stillLinked reports whether path still names the file we locked.
func stillLinked(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}

	return os.SameFile(held, current)
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}

	return f.Sync()
}

// readPID returns the PID stored in f, 0 if there is none yet.
func readPID(f *os.File) int {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}

	return pid
}
