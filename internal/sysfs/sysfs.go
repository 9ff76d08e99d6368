package sysfs

import (
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"github.com/spf13/afero"
)

const (
	defaultSysfsRoot = "/sys"
	classDir         = "class"
	readableBits     = 0o444
)

// FS implements Sysfs on top of an afero filesystem rooted at Root.
type FS struct {
	fs   afero.Fs
	root string
}

// New returns a Sysfs over fs. An empty root means /sys.
func New(fs afero.Fs, root string) *FS {
	if root == "" {
		root = defaultSysfsRoot
	}

	return &FS{fs: fs, root: root}
}

// NewOS returns a Sysfs over the host filesystem.
func NewOS(root string) *FS {
	return New(afero.NewOsFs(), root)
}

// Root returns the mount point of the tree.
func (s *FS) Root() string {
	return s.root
}

func (s *FS) Device(path string) Device {
	return &device{
		fs:   s.fs,
		path: filepath.Clean(path),
	}
}

func (s *FS) Exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}

// Resolve follows symlinks on the host filesystem. Other backing
// filesystems only get the path cleaned.
func (s *FS) Resolve(path string) string {
	if _, ok := s.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return resolved
		}
	}

	return filepath.Clean(path)
}

func (s *FS) WriteFile(path, value string) error {
	if err := writeString(s.fs, path, value); err != nil {
		return errors.New().Wrap(ErrControlWrite, err).WithData(path)
	}

	return nil
}

// Enumerate lists <root>/class/<subsystem>. An entry is kept when its
// subsystem link names the requested subsystem, or when the link cannot be
// read at all.
func (s *FS) Enumerate(subsystem string) ([]Device, error) {
	dir := filepath.Join(s.root, classDir, subsystem)

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New().Wrap(ErrEnumerate, err).WithData(dir)
	}

	devices := make([]Device, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !s.inSubsystem(path, subsystem) {
			continue
		}
		devices = append(devices, s.Device(path))
	}

	return devices, nil
}

func (s *FS) inSubsystem(path, subsystem string) bool {
	lr, ok := s.fs.(afero.LinkReader)
	if !ok {
		return true
	}

	target, err := lr.ReadlinkIfPossible(filepath.Join(path, "subsystem"))
	if err != nil {
		return true
	}

	return filepath.Base(target) == subsystem
}

type device struct {
	fs   afero.Fs
	path string
}

func (d *device) Path() string {
	return d.path
}

func (d *device) Name() string {
	return filepath.Base(d.path)
}

func (d *device) HasAttr(name string) bool {
	info, err := d.fs.Stat(filepath.Join(d.path, name))
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&readableBits != 0
}

func (d *device) ReadAttr(name string) (string, error) {
	errFactory := errors.New()

	b, err := afero.ReadFile(d.fs, filepath.Join(d.path, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errFactory.Wrap(ErrAttrNotFound, err).WithData(name)
		}
		return "", errFactory.Wrap(ErrAttrRead, err).WithData(name)
	}

	return strings.TrimSpace(string(b)), nil
}

func (d *device) WriteAttr(name, value string) error {
	if err := writeString(d.fs, filepath.Join(d.path, name), value); err != nil {
		if os.IsNotExist(err) {
			return errors.New().Wrap(ErrAttrNotFound, err).WithData(name)
		}
		return errors.New().Wrap(ErrAttrWrite, err).WithData(name)
	}

	return nil
}

// writeString never creates path. sysfs files appear only when the kernel
// makes them.
func writeString(fs afero.Fs, path, value string) error {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}

	_, werr := f.WriteString(value)
	cerr := f.Close()

	return errors.Join(werr, cerr)
}
