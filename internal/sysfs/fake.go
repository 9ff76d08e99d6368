package sysfs

import (
	"path/filepath"
	"sort"
)

// Write is one recorded attribute write.
type Write struct {
	Attr  string
	Value string
}

// FakeDevice is an in-memory Device for tests.
type FakeDevice struct {
	// Attrs holds the current attribute values.
	Attrs map[string]string

	// Writes records every accepted write in order.
	Writes []Write

	// WriteErrors, if set for an attribute, is returned by WriteAttr.
	WriteErrors map[string]error

	// Validate, if set, runs before a write is stored. A non-nil error
	// rejects the write the way the kernel would.
	Validate func(attr, value string, current map[string]string) error

	// Observe, if set, runs after every accepted write.
	Observe func(current map[string]string)

	path string
}

// NewFakeDevice creates a FakeDevice at path with a copy of attrs.
func NewFakeDevice(path string, attrs map[string]string) *FakeDevice {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	return &FakeDevice{
		Attrs:       copied,
		WriteErrors: map[string]error{},
		path:        path,
	}
}

func (f *FakeDevice) Path() string {
	return f.path
}

func (f *FakeDevice) Name() string {
	return filepath.Base(f.path)
}

func (f *FakeDevice) HasAttr(name string) bool {
	_, ok := f.Attrs[name]
	return ok
}

func (f *FakeDevice) ReadAttr(name string) (string, error) {
	v, ok := f.Attrs[name]
	if !ok {
		return "", newNotFound(name)
	}

	return v, nil
}

func (f *FakeDevice) WriteAttr(name, value string) error {
	if err := f.WriteErrors[name]; err != nil {
		return err
	}
	if _, ok := f.Attrs[name]; !ok {
		return newNotFound(name)
	}
	if f.Validate != nil {
		if err := f.Validate(name, value, f.Attrs); err != nil {
			return err
		}
	}

	f.Attrs[name] = value
	f.Writes = append(f.Writes, Write{Attr: name, Value: value})

	if f.Observe != nil {
		f.Observe(f.Attrs)
	}

	return nil
}

// WritesTo returns the values written to attr, oldest first.
func (f *FakeDevice) WritesTo(attr string) []string {
	var values []string
	for _, w := range f.Writes {
		if w.Attr == attr {
			values = append(values, w.Value)
		}
	}

	return values
}

// FakeSysfs is an in-memory Sysfs holding FakeDevices by path.
type FakeSysfs struct {
	Devices map[string]*FakeDevice

	// Files records control file writes by path.
	Files map[string][]string

	// OnWriteFile, if set, runs after a control file write.
	OnWriteFile func(path, value string)

	// WriteFileError, if set, is returned by WriteFile.
	WriteFileError error

	// Links maps a path to what Resolve returns for it.
	Links map[string]string
}

// NewFakeSysfs creates an empty FakeSysfs.
func NewFakeSysfs() *FakeSysfs {
	return &FakeSysfs{
		Devices: map[string]*FakeDevice{},
		Files:   map[string][]string{},
		Links:   map[string]string{},
	}
}

// Add registers a device and returns it.
func (f *FakeSysfs) Add(path string, attrs map[string]string) *FakeDevice {
	d := NewFakeDevice(filepath.Clean(path), attrs)
	f.Devices[d.path] = d

	return d
}

func (f *FakeSysfs) Device(path string) Device {
	path = filepath.Clean(path)
	if d, ok := f.Devices[path]; ok {
		return d
	}

	return NewFakeDevice(path, nil)
}

func (f *FakeSysfs) Exists(path string) bool {
	_, ok := f.Devices[filepath.Clean(path)]
	return ok
}

func (f *FakeSysfs) Resolve(path string) string {
	path = filepath.Clean(path)
	if target, ok := f.Links[path]; ok {
		return target
	}

	return path
}

func (f *FakeSysfs) WriteFile(path, value string) error {
	if f.WriteFileError != nil {
		return f.WriteFileError
	}

	f.Files[path] = append(f.Files[path], value)
	if f.OnWriteFile != nil {
		f.OnWriteFile(path, value)
	}

	return nil
}

// Enumerate returns devices whose "subsystem" attribute equals subsystem,
// sorted by path.
func (f *FakeSysfs) Enumerate(subsystem string) ([]Device, error) {
	paths := make([]string, 0, len(f.Devices))
	for p, d := range f.Devices {
		if d.Attrs["subsystem"] == subsystem {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	devices := make([]Device, 0, len(paths))
	for _, p := range paths {
		devices = append(devices, f.Devices[p])
	}

	return devices, nil
}

func newNotFound(name string) error {
	return errNotFound.WithData(name)
}
