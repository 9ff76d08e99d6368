// Package sysfs reads and writes the text attributes of kernel devices
// under /sys. It stands in for libudev: devices are directories, attributes
// are the readable files inside them.
package sysfs

// Device is a handle to one sysfs device directory.
type Device interface {
	// Path returns the device's sysfs path.
	Path() string

	// Name returns the last element of the path, e.g. "pwmchip0".
	Name() string

	// HasAttr reports whether name is a readable attribute of the device.
	HasAttr(name string) bool

	// ReadAttr returns the attribute value with surrounding whitespace removed.
	ReadAttr(name string) (string, error)

	// WriteAttr stores value in an existing attribute. The kernel validates
	// the value at write time, so a rejected value surfaces here.
	WriteAttr(name, value string) error
}

// Sysfs builds device handles and probes the tree.
type Sysfs interface {
	// Device returns a handle for the directory at path. No I/O happens
	// until an attribute is touched.
	Device(path string) Device

	// Exists reports whether anything exists at path.
	Exists(path string) bool

	// Resolve returns the canonical form of path, symlinks followed, so
	// /sys/class/pwm/pwmchip0 and its /sys/devices target compare equal.
	// A path that cannot be resolved is returned cleaned.
	Resolve(path string) string

	// WriteFile writes value into an existing control file.
	WriteFile(path, value string) error

	// Enumerate returns the devices of a subsystem, in directory order.
	Enumerate(subsystem string) ([]Device, error)
}
