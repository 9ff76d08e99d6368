package sysfs

import "codeberg.org/mutker/pwmctl/internal/errors"

const (
	ErrAttrNotFound = errors.ErrorCode("sysfs_attribute_not_found")
	ErrAttrRead     = errors.ErrorCode("sysfs_attribute_read_failed")
	ErrAttrWrite    = errors.ErrorCode("sysfs_attribute_write_failed")
	ErrEnumerate    = errors.ErrorCode("sysfs_enumerate_failed")
	ErrControlWrite = errors.ErrorCode("sysfs_control_write_failed")
)

var errNotFound = errors.New().New(ErrAttrNotFound)
