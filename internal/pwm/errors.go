package pwm

import (
	"fmt"

	"codeberg.org/mutker/pwmctl/internal/errors"
)

const (
	// ErrInterface means the device does not look like a sysfs PWM channel:
	// an attribute the protocol depends on is missing or not parseable.
	ErrInterface = errors.ErrorCode("pwm_interface_error")

	// ErrArgument means the kernel refused a write. The error carries a Fault
	// naming the channel and attribute.
	ErrArgument = errors.ErrorCode("pwm_argument_error")

	ErrExportFailed = errors.ErrorCode("pwm_export_failed")
)

// Fault identifies the attribute a write was refused for.
type Fault struct {
	Channel   string
	Attribute string
}

func (f Fault) String() string {
	return fmt.Sprintf("%s/%s", f.Channel, f.Attribute)
}

// IsInterfaceError reports whether err is an interface error.
func IsInterfaceError(err error) bool {
	return errors.HasCode(err, ErrInterface)
}

// IsArgumentError reports whether err is a refused attribute write.
func IsArgumentError(err error) bool {
	return errors.HasCode(err, ErrArgument)
}

// FaultOf returns the Fault carried by an argument error.
func FaultOf(err error) (Fault, bool) {
	for err != nil {
		if e, ok := err.(errors.Error); ok && e.Code() == ErrArgument {
			f, ok := e.GetData().(Fault)
			return f, ok
		}
		err = errors.Unwrap(err)
	}

	return Fault{}, false
}

func newArgumentError(channel, attr string, err error) error {
	return errors.New().Wrap(ErrArgument, err).WithData(Fault{Channel: channel, Attribute: attr})
}

func newInterfaceError(channel, attr string, err error) error {
	return errors.New().Wrap(ErrInterface, err).WithData(Fault{Channel: channel, Attribute: attr})
}
